// Package dispatch handles webhook events end to end: it routes each event,
// obtains a completion and sends exactly one reply, or none for events it
// ignores.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/teilomillet/kotoba/config"
	"github.com/teilomillet/kotoba/errors"
	"github.com/teilomillet/kotoba/server/metrics"
	"github.com/teilomillet/kotoba/server/middleware"
	"github.com/teilomillet/kotoba/server/processing"
	"go.uber.org/zap"
)

// Completer obtains model output for a prompt.
type Completer interface {
	Complete(ctx context.Context, profile config.APIProfile, prompt string) (string, error)
}

// Replier sends a text reply to the conversation identified by replyToken.
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// SendResult describes the reply sent for one event.
type SendResult struct {
	UseCase processing.UseCase
	Text    string

	// Degraded is set when the failure reply replaced a completion
	Degraded bool
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	binding        config.Binding
	prompts        *processing.PromptBuilder
	formatter      *processing.ReplyFormatter
	completer      Completer
	replier        Replier
	failureReply   string
	maxConcurrency int
	logger         *zap.Logger
	metrics        *metrics.Metrics
}

// NewDispatcher wires a dispatcher from a validated configuration.
func NewDispatcher(cfg *config.Config, completer Completer, replier Replier, logger *zap.Logger, m *metrics.Metrics) (*Dispatcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if completer == nil || replier == nil {
		return nil, fmt.Errorf("completer and replier are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	binding, err := cfg.Binding()
	if err != nil {
		return nil, err
	}

	prompts, err := processing.NewPromptBuilder(&cfg.Processing)
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		binding:        binding,
		prompts:        prompts,
		formatter:      processing.NewReplyFormatter(cfg.Processing.ResponseFormatting),
		completer:      completer,
		replier:        replier,
		failureReply:   cfg.Dispatch.FailureReply,
		maxConcurrency: cfg.Dispatch.MaxConcurrency,
		logger:         logger,
		metrics:        m,
	}, nil
}

// Handle processes one event. It returns nil, nil for events that get no
// reply. A completion failure still produces a reply carrying the failure
// text; only a failed reply-send is returned as an error.
func (d *Dispatcher) Handle(ctx context.Context, ev processing.Event) (*SendResult, error) {
	requestID := middleware.GetRequestID(ctx)
	route := processing.Classify(ev)
	if d.metrics != nil {
		d.metrics.EventsTotal.WithLabelValues(string(route)).Inc()
	}

	// Deliveries are at least once; the event id ties redeliveries together
	logger := d.logger.With(
		zap.String("request_id", requestID),
		zap.String("webhook_event_id", ev.WebhookEventID),
	)
	logger.Debug("handling event", zap.String("route", string(route)))

	useCase, ok := route.UseCase()
	if !ok {
		if route == processing.RouteUnknownCommand {
			logger.Info("ignoring unknown command",
				zap.String("command", processing.CommandToken(ev.Text)),
			)
		} else {
			logger.Debug("ignoring event",
				zap.String("source", ev.Source),
			)
		}
		return nil, nil
	}

	profile := d.profile(useCase)
	text, degraded := d.complete(ctx, logger, useCase, profile, ev.Text)
	text = d.formatter.Format(text)

	if err := d.reply(ctx, ev.ReplyToken, text); err != nil {
		kerr := errors.NewReplyError(requestID, err)
		errors.LogError(d.logger.With(zap.String("webhook_event_id", ev.WebhookEventID)), kerr, requestID)
		return nil, kerr
	}

	return &SendResult{UseCase: useCase, Text: text, Degraded: degraded}, nil
}

func (d *Dispatcher) profile(useCase processing.UseCase) config.APIProfile {
	if useCase == processing.UseCaseQuestion {
		return d.binding.Question
	}
	return d.binding.AutoRewrite
}

// complete returns the reply text for an event. Failures are logged and
// replaced by the failure reply.
func (d *Dispatcher) complete(ctx context.Context, logger *zap.Logger, useCase processing.UseCase, profile config.APIProfile, text string) (string, bool) {
	prompt, err := d.prompts.Build(useCase, text)
	if err == nil {
		var out string
		out, err = d.completer.Complete(ctx, profile, prompt)
		if err == nil && out != "" {
			return out, false
		}
		if err == nil {
			err = fmt.Errorf("empty completion")
		}
	}

	detail := err.Error()
	var kerr *errors.KotobaError
	if errors.As(err, &kerr) {
		detail = kerr.Message
	}

	logger.Warn("completion failed, sending failure reply",
		zap.String("use_case", string(useCase)),
		zap.String("profile", profile.Name),
		zap.String("detail", detail),
	)
	if d.metrics != nil {
		d.metrics.DegradedReplies.WithLabelValues(string(useCase)).Inc()
	}
	return d.failureReply, true
}

func (d *Dispatcher) reply(ctx context.Context, replyToken, text string) error {
	start := time.Now()
	err := d.replier.Reply(ctx, replyToken, text)

	if d.metrics != nil {
		d.metrics.ReplyDuration.Observe(time.Since(start).Seconds())
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		d.metrics.RepliesTotal.WithLabelValues(outcome).Inc()
	}
	return err
}
