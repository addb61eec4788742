// Package handlers provides the HTTP handlers of the kotoba relay.
//
// The webhook handler follows a fixed order:
//  1. Verify the X-Line-Signature header against the raw body
//  2. Decode and validate the events
//  3. Hand the valid events to the dispatcher and wait for the whole batch
//  4. Answer 200 once every event has been handled, 500 otherwise
//
// Errors are written with the errors package and logged with the request ID
// of the delivery.
package handlers

import (
	"context"
	stderrors "errors"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/teilomillet/kotoba/errors"
	"github.com/teilomillet/kotoba/server/metrics"
	"github.com/teilomillet/kotoba/server/middleware"
	"github.com/teilomillet/kotoba/server/processing"
	"github.com/teilomillet/kotoba/server/validation"
	"go.uber.org/zap"
)

// MaxBodyBytes bounds the size of a webhook delivery.
const MaxBodyBytes = 1 << 20

// BatchHandler handles the events of one delivery.
type BatchHandler interface {
	HandleBatch(ctx context.Context, events []processing.Event) error
}

// WebhookHandler receives LINE webhook deliveries.
type WebhookHandler struct {
	channelSecret string
	dispatcher    BatchHandler
	logger        *zap.Logger
	metrics       *metrics.Metrics
}

// NewWebhookHandler creates a webhook handler verifying signatures with
// channelSecret. metrics may be nil.
func NewWebhookHandler(channelSecret string, dispatcher BatchHandler, logger *zap.Logger, m *metrics.Metrics) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		channelSecret: channelSecret,
		dispatcher:    dispatcher,
		logger:        logger,
		metrics:       m,
	}
}

// ServeHTTP implements http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	logger := h.logger.With(
		zap.String("request_id", requestID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	cb, err := webhook.ParseRequest(h.channelSecret, r)
	if err != nil {
		if stderrors.Is(err, webhook.ErrInvalidSignature) {
			h.fail(w, logger, errors.NewSignatureError(requestID, err))
			return
		}
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			h.fail(w, logger, errors.NewError(
				errors.ValidationError,
				"Webhook body too large",
				http.StatusRequestEntityTooLarge,
				requestID,
				map[string]interface{}{"limit": tooLarge.Limit},
				err,
			))
			return
		}
		h.fail(w, logger, errors.NewValidationError(requestID, "Invalid webhook body", map[string]interface{}{
			"error": err.Error(),
		}))
		return
	}

	events, rejected := validation.Events(cb.Events)
	for _, rej := range rejected {
		logger.Warn("skipping invalid event",
			zap.Int("index", rej.Index),
			zap.String("source", rej.Source),
			zap.Any("errors", rej.Details),
		)
		if h.metrics != nil {
			h.metrics.InvalidEvents.Inc()
		}
	}

	logger.Debug("webhook received",
		zap.String("destination", cb.Destination),
		zap.Int("events", len(cb.Events)),
		zap.Int("valid", len(events)),
	)

	if err := h.dispatcher.HandleBatch(r.Context(), events); err != nil {
		h.fail(w, logger, errors.NewInternalError(requestID, err))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) fail(w http.ResponseWriter, logger *zap.Logger, err *errors.KotobaError) {
	errors.LogError(logger, err, err.RequestID)
	if h.metrics != nil {
		h.metrics.ErrorsTotal.WithLabelValues(string(err.Type)).Inc()
	}
	errors.WriteError(w, err)
}

// Health answers GET / with an empty 200, the liveness check used by
// hosting platforms.
func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
