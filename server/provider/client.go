// Package provider issues chat-completion calls to an OpenAI-compatible
// endpoint (OpenRouter by default). Each API profile gets its own client
// and circuit breaker; all profiles share one outbound rate limiter.
package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"github.com/teilomillet/kotoba/config"
	"github.com/teilomillet/kotoba/errors"
	"github.com/teilomillet/kotoba/server/metrics"
	"github.com/teilomillet/kotoba/server/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// profileClient bundles the resources owned by one API profile.
type profileClient struct {
	profile config.APIProfile
	api     *openai.Client
	breaker *gobreaker.CircuitBreaker // nil when disabled
}

// Client sends one completion request per call. It is safe for concurrent use.
type Client struct {
	cfg     config.CompletionConfig
	clients map[string]*profileClient
	limiter *rate.Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient builds a client for every profile.
func NewClient(cfg config.CompletionConfig, profiles []config.APIProfile, logger *zap.Logger, m *metrics.Metrics) (*Client, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("at least one API profile is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			referer: cfg.Referer,
			title:   cfg.Title,
		},
	}

	c := &Client{
		cfg:     cfg,
		clients: make(map[string]*profileClient, len(profiles)),
		limiter: newLimiter(cfg.RateLimit),
		logger:  logger,
		metrics: m,
	}

	for _, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("API profile without a name")
		}
		if _, dup := c.clients[p.Name]; dup {
			return nil, fmt.Errorf("duplicate API profile %q", p.Name)
		}

		apiCfg := openai.DefaultConfig(p.APIKey)
		apiCfg.BaseURL = cfg.Endpoint
		apiCfg.HTTPClient = httpClient

		c.clients[p.Name] = &profileClient{
			profile: p,
			api:     openai.NewClientWithConfig(apiCfg),
			breaker: c.newBreaker(p.Name),
		}
	}

	return c, nil
}

func newLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

// Complete sends prompt as a single user message with the model of profile
// and returns the normalized reply. Every failure is a *errors.KotobaError
// of type provider_error whose message is the upstream detail.
func (c *Client) Complete(ctx context.Context, profile config.APIProfile, prompt string) (string, error) {
	requestID := middleware.GetRequestID(ctx)

	pc, ok := c.clients[profile.Name]
	if !ok {
		return "", errors.NewProviderError(requestID, fmt.Sprintf("unknown API profile %q", profile.Name), nil)
	}

	start := time.Now()
	content, err := c.execute(ctx, pc, profile, prompt)
	duration := time.Since(start)

	if c.metrics != nil {
		c.metrics.CompletionDuration.WithLabelValues(profile.Name).Observe(duration.Seconds())
	}

	if err != nil {
		detail := errorDetail(err)
		c.observe(profile.Name, "failure")
		c.logger.Warn("completion failed",
			zap.String("request_id", requestID),
			zap.String("profile", profile.Name),
			zap.String("model", profile.Model),
			zap.String("detail", detail),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return "", errors.NewProviderError(requestID, detail, err)
	}

	c.observe(profile.Name, "success")
	c.logger.Debug("completion succeeded",
		zap.String("request_id", requestID),
		zap.String("profile", profile.Name),
		zap.String("model", profile.Model),
		zap.Duration("duration", duration),
	)
	return content, nil
}

func (c *Client) observe(profile, outcome string) {
	if c.metrics != nil {
		c.metrics.CompletionsTotal.WithLabelValues(profile, outcome).Inc()
	}
}

// execute runs one attempt through the limiter and breaker.
func (c *Client) execute(ctx context.Context, pc *profileClient, profile config.APIProfile, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RateLimitWait.Observe(time.Since(waitStart).Seconds())
	}

	call := func() (interface{}, error) {
		return c.call(ctx, pc.api, profile, prompt)
	}

	if pc.breaker == nil {
		v, err := call()
		if err != nil {
			return "", err
		}
		return v.(string), nil
	}

	v, err := pc.breaker.Execute(call)
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) call(ctx context.Context, api *openai.Client, profile config.APIProfile, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: profile.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: c.cfg.MaxTokens,
	}
	if profile.Temperature != nil {
		req.Temperature = temperature(*profile.Temperature)
	}

	resp, err := api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := normalize(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyContent
	}
	return content, nil
}

// temperature converts a configured value to the request field. go-openai
// omits a zero temperature, so zero is sent as the smallest float32 instead.
func temperature(t float64) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
