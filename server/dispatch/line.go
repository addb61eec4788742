package dispatch

import (
	"context"
	"fmt"
	"net/http"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/teilomillet/kotoba/config"
	"go.uber.org/zap"
)

// LineReplier sends replies through the LINE Messaging API.
type LineReplier struct {
	api    *messaging_api.MessagingApiAPI
	logger *zap.Logger
}

// NewLineReplier builds a Messaging API client authenticated with the
// channel access token. Each reply is bounded by cfg.Timeout.
func NewLineReplier(cfg config.LineConfig, logger *zap.Logger) (*LineReplier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []messaging_api.MessagingApiAPIOption{
		messaging_api.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, messaging_api.WithEndpoint(cfg.Endpoint))
	}

	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelAccessToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging api client: %w", err)
	}

	return &LineReplier{api: api, logger: logger}, nil
}

// Reply sends text as a single text message.
func (r *LineReplier) Reply(ctx context.Context, replyToken, text string) error {
	// The SDK client holds its context as shared state, so cancellation is
	// only checked here and the per-call bound comes from the HTTP client.
	if err := ctx.Err(); err != nil {
		return err
	}

	resp, err := r.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}

	if resp != nil {
		r.logger.Debug("reply sent", zap.Int("sent_messages", len(resp.SentMessages)))
	}
	return nil
}
