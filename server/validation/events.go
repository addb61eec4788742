// Package validation turns LINE webhook events into processing.Event values
// and validates them before they reach the dispatcher.
package validation

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"github.com/teilomillet/kotoba/server/processing"
)

var validate = validator.New()

// ValidationErrorDetail describes one failed check. Values are never
// echoed since they may hold user messages.
type ValidationErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Rejected is an event that failed validation.
type Rejected struct {
	Index   int
	Source  string
	Details []ValidationErrorDetail
}

// Map returns the rejection as a map suitable for KotobaError details.
func (r Rejected) Map() map[string]interface{} {
	return map[string]interface{}{
		"index":  r.Index,
		"source": r.Source,
		"errors": r.Details,
	}
}

// FromWebhook converts one SDK event into its closed form. Every event
// type other than a message becomes KindOther, and every message content
// other than text becomes MessageOther.
func FromWebhook(ev webhook.EventInterface) processing.Event {
	out := processing.Event{
		Kind:   processing.KindOther,
		Source: fmt.Sprintf("%T", ev),
	}

	msg, ok := ev.(webhook.MessageEvent)
	if !ok {
		return out
	}

	out.Kind = processing.KindMessage
	out.Message = processing.MessageOther
	out.ReplyToken = msg.ReplyToken
	out.WebhookEventID = msg.WebhookEventId

	if text, ok := msg.Message.(webhook.TextMessageContent); ok {
		out.Message = processing.MessageText
		out.Text = text.Text
	}

	return out
}

// ValidateEvent checks the invariants of an event. It returns nil when the
// event is valid.
func ValidateEvent(ev processing.Event) []ValidationErrorDetail {
	err := validate.Struct(ev)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationErrorDetail{{Field: "event", Message: err.Error(), Code: "invalid_event"}}
	}

	details := make([]ValidationErrorDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationErrorDetail{
			Field:   fe.Field(),
			Message: fmt.Sprintf("field '%s' failed the '%s' check", fe.Field(), fe.Tag()),
			Code:    fmt.Sprintf("%s_validation_failed", fe.Tag()),
		})
	}
	return details
}

// Events converts and validates a webhook batch. Valid events keep their
// order; invalid ones are returned separately with their batch index.
func Events(events []webhook.EventInterface) ([]processing.Event, []Rejected) {
	valid := make([]processing.Event, 0, len(events))
	var rejected []Rejected

	for i, raw := range events {
		ev := FromWebhook(raw)
		if details := ValidateEvent(ev); details != nil {
			rejected = append(rejected, Rejected{Index: i, Source: ev.Source, Details: details})
			continue
		}
		valid = append(valid, ev)
	}

	return valid, rejected
}
