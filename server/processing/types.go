// Package processing holds the pure steps of the relay pipeline: the inbound
// event model, language classification, routing, prompt construction and
// reply formatting. Nothing in this package performs I/O.
package processing

// EventKind is the top-level type of an inbound webhook event.
type EventKind string

const (
	KindMessage EventKind = "message"
	KindOther   EventKind = "other"
)

// MessageType is the content type of a message event.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageOther MessageType = "other"
)

// Event is the closed form of one webhook event. It is built at the HTTP
// boundary from the SDK representation and validated there, so downstream
// code never inspects raw payloads.
type Event struct {
	Kind EventKind `validate:"required,oneof=message other"`

	// Message is only meaningful when Kind is KindMessage
	Message MessageType `validate:"required_if=Kind message,omitempty,oneof=text other"`

	// Text holds the message body for text messages. LINE caps it at 5000 characters.
	Text string `validate:"required_if=Message text,max=5000"`

	ReplyToken string `validate:"required_if=Kind message"`

	// Source is the SDK type name of the event, for logs
	Source string

	// WebhookEventID is LINE's unique event id, empty when absent
	WebhookEventID string
}

// IsText reports whether the event is a text message.
func (e Event) IsText() bool {
	return e.Kind == KindMessage && e.Message == MessageText
}

// UseCase selects the API profile and prompt family for an event.
type UseCase string

const (
	UseCaseAutoRewrite UseCase = "auto_rewrite"
	UseCaseQuestion    UseCase = "question"
)
