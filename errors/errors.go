// Package errors provides the typed error model of the kotoba relay.
// Errors carry a category, an HTTP status, and the request ID of the
// webhook delivery they belong to, and are written as JSON when they reach
// the HTTP boundary. Logging goes through zap.
//
// Basic usage:
//
//	errors.ErrorWithType(w, "invalid signature", errors.SignatureError, http.StatusBadRequest)
//
// Constructors in types.go cover each category:
//
//	err := errors.NewProviderError(requestID, "upstream returned 429", cause)
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the process-wide zap logger. It starts as a production
// logger and is replaced by the CLI once logging is configured.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger replaces DefaultLogger. A nil logger is ignored.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// ErrorType categorizes failures of the relay pipeline.
type ErrorType string

const (
	// SignatureError is returned when the X-Line-Signature check fails
	SignatureError ErrorType = "signature_error"

	// ValidationError covers malformed webhook bodies and events
	ValidationError ErrorType = "validation_error"

	// ProviderError covers every failure of a completion call
	ProviderError ErrorType = "provider_error"

	// ReplyError covers failures sending a reply to LINE
	ReplyError ErrorType = "reply_error"

	// ConfigError covers invalid or incomplete configuration
	ConfigError ErrorType = "config_error"

	// InternalError represents unexpected failures, including recovered panics
	InternalError ErrorType = "internal_error"
)

// KotobaError is the error type shared by all packages. It is serialized
// to JSON for HTTP responses and keeps the underlying cause for logs.
type KotobaError struct {
	// Type categorizes the error for client handling
	Type ErrorType `json:"type"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a webhook delivery
	RequestID string `json:"request_id"`

	// Details contains additional error context
	Details map[string]interface{} `json:"details,omitempty"`

	err error
}

func (e *KotobaError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause.
func (e *KotobaError) Unwrap() error {
	return e.err
}

// Is matches on Type only, so errors.Is(err, &KotobaError{Type: ReplyError})
// finds any reply error in a chain.
func (e *KotobaError) Is(target error) bool {
	t, ok := target.(*KotobaError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WriteError writes err as a JSON response with its status code.
func WriteError(w http.ResponseWriter, err *KotobaError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		DefaultLogger.Warn("failed to encode error response", zap.Error(encErr))
	}
}

// ErrorWithType writes a KotobaError of the given category carrying the
// request ID found in the response headers.
func ErrorWithType(w http.ResponseWriter, message string, errType ErrorType, code int) {
	WriteError(w, &KotobaError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: w.Header().Get("X-Request-ID"),
	})
}
