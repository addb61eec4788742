package errors

import (
	"net/http"
)

// NewError creates a KotobaError with full control over its fields.
// Prefer the specialized constructors below.
func NewError(errType ErrorType, message string, code int, requestID string, details map[string]interface{}, err error) *KotobaError {
	return &KotobaError{
		Type:      errType,
		Message:   message,
		Code:      code,
		RequestID: requestID,
		Details:   details,
		err:       err,
	}
}

// NewSignatureError is returned for webhooks whose X-Line-Signature does
// not match the channel secret.
func NewSignatureError(requestID string, err error) *KotobaError {
	return &KotobaError{
		Type:      SignatureError,
		Message:   "Invalid webhook signature",
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		err:       err,
	}
}

// NewValidationError creates a validation error for malformed webhook
// bodies or events.
//
// Example:
//
//	err := NewValidationError("req_123", "Invalid event", map[string]interface{}{
//	    "field": "ReplyToken",
//	    "error": "required",
//	})
func NewValidationError(requestID, message string, validationDetails map[string]interface{}) *KotobaError {
	return &KotobaError{
		Type:      ValidationError,
		Message:   message,
		Code:      http.StatusBadRequest,
		RequestID: requestID,
		Details:   validationDetails,
	}
}

// NewProviderError wraps a failed completion call. The message is the
// detail extracted from the upstream response.
func NewProviderError(requestID string, message string, err error) *KotobaError {
	return &KotobaError{
		Type:      ProviderError,
		Message:   message,
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewReplyError wraps a failed reply-send to the messaging platform.
func NewReplyError(requestID string, err error) *KotobaError {
	return &KotobaError{
		Type:      ReplyError,
		Message:   "Failed to send reply",
		Code:      http.StatusBadGateway,
		RequestID: requestID,
		err:       err,
	}
}

// NewConfigError reports an unusable configuration.
func NewConfigError(message string, err error) *KotobaError {
	return &KotobaError{
		Type:    ConfigError,
		Message: message,
		Code:    http.StatusInternalServerError,
		err:     err,
	}
}

// NewInternalError is used for unexpected failures not covered above,
// including recovered panics and failed batches.
func NewInternalError(requestID string, err error) *KotobaError {
	return &KotobaError{
		Type:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}
