package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"
	"github.com/teilomillet/kotoba/server/processing"
)

var (
	// ErrNoChoices is returned when a successful response carries no choices
	ErrNoChoices = errors.New("completion returned no choices")

	// ErrEmptyContent is returned when the first choice is empty after normalization
	ErrEmptyContent = errors.New("completion returned empty content")
)

func normalize(content string) string {
	return processing.NormalizeCompletion(content)
}

// errorDetail extracts the most useful description of a failed call: the
// upstream error message when the endpoint sent one, then the transport
// cause, then the raw error text.
func errorDetail(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Err != nil {
			return fmt.Sprintf("upstream returned status %d: %v", reqErr.HTTPStatusCode, reqErr.Err)
		}
		return fmt.Sprintf("upstream returned status %d", reqErr.HTTPStatusCode)
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit breaker is open"
	case errors.Is(err, context.DeadlineExceeded):
		return "completion timed out"
	}

	return err.Error()
}
