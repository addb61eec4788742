// Package mocks provides hand-written test doubles for the relay's outbound
// dependencies.
package mocks

import (
	"context"
	"sync"

	"github.com/teilomillet/kotoba/config"
)

// CompletionCall records one Complete invocation.
type CompletionCall struct {
	Profile config.APIProfile
	Prompt  string
}

// MockCompleter implements dispatch.Completer.
//
// Example usage:
//
//	completer := NewMockCompleter(func(ctx context.Context, p config.APIProfile, prompt string) (string, error) {
//	    return "Hello world", nil
//	})
type MockCompleter struct {
	CompleteFunc func(context.Context, config.APIProfile, string) (string, error)

	mu    sync.Mutex
	calls []CompletionCall
}

// NewMockCompleter creates a MockCompleter. A nil function returns "" with no error.
func NewMockCompleter(fn func(context.Context, config.APIProfile, string) (string, error)) *MockCompleter {
	return &MockCompleter{CompleteFunc: fn}
}

// Complete records the call and delegates to CompleteFunc.
func (m *MockCompleter) Complete(ctx context.Context, profile config.APIProfile, prompt string) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, CompletionCall{Profile: profile, Prompt: prompt})
	m.mu.Unlock()

	if m.CompleteFunc == nil {
		return "", nil
	}
	return m.CompleteFunc(ctx, profile, prompt)
}

// Calls returns a copy of the recorded calls.
func (m *MockCompleter) Calls() []CompletionCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CompletionCall, len(m.calls))
	copy(out, m.calls)
	return out
}
