package mocks

import (
	"context"
	"sync"
)

// ReplyCall records one Reply invocation.
type ReplyCall struct {
	ReplyToken string
	Text       string
}

// MockReplier implements dispatch.Replier.
type MockReplier struct {
	ReplyFunc func(ctx context.Context, replyToken, text string) error

	mu    sync.Mutex
	calls []ReplyCall
}

// NewMockReplier creates a MockReplier. A nil function always succeeds.
func NewMockReplier(fn func(ctx context.Context, replyToken, text string) error) *MockReplier {
	return &MockReplier{ReplyFunc: fn}
}

// Reply records the call and delegates to ReplyFunc.
func (m *MockReplier) Reply(ctx context.Context, replyToken, text string) error {
	m.mu.Lock()
	m.calls = append(m.calls, ReplyCall{ReplyToken: replyToken, Text: text})
	m.mu.Unlock()

	if m.ReplyFunc == nil {
		return nil
	}
	return m.ReplyFunc(ctx, replyToken, text)
}

// Calls returns a copy of the recorded calls.
func (m *MockReplier) Calls() []ReplyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReplyCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ByToken returns the recorded reply text per reply token.
func (m *MockReplier) ByToken() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.calls))
	for _, c := range m.calls {
		out[c.ReplyToken] = c.Text
	}
	return out
}
