package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/kotoba/config"
	"go.uber.org/zap/zaptest"
)

func TestLineReplier(t *testing.T) {
	var got map[string]interface{}
	var auth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/bot/message/reply", r.URL.Path)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sentMessages":[{"id":"1","quoteToken":"q"}]}`))
	}))
	defer srv.Close()

	r, err := NewLineReplier(config.LineConfig{
		ChannelAccessToken: "access-token",
		Endpoint:           srv.URL,
		Timeout:            time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, r.Reply(context.Background(), "reply-token", "Hello world"))

	assert.Equal(t, "Bearer access-token", auth)
	assert.Equal(t, "reply-token", got["replyToken"])
	messages, ok := got["messages"].([]interface{})
	require.True(t, ok)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]interface{})
	assert.Equal(t, "text", msg["type"])
	assert.Equal(t, "Hello world", msg["text"])
}

func TestLineReplierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Invalid reply token"}`))
	}))
	defer srv.Close()

	r, err := NewLineReplier(config.LineConfig{
		ChannelAccessToken: "access-token",
		Endpoint:           srv.URL,
		Timeout:            time.Second,
	}, nil)
	require.NoError(t, err)

	err = r.Reply(context.Background(), "reply-token", "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reply message")
}

func TestLineReplierCancelledContext(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	r, err := NewLineReplier(config.LineConfig{ChannelAccessToken: "t", Endpoint: srv.URL, Timeout: time.Second}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, r.Reply(ctx, "tok", "hi"), context.Canceled)
	assert.Equal(t, 0, calls)
}
