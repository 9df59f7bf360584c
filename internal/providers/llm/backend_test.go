package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GriffinCanCode/echochat/internal/domain/chat"
)

var testSettings = Settings{Model: "test-model", Temperature: 0, MaxTokens: 512}

var conversation = []chat.Message{
	{Role: chat.RoleUser, Content: "hi"},
	{Role: chat.RoleAssistant, Content: "hello"},
	{Role: chat.RoleUser, Content: "who are you?"},
}

func TestOpenAICompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer gsk_test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])
		assert.EqualValues(t, 512, body["max_completion_tokens"])

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 4)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "assistant", msgs[2].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "test-model",
			"choices": [{
				"index": 0,
				"finish_reason": "stop",
				"message": {"role": "assistant", "content": "  I'm Echo.  "}
			}]
		}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(srv.URL, "gsk_test", nil, testSettings)
	out, err := c.Complete(context.Background(), "be nice", conversation)
	require.NoError(t, err)
	assert.Equal(t, "I'm Echo.", out)
	assert.Equal(t, "openai:test-model", c.Name())
}

func TestOpenAICompleterNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(srv.URL, "k", nil, testSettings)
	_, err := c.Complete(context.Background(), "", conversation)
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAICompleterHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	c := NewOpenAICompleter(srv.URL, "bad", nil, testSettings)
	_, err := c.Complete(context.Background(), "", conversation)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai api error")
}

func TestAnthropicCompleter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body["model"])

		system := body["system"].([]any)
		require.Len(t, system, 1)
		assert.Equal(t, "be nice", system[0].(map[string]any)["text"])

		msgs := body["messages"].([]any)
		require.Len(t, msgs, 3)
		assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "test-model",
			"content": [
				{"type": "text", "text": "I'm "},
				{"type": "text", "text": "Echo."}
			],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 3}
		}`))
	}))
	defer srv.Close()

	c := NewAnthropicCompleter(srv.URL, "sk-ant-test", nil, testSettings)
	out, err := c.Complete(context.Background(), "be nice", conversation)
	require.NoError(t, err)
	assert.Equal(t, "I'm Echo.", out)
}

func TestRetryingTransport(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(5*time.Second, 3, zaptest.NewLogger(t))
	c := NewOpenAICompleter(srv.URL, "k", client, testSettings)

	out, err := c.Complete(context.Background(), "", conversation)
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryingTransportStopsOnCancel(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(5*time.Second, 5, zaptest.NewLogger(t))
	c := NewOpenAICompleter(srv.URL, "k", client, testSettings)

	_, err := c.Complete(ctx, "", conversation)
	assert.Error(t, err)
	assert.LessOrEqual(t, calls.Load(), int32(1))
}
