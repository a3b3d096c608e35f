package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-test", body.Model)
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": `{"needs_split": false}`}},
			},
		})
	}))
	defer server.Close()

	client := NewChatClient(ChatConfig{BaseURL: server.URL, APIKey: "secret", Model: "gpt-test", Timeout: 5 * time.Second})
	content, err := client.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, `{"needs_split": false}`, content)
}

func TestChatClientRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
		})
	}))
	defer server.Close()

	client := NewChatClient(ChatConfig{BaseURL: server.URL + "/v1", Retries: 2, RetryBackoff: time.Millisecond})
	content, err := client.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(3), hits.Load())
}

func TestChatClientDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewChatClient(ChatConfig{BaseURL: server.URL, Retries: 3, RetryBackoff: time.Millisecond})
	_, err := client.Complete(context.Background(), "sys", "user")
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(1), hits.Load())
}

func TestChatClientMissingChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewChatClient(ChatConfig{BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "sys", "user")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestNormalizeBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:1234/v1", normalizeBaseURL("localhost:1234"))
	assert.Equal(t, "https://api.example.com/v1", normalizeBaseURL("https://api.example.com/v1/"))
	assert.Equal(t, "", normalizeBaseURL("  "))
}
