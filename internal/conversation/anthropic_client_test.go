package conversation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicClientComplete(t *testing.T) {
	var got anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "claude-3-5-haiku-20241022",
			"content": [{"type": "text", "text": " Hi Jane! What are your goals? "}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 812, "output_tokens": 14}
		}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", "", time.Second).WithBaseURL(srv.URL)
	resp, err := client.Complete(context.Background(), LLMRequest{
		System: []string{"system prompt"},
		Messages: []ChatMessage{
			{Role: ChatRoleAssistant, Content: "Welcome to Peak Fitness!"},
			{Role: ChatRoleUser, Content: "Hi"},
			{Role: ChatRoleUser, Content: "What are your prices?"},
		},
		MaxTokens:   300,
		Temperature: 0.7,
	})
	require.NoError(t, err)

	assert.Equal(t, "Hi Jane! What are your goals?", resp.Text)
	assert.Equal(t, int32(826), resp.Usage.TotalTokens)
	assert.Equal(t, "end_turn", resp.StopReason)

	assert.Equal(t, defaultAnthropicModel, got.Model)
	assert.Equal(t, "system prompt", got.System)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, ChatRoleUser, got.Messages[0].Role)
	assert.Equal(t, ChatRoleAssistant, got.Messages[1].Role)
	assert.Equal(t, "Hi\n\nWhat are your prices?", got.Messages[2].Content)
}

func TestAnthropicClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer srv.Close()

	client := NewAnthropicClient("test-key", "model", time.Second).WithBaseURL(srv.URL)
	_, err := client.Complete(context.Background(), LLMRequest{Messages: []ChatMessage{{Role: ChatRoleUser, Content: "hi"}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")

	_, err = NewAnthropicClient("", "", 0).Complete(context.Background(), LLMRequest{})
	require.Error(t, err)
	assert.False(t, NewAnthropicClient("", "", 0).IsConfigured())

	_, err = client.Complete(context.Background(), LLMRequest{})
	assert.Error(t, err, "no messages")
}

func TestNormalizeTurns(t *testing.T) {
	out := normalizeTurns([]ChatMessage{
		{Role: ChatRoleSystem, Content: "ignored"},
		{Role: ChatRoleUser, Content: "a"},
		{Role: ChatRoleUser, Content: ""},
		{Role: ChatRoleUser, Content: "b"},
		{Role: ChatRoleAssistant, Content: "c"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "a\n\nb", out[0].Content)
	assert.Equal(t, "c", out[1].Content)
}
