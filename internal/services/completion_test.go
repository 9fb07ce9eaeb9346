package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatCompletionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "gpt-3.5-turbo",
	"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "info@acme.com"}}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
}`

func TestOpenAICompleterComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var body struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "be brief", body.Messages[0].Content)
		assert.Equal(t, "user", body.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatCompletionBody))
	}))
	defer srv.Close()

	tracker := NewUsageTracker()
	c, err := NewOpenAICompleter("key",
		WithOpenAIBaseURL(srv.URL),
		WithOpenAIModel("gpt-4o-mini"),
		WithOpenAIUsageTracker(tracker))
	require.NoError(t, err)

	ctx := ContextWithRunID(context.Background(), "run-1")
	out, err := c.Complete(ctx, CompletionRequest{System: "be brief", User: "email of Acme"})
	require.NoError(t, err)
	assert.Equal(t, "info@acme.com", out.Text)
	assert.Equal(t, 12, out.TokensIn)
	assert.Equal(t, 4, out.TokensOut)
	assert.Equal(t, 12, tracker.Usage("run-1").TokensIn)
}

func TestOpenAICompleterServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"slow down","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter("key", WithOpenAIBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{User: "hi"})
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.StatusCode)
	assert.True(t, IsTransient(err))
}

func TestGeminiCompleterComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "Springfield"}]}}],
			"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 2, "totalTokenCount": 9}
		}`))
	}))
	defer srv.Close()

	tracker := NewUsageTracker()
	c, err := NewGeminiCompleter(context.Background(), "key",
		WithModel("gemini-test"),
		WithGeminiBaseURL(srv.URL+"/"),
		WithUsageTracker(tracker))
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), CompletionRequest{System: "sys", User: "where is Acme"})
	require.NoError(t, err)
	assert.Equal(t, "Springfield", out.Text)
	assert.Equal(t, 7, out.TokensIn)
	assert.Equal(t, 2, out.TokensOut)
	assert.Equal(t, 7, tracker.Usage("").TokensIn)
	assert.Equal(t, 2, tracker.Usage("").TokensOut)
}

func TestGeminiCompleterNoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"promptFeedback": {"blockReason": "SAFETY"},
			"usageMetadata": {"promptTokenCount": 5, "totalTokenCount": 5}
		}`))
	}))
	defer srv.Close()

	c, err := NewGeminiCompleter(context.Background(), "key",
		WithModel("gemini-test"),
		WithGeminiBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), CompletionRequest{User: "where is Acme"})
	var se *ServiceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "gemini", se.Service)
	assert.Contains(t, se.Body, "SAFETY")
	assert.True(t, IsServiceError(err))
	assert.False(t, IsTransient(err))
}
