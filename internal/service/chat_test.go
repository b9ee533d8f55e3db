package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"papervault/internal/domain"
)

func TestChat_Ask(t *testing.T) {
	var got genRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/m1:generateContent", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-goog-api-key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"Intro\n- a\n* <b>\nEnd"}]}}]}`))
	}))
	defer srv.Close()

	svc := NewChatService(ChatOpts{Endpoint: srv.URL + "/", Model: "m1", APIKey: "key-1"}, zap.NewNop())
	temp := 0.2
	reply, err := svc.Ask(context.Background(), ChatRequest{Prompt: "what is recursion?", Temperature: &temp})
	require.NoError(t, err)
	assert.Equal(t, "<p>Intro</p><ul><li>a</li><li>&lt;b&gt;</li></ul><p>End</p>", reply.Reply)

	require.Len(t, got.Contents, 1)
	assert.Equal(t, assistantPrefix+" what is recursion?", got.Contents[0].Parts[0].Text)
	assert.Equal(t, 0.2, got.GenerationConfig.Temperature)
	assert.Equal(t, 1, got.GenerationConfig.CandidateCount)
	assert.Equal(t, 256, got.GenerationConfig.MaxOutputTokens)
}

func TestChat_EmptyPromptAndNoCandidates(t *testing.T) {
	var prompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req genRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Contents[0].Parts[0].Text
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	svc := NewChatService(ChatOpts{Endpoint: srv.URL, Model: "m"}, zap.NewNop())
	reply, err := svc.Ask(context.Background(), ChatRequest{Prompt: "   "})
	require.NoError(t, err)
	assert.Equal(t, assistantPrefix, prompt)
	assert.Equal(t, "<p>"+noReply+"</p>", reply.Reply)
}

func TestChat_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	svc := NewChatService(ChatOpts{Endpoint: srv.URL, Model: "m"}, zap.NewNop())
	_, err := svc.Ask(context.Background(), ChatRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.NotContains(t, err.Error(), "quota")

	srv.Close()
	_, err = svc.Ask(context.Background(), ChatRequest{Prompt: "x"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestFormatReply(t *testing.T) {
	assert.Equal(t, "<p>a &amp; b</p>", FormatReply("a & b"))
	assert.Equal(t, "<ul><li>x</li></ul>", FormatReply("  - x"))
	assert.True(t, strings.HasPrefix(FormatReply("-no space"), "<p>"))
}
