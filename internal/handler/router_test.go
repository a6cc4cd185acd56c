package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/chatty/internal/handler/chat"
	"github.com/zhouzirui/chatty/internal/middleware"
	chatModel "github.com/zhouzirui/chatty/internal/model/chat"
	personaModel "github.com/zhouzirui/chatty/internal/model/persona"
	"github.com/zhouzirui/chatty/internal/observability"
	"github.com/zhouzirui/chatty/internal/service/ai"
	chatService "github.com/zhouzirui/chatty/internal/service/chat"
	"github.com/zhouzirui/chatty/internal/store/conversation"
)

type echoReplier struct{}

func (echoReplier) Reply(_ context.Context, turns []chatModel.Turn, _ string) (string, error) {
	return "echo: " + turns[len(turns)-1].Content, nil
}

func (echoReplier) DefaultModel() string { return "echo" }

func newTestRouter(replier chat.Replier, token string, limit int) http.Handler {
	return NewRouter(Deps{
		Logger:       zerolog.Nop(),
		Personas:     personaModel.NewMemoryStore(personaModel.Seed()),
		Conversation: chatService.NewService("You are a helpful assistant."),
		Replier:      replier,
		Archive:      conversation.NewArchive(afero.NewMemMapFs(), "conversation.json", zerolog.Nop()),
		Metrics:      observability.NewMetrics("chatty"),
		RateLimiter:  middleware.NewRateLimiter(limit, time.Minute),
		AppToken:     token,
	})
}

func do(h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.RemoteAddr = "192.0.2.1:4000"
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestRouterChatFlow(t *testing.T) {
	h := newTestRouter(echoReplier{}, "", 10)

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/conversation.json", "", nil).Code)

	resp := do(h, http.MethodPost, "/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var out chatModel.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "echo: hi", out.Reply)
	assert.Equal(t, "echo", out.Model)

	download := do(h, http.MethodGet, "/conversation.json", "", nil)
	require.Equal(t, http.StatusOK, download.Code)
	var records []chatModel.Record
	require.NoError(t, json.NewDecoder(download.Body).Decode(&records))
	require.Len(t, records, 1)
	assert.Len(t, records[0].Conversation, 3)
}

func TestRouterTokenGuardsChatOnly(t *testing.T) {
	h := newTestRouter(echoReplier{}, "s3cret", 10)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/chat", `{"message":"hi"}`, nil).Code)

	header := http.Header{}
	header.Set(chatModel.TokenHeader, "s3cret")
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/chat", `{"message":"hi"}`, header).Code)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/personas", "", nil).Code)
}

func TestRouterRateLimitBeforeAuth(t *testing.T) {
	h := newTestRouter(echoReplier{}, "s3cret", 1)

	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, "/chat", `{}`, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/chat", `{}`, nil).Code)
}

func TestRouterUnconfiguredModel(t *testing.T) {
	h := newTestRouter(ai.Unconfigured{}, "", 10)

	resp := do(h, http.MethodPost, "/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var out chatModel.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, ai.MissingCredentialsReply, out.Reply)
	assert.Equal(t, ai.UnconfiguredModel, out.Model)
	require.NotNil(t, out.Timestamp)
}

func TestRouterUnconfiguredReportsConfiguredModel(t *testing.T) {
	h := newTestRouter(ai.Unconfigured{Model: "doubao-pro"}, "", 10)

	resp := do(h, http.MethodPost, "/chat", `{"message":"hi"}`, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var out chatModel.ChatResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "doubao-pro", out.Model)
}

func TestRouterPreflightAndMetrics(t *testing.T) {
	h := newTestRouter(echoReplier{}, "s3cret", 10)

	preflight := do(h, http.MethodOptions, "/chat", "", nil)
	assert.Equal(t, http.StatusNoContent, preflight.Code)

	do(h, http.MethodPost, "/chat", `{"message":"   "}`, http.Header{chatModel.TokenHeader: {"s3cret"}})
	metrics := do(h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), `chatty_chat_requests_total{outcome="empty"} 1`)
}
