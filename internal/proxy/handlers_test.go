package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalehub/claude-relay/internal/admission"
	"github.com/kalehub/claude-relay/internal/auth"
	"github.com/kalehub/claude-relay/internal/configwatch"
	"github.com/kalehub/claude-relay/internal/telemetry"
	"github.com/kalehub/claude-relay/internal/types"
	"github.com/kalehub/claude-relay/internal/upstream"
)

// fakeUpstreamSSE serves the given SSE lines verbatim as a 200
// text/event-stream response, flushing after each one.
func fakeUpstreamSSE(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		for _, l := range lines {
			_, _ = w.Write([]byte(l))
			flusher.Flush()
		}
	}))
}

const textOnlyTurn = `data: {"type":"message_start","message":{"id":"msg_1","model":"claude-x"}}

data: {"type":"content_block_start","index":0,"content_block":{"type":"text"}}

data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"hello there"}}

data: {"type":"content_block_stop","index":0}

data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"input_tokens":5,"output_tokens":3}}

data: {"type":"message_stop"}

`

func newTestServer(t *testing.T, upstreamURL string) *Server {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLAUDE_RELAY_HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"),
		[]byte(`{"refresh_token":"r","access_token":"tok","expires_at":"2030-01-01T00:00:00Z"}`), 0o600))

	watcher, err := configwatch.New()
	require.NoError(t, err)
	t.Cleanup(watcher.Stop)

	adm := admission.New(2 * time.Second)
	t.Cleanup(adm.Stop)

	client := upstream.NewWithEndpoint(upstreamURL)

	return New(Options{
		Tokens:            auth.NewTokenManager(),
		Admission:         adm,
		Watcher:           watcher,
		Client:            client,
		Sink:              telemetry.NopSink{},
		CacheMessageCount: 2,
	})
}

func TestHandleChatCompletions_NonStreaming(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	body := `{"model":"gpt-4o","stream":false,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.ChatCompletionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hello there", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
}

func TestHandleChatCompletions_Streaming(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	body := `{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "hello there")
	assert.Contains(t, rec.Body.String(), "data: [DONE]")
}

func TestHandleResponses_NonStreaming(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	body := `{"model":"gpt-4o","stream":false,"input":[{"type":"message","role":"user","content":[{"type":"input_text","text":"hi"}]}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/responses", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp types.ResponsesObject
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Output, 1)
}

func TestHandleMessages_PassesThroughStream(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	body := `{"model":"claude-3-5-sonnet","stream":true,"max_tokens":256,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "message_stop")
}

func TestHandleChatCompletions_AdmissionRejectsConcurrentSameSession(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()

	s := newTestServer(t, upstreamSrv.URL)

	body := `{"model":"gpt-4o","stream":false,"messages":[{"role":"user","content":"hi"}],"session_id":"dup-session"}`
	req1 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec1 := httptest.NewRecorder()

	req2 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec2 := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		s.Engine().ServeHTTP(rec1, req1)
		close(done)
	}()
	s.Engine().ServeHTTP(rec2, req2)
	<-done

	codes := []int{rec1.Code, rec2.Code}
	assert.Contains(t, codes, http.StatusOK)

	// Hold the session open, then a request for it must be turned away.
	s.admission.Begin("dup-session", "held", func() {})
	req3 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec3 := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec3, req3)
	assert.Equal(t, http.StatusTooManyRequests, rec3.Code)
}

func TestHandleChatCompletions_LocalAPIKeyEnforced(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()

	dir := t.TempDir()
	t.Setenv("CLAUDE_RELAY_HOME", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.json"),
		[]byte(`{"refresh_token":"r","access_token":"tok","expires_at":"2030-01-01T00:00:00Z"}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apikey.json"),
		[]byte(`{"key":"secret-key","created_at":"2026-01-01T00:00:00Z"}`), 0o600))

	watcher, err := configwatch.New()
	require.NoError(t, err)
	defer watcher.Stop()
	adm := admission.New(2 * time.Second)
	defer adm.Stop()

	s := New(Options{
		Tokens:    auth.NewTokenManager(),
		Admission: adm,
		Watcher:   watcher,
		Client:    upstream.NewWithEndpoint(upstreamSrv.URL),
		Sink:      telemetry.NopSink{},
	})

	body := `{"model":"gpt-4o","stream":false,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req2.Header.Set("x-api-key", "secret-key")
	rec2 := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
}

func TestHandleChatCompletions_UpstreamOverloadErrorSurfacesBeforeOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer srv.Close()

	s := newTestServer(t, srv.URL)

	body := `{"model":"gpt-4o","stream":false,"messages":[{"role":"user","content":"hi"}]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
}

func TestHandleModels_Unauthenticated(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()
	s := newTestServer(t, upstreamSrv.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var list types.ModelList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.NotEmpty(t, list.Data)
}

func TestHandleHealth(t *testing.T) {
	upstreamSrv := fakeUpstreamSSE(t, []string{textOnlyTurn})
	defer upstreamSrv.Close()
	s := newTestServer(t, upstreamSrv.URL)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
