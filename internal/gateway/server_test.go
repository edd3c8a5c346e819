package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/haasonsaas/conductor/internal/agent"
	"github.com/haasonsaas/conductor/internal/agent/transport"
	"github.com/haasonsaas/conductor/internal/auth"
	"github.com/haasonsaas/conductor/internal/config"
)

type fakeRunner struct {
	result *agent.AgentResult
	err    error

	gotInput  string
	gotPrompt string
	gotAuth   *agent.ToolAuthContext
}

func (f *fakeRunner) Run(ctx context.Context, userInput string, authCtx *agent.ToolAuthContext, systemPrompt string) (*agent.AgentResult, error) {
	f.gotInput = userInput
	f.gotPrompt = systemPrompt
	f.gotAuth = authCtx
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host:        "127.0.0.1",
			Port:        8000,
			APIPrefix:   "/v1",
			ServiceName: "conductor",
			CORSOrigins: []string{"*"},
		},
		Agent: config.AgentConfig{MaxSteps: 6, SystemPrompt: "Answer briefly."},
	}
}

func newTestServer(runner QueryRunner, authService *auth.Service) *Server {
	return NewServer(testConfig(), runner, authService, testLogger())
}

func postQuery(t *testing.T, server *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestQueryReturnsResponse(t *testing.T) {
	runner := &fakeRunner{result: &agent.AgentResult{Output: "done", Steps: 2, ToolCallsExecuted: 1}}
	server := newTestServer(runner, nil)

	rec := postQuery(t, server, `{"user_input":"hello"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Response != "done" {
		t.Fatalf("response = %q, want %q", resp.Response, "done")
	}
	if runner.gotInput != "hello" {
		t.Fatalf("runner input = %q, want %q", runner.gotInput, "hello")
	}
	if runner.gotPrompt != "Answer briefly." {
		t.Fatalf("runner prompt = %q", runner.gotPrompt)
	}
	if runner.gotAuth != nil {
		t.Fatalf("expected anonymous run, got %+v", runner.gotAuth)
	}
}

func TestQueryRequiresPost(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/query", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestQueryRejectsBadBody(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	rec := postQuery(t, server, `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQueryRequiresUserInput(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	rec := postQuery(t, server, `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestQueryMapsTransportFault(t *testing.T) {
	cause := transport.NewError("responses", "test-model", errors.New("connection refused"))
	runner := &fakeRunner{err: fmt.Errorf("model request: %w", cause)}
	server := newTestServer(runner, nil)

	rec := postQuery(t, server, `{"user_input":"hello"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if !strings.Contains(rec.Body.String(), "Model request failed") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestQueryMapsRateLimit(t *testing.T) {
	cause := transport.NewError("responses", "test-model", errors.New("rate limit exceeded"))
	runner := &fakeRunner{err: fmt.Errorf("model request: %w", cause)}
	server := newTestServer(runner, nil)

	rec := postQuery(t, server, `{"user_input":"hello"}`)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
}

func TestQueryMapsEmptyOutput(t *testing.T) {
	runner := &fakeRunner{result: &agent.AgentResult{Output: "", Steps: 6, ToolCallsExecuted: 8}}
	server := newTestServer(runner, nil)

	rec := postQuery(t, server, `{"user_input":"hello"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
	if !strings.Contains(rec.Body.String(), "Model response empty") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestQueryCarriesAuthContext(t *testing.T) {
	service := auth.NewService("secret", time.Hour)
	token, err := service.Generate("user-1", []string{"rag.search"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	runner := &fakeRunner{result: &agent.AgentResult{Output: "done", Steps: 1}}
	server := newTestServer(runner, service)

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"user_input":"hello"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if runner.gotAuth == nil || runner.gotAuth.UserID != "user-1" {
		t.Fatalf("expected auth context, got %+v", runner.gotAuth)
	}
	if len(runner.gotAuth.Scopes) != 1 || runner.gotAuth.Scopes[0] != "rag.search" {
		t.Fatalf("unexpected scopes: %v", runner.gotAuth.Scopes)
	}
}

func TestQueryRejectsInvalidToken(t *testing.T) {
	service := auth.NewService("secret", time.Hour)
	server := newTestServer(&fakeRunner{}, service)

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"user_input":"hello"}`))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestPing(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ping", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["message"] != "pong" || resp["service"] != "conductor" {
		t.Fatalf("unexpected ping response: %v", resp)
	}
}

func TestHealth(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != `{"status":"ok"}` {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestUnknownPathIs404(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(&fakeRunner{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}
