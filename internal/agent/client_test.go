package agent

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeTransport returns a scripted payload or error and records the request
// it was given.
type fakeTransport struct {
	name    string
	payload any
	err     error
	calls   int
	lastReq *Request
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) Complete(ctx context.Context, req *Request) (any, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func TestClientUsesPrimaryWhenNonEmpty(t *testing.T) {
	primary := &fakeTransport{name: "responses", payload: map[string]any{"output_text": "hi"}}
	fallback := &fakeTransport{name: "openai", payload: map[string]any{"output_text": "unused"}}
	client := NewChatClient(primary, fallback, ClientConfig{Model: "test-model", Logger: testLogger()})

	resp, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "hi" {
		t.Fatalf("Text = %q, want %q", resp.Text, "hi")
	}
	if fallback.calls != 0 {
		t.Fatalf("fallback called %d times, want 0", fallback.calls)
	}
}

func TestClientFallsBackOnEmptyPrimary(t *testing.T) {
	primary := &fakeTransport{name: "responses", payload: map[string]any{}}
	fallback := &fakeTransport{name: "openai", payload: map[string]any{"output_text": "rescued"}}
	client := NewChatClient(primary, fallback, ClientConfig{Model: "test-model", Logger: testLogger()})

	resp, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Text != "rescued" {
		t.Fatalf("Text = %q, want %q", resp.Text, "rescued")
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("primary calls = %d, fallback calls = %d, want 1 and 1", primary.calls, fallback.calls)
	}
}

func TestClientReturnsEmptyWithoutFallback(t *testing.T) {
	primary := &fakeTransport{name: "responses", payload: map[string]any{}}
	client := NewChatClient(primary, nil, ClientConfig{Model: "test-model", Logger: testLogger()})

	resp, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !resp.Empty() {
		t.Fatalf("resp = %+v, want empty", resp)
	}
}

func TestClientReturnsEmptyWhenBothEmpty(t *testing.T) {
	primary := &fakeTransport{name: "responses", payload: map[string]any{}}
	fallback := &fakeTransport{name: "openai", payload: map[string]any{"unexpected": true}}
	client := NewChatClient(primary, fallback, ClientConfig{Model: "test-model", Logger: testLogger()})

	resp, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if !resp.Empty() {
		t.Fatalf("resp = %+v, want empty", resp)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallback.calls)
	}
}

func TestClientPropagatesPrimaryError(t *testing.T) {
	cause := errors.New("connection refused")
	primary := &fakeTransport{name: "responses", err: cause}
	fallback := &fakeTransport{name: "openai", payload: map[string]any{"output_text": "unused"}}
	client := NewChatClient(primary, fallback, ClientConfig{Model: "test-model", Logger: testLogger()})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want %v", err, cause)
	}
	// Faults are not empty payloads, so the fallback is not tried.
	if fallback.calls != 0 {
		t.Fatalf("fallback calls = %d, want 0", fallback.calls)
	}
}

func TestClientPropagatesFallbackError(t *testing.T) {
	cause := errors.New("rate limit exceeded")
	primary := &fakeTransport{name: "responses", payload: map[string]any{}}
	fallback := &fakeTransport{name: "openai", err: cause}
	client := NewChatClient(primary, fallback, ClientConfig{Model: "test-model", Logger: testLogger()})

	_, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hello"}}, nil)
	if !errors.Is(err, cause) {
		t.Fatalf("error = %v, want %v", err, cause)
	}
}

func TestClientBuildsRequest(t *testing.T) {
	primary := &fakeTransport{name: "responses", payload: map[string]any{"output_text": "ok"}}
	client := NewChatClient(primary, nil, ClientConfig{
		Model:       "test-model",
		Temperature: 0.2,
		Timeout:     5 * time.Second,
		Logger:      testLogger(),
	})

	messages := []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hello"},
	}
	tools := []ToolSpec{newStubTool("retrieve").Spec()}
	if _, err := client.Complete(context.Background(), messages, tools); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	req := primary.lastReq
	if req == nil {
		t.Fatal("transport never saw a request")
	}
	if req.Model != "test-model" {
		t.Fatalf("Model = %q", req.Model)
	}
	if req.Temperature != 0.2 {
		t.Fatalf("Temperature = %v", req.Temperature)
	}
	if req.Timeout != 5*time.Second {
		t.Fatalf("Timeout = %v", req.Timeout)
	}
	if len(req.Messages) != 2 || len(req.Tools) != 1 {
		t.Fatalf("Messages = %d, Tools = %d", len(req.Messages), len(req.Tools))
	}
}

func TestClientDefaultsTimeout(t *testing.T) {
	primary := &fakeTransport{name: "responses", payload: map[string]any{"output_text": "ok"}}
	client := NewChatClient(primary, nil, ClientConfig{Model: "test-model", Logger: testLogger()})

	if _, err := client.Complete(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}, nil); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if primary.lastReq.Timeout != DefaultRequestTimeout {
		t.Fatalf("Timeout = %v, want %v", primary.lastReq.Timeout, DefaultRequestTimeout)
	}
}
