package auth

import (
	"context"
	"testing"
	"time"

	"github.com/haasonsaas/conductor/internal/agent"
)

func TestServiceGenerateValidate(t *testing.T) {
	service := NewService("secret", time.Hour)
	token, err := service.Generate("user-1", []string{"rag.search", "admin"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	auth, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if auth.UserID != "user-1" {
		t.Fatalf("expected user id, got %q", auth.UserID)
	}
	if len(auth.Scopes) != 2 || auth.Scopes[0] != "rag.search" {
		t.Fatalf("expected scopes, got %v", auth.Scopes)
	}
}

func TestServiceRejectsWrongSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).Generate("user-1", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := NewService("secret-b", time.Hour).Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestServiceRejectsExpiredToken(t *testing.T) {
	service := NewService("secret", time.Nanosecond)
	token, err := service.Generate("user-1", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := service.Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestServiceNoExpiryWhenNonPositive(t *testing.T) {
	service := NewService("secret", 0)
	token, err := service.Generate("user-1", nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if _, err := service.Validate(token); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestServiceDisabledWithoutSecret(t *testing.T) {
	service := NewService("  ", time.Hour)
	if service.Enabled() {
		t.Fatalf("expected disabled service")
	}
	if _, err := service.Generate("user-1", nil); err != ErrAuthDisabled {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
	if _, err := service.Validate("token"); err != ErrAuthDisabled {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
}

func TestServiceRequiresUserID(t *testing.T) {
	if _, err := NewService("secret", time.Hour).Generate("  ", nil); err == nil {
		t.Fatalf("expected error for blank user id")
	}
}

func TestAuthContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if AuthContextFrom(ctx) != nil {
		t.Fatalf("expected nil auth on fresh context")
	}
	auth := &agent.ToolAuthContext{UserID: "user-1", Scopes: []string{"admin"}}
	ctx = WithAuthContext(ctx, auth)
	if got := AuthContextFrom(ctx); got != auth {
		t.Fatalf("expected round-tripped auth, got %+v", got)
	}
	if got := WithAuthContext(context.Background(), nil); AuthContextFrom(got) != nil {
		t.Fatalf("expected nil attach to be a no-op")
	}
}
