package auth

import (
	"context"

	"github.com/haasonsaas/conductor/internal/agent"
)

type authContextKey struct{}

// WithAuthContext attaches an authorization context.
func WithAuthContext(ctx context.Context, auth *agent.ToolAuthContext) context.Context {
	if auth == nil {
		return ctx
	}
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthContextFrom retrieves the authorization context, nil for anonymous
// callers.
func AuthContextFrom(ctx context.Context) *agent.ToolAuthContext {
	auth, _ := ctx.Value(authContextKey{}).(*agent.ToolAuthContext)
	return auth
}
