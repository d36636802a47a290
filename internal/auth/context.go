package auth

import (
	"context"

	"github.com/wolfeidau/authcore/internal/models"
)

type contextKey int

const (
	principalContextKey contextKey = iota
)

// WithPrincipal returns a context carrying the resolved principal. The
// principal is threaded explicitly through the call chain rather than
// attached to a shared request object.
func WithPrincipal(ctx context.Context, principal models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// PrincipalFromContext extracts the resolved principal from the context.
// The second return is false for unauthenticated (anonymous) calls.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(models.Principal)
	return principal, ok
}
