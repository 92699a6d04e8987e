// shared/session/session.go
package session

import (
	"context"
	"strings"
)

// Identity is the authenticated participant behind a request.
type Identity struct {
	Email string `json:"email"`
}

// Provider yields the identity of the current caller, if any.
type Provider interface {
	CurrentIdentity(ctx context.Context) (Identity, bool)
}

type ctxKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.Email == "" {
		return Identity{}, false
	}
	return id, true
}

// ContextProvider reads the identity Authenticator.Middleware put on the
// request context.
type ContextProvider struct{}

func (ContextProvider) CurrentIdentity(ctx context.Context) (Identity, bool) {
	return FromContext(ctx)
}

// StaticProvider always reports the same caller. An empty Email means
// signed out.
type StaticProvider struct {
	Email string
}

func (s StaticProvider) CurrentIdentity(context.Context) (Identity, bool) {
	if s.Email == "" {
		return Identity{}, false
	}
	return Identity{Email: NormalizeEmail(s.Email)}, true
}

// NormalizeEmail trims and lowercases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
