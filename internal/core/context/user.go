// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// ActorContext identifies the acting user on a mutating call.
// Identity is supplied by an external collaborator; the core uses it
// only for audit attribution, never for authorization.
type ActorContext struct {
	UserID    string
	Email     string
	SessionID string
}

type actorContextKey struct{}

// WithActor adds ActorContext to context.
func WithActor(ctx context.Context, actor *ActorContext) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns ActorContext from context.
func GetActor(ctx context.Context) *ActorContext {
	if v, ok := ctx.Value(actorContextKey{}).(*ActorContext); ok {
		return v
	}
	return nil
}

// GetActorID returns the acting user id from context or "system".
// Background jobs (expiry sweep, reconciliation) run without a request
// actor and are attributed to "system".
func GetActorID(ctx context.Context) string {
	if a := GetActor(ctx); a != nil && a.UserID != "" {
		return a.UserID
	}
	return "system"
}
