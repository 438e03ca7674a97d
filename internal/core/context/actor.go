// Package context provides request-scoped values extraction.
package context

import (
	"context"

	"stockbook/internal/core/id"
)

// ActorContext identifies who is performing the current operation.
// The ledger stamps CreatedBy from it when the caller does not pass
// an explicit user id.
type ActorContext struct {
	UserID   id.ID
	TenantID id.ID
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

// GetUserID returns the acting user id from context, or nil UUID.
func GetUserID(ctx context.Context) id.ID {
	if a := GetActor(ctx); a != nil {
		return a.UserID
	}
	return id.Nil()
}
