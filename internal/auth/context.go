package auth

import "context"

// Actor is the authenticated caller of a request, used for soft-delete and
// write attribution.
type Actor struct {
	UserID string
	Email  string
	Record map[string]any
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const actorContextKey contextKey = "actor"

// ContextWithActor adds the authenticated actor to the context.
func ContextWithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// ActorFromContext retrieves the authenticated actor from the context.
// Returns nil if not present.
func ActorFromContext(ctx context.Context) *Actor {
	actor, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return actor
}
