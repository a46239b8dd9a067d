package core

import "context"

// AnonymousActor is used when no authenticated identity is attached.
const AnonymousActor = "anonymous"

type actorKey struct{}

// WithActor returns a context carrying the caller identity.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller identity, or AnonymousActor.
func ActorFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok && a != "" {
		return a
	}
	return AnonymousActor
}
