package shared

import (
	"context"
	"strings"
)

// SystemActor is recorded when a request carries no actor.
const SystemActor = "system"

type actorContextKey struct{}

// ContextWithActor stores the acting user name in context.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, strings.TrimSpace(actor))
}

// ActorFromContext extracts the actor, falling back to SystemActor.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return SystemActor
	}
	if actor, _ := ctx.Value(actorContextKey{}).(string); actor != "" {
		return actor
	}
	return SystemActor
}
