package middleware

import "context"

type contextKey string

const (
	ctxActor contextKey = "actor"
	ctxAdmin contextKey = "admin"
)

const anonymousActor = "anonymous"

// ActorFromContext names who issued the request for idempotency scoping.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return anonymousActor
	}
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return anonymousActor
}

func IsAdmin(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(ctxAdmin).(bool)
	return v
}

func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func withAdmin(ctx context.Context) context.Context {
	return context.WithValue(WithActor(ctx, "admin"), ctxAdmin, true)
}
