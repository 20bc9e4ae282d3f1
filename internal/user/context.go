package user

import "context"

type ctxKey string

const contextActorKey ctxKey = "actor"

func ContextWithActor(ctx context.Context, actor User) context.Context {
	return context.WithValue(ctx, contextActorKey, actor)
}

// ActorFromContext returns the user resolved by the authentication guard.
func ActorFromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	u, ok := ctx.Value(contextActorKey).(User)
	return u, ok
}
