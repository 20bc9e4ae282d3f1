package auth

import "context"

type ctxKey string

const contextPayloadKey ctxKey = "tokenPayload"

func ContextWithPayload(ctx context.Context, p Payload) context.Context {
	return context.WithValue(ctx, contextPayloadKey, p)
}

// PayloadFromContext returns the decoded token of the current request.
func PayloadFromContext(ctx context.Context) (Payload, bool) {
	if ctx == nil {
		return Payload{}, false
	}
	p, ok := ctx.Value(contextPayloadKey).(Payload)
	return p, ok
}
