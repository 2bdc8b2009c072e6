package transport

import "context"

type contextKey string

const anonymousKey contextKey = "anonymous"

// Anonymous marks a request as one made without credentials (login,
// registration, token refresh). No bearer token is attached and a 401 is
// returned to the caller untouched.
func Anonymous(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousKey, true)
}

func isAnonymous(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousKey).(bool)
	return v
}
