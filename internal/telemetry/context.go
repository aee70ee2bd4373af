package telemetry

import "context"

type ctxKey int

const (
	turnIDKey ctxKey = iota
	sessionIDKey
)

// WithTurnID returns a child context carrying the operator turn ID.
// A nil ctx is treated as context.Background().
func WithTurnID(ctx context.Context, id string) context.Context {
	return withValue(ctx, turnIDKey, id)
}

// TurnIDFromContext returns the turn ID, or "", false when absent or empty.
func TurnIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, turnIDKey)
}

// WithSessionID returns a child context carrying the session ID.
func WithSessionID(ctx context.Context, id string) context.Context {
	return withValue(ctx, sessionIDKey, id)
}

// SessionIDFromContext returns the session ID, or "", false when absent or empty.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, sessionIDKey)
}

func withValue(ctx context.Context, k ctxKey, v string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, k, v)
}

func stringValue(ctx context.Context, k ctxKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	s, ok := ctx.Value(k).(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
