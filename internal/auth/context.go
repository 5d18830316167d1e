package auth

import "context"

type contextKey struct{}

// Context carries the authenticated user's identity for one request. The
// engine never mutates user identity; it only scopes every query to it.
type Context struct {
	UserID string
	Email  string
}

func WithUser(ctx context.Context, ac Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (Context, bool) {
	ac, ok := ctx.Value(contextKey{}).(Context)
	return ac, ok
}

// UserID returns the authenticated user id, or "" when unauthenticated.
func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}
