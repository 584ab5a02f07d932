// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// UserContext contains the authenticated session information the engine needs:
// who is acting and which bar the request operates on.
type UserContext struct {
	UserID string
	BarID  string
	Role   string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetBarID returns the bar ID from context or empty string.
func GetBarID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.BarID
	}
	return ""
}
