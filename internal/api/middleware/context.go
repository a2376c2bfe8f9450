package middleware

import (
	"context"
	"net/http"
	"sync"
)

type contextKey string

const (
	userIDKey contextKey = "user_id"
	callerKey contextKey = "caller"
)

// caller lets middleware that wraps Authenticate see the user it resolved.
// Authenticate derives a new request, so a plain context value set there
// never reaches the outer handlers.
type caller struct {
	mu     sync.Mutex
	userID string
}

func (c *caller) set(userID string) {
	c.mu.Lock()
	c.userID = userID
	c.mu.Unlock()
}

func (c *caller) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// trackCaller returns r carrying a caller slot, reusing one an outer
// middleware already attached.
func trackCaller(r *http.Request) (*http.Request, *caller) {
	if c, ok := r.Context().Value(callerKey).(*caller); ok {
		return r, c
	}
	c := &caller{}
	return r.WithContext(context.WithValue(r.Context(), callerKey, c)), c
}

func SetUserID(ctx context.Context, userID string) context.Context {
	if c, ok := ctx.Value(callerKey).(*caller); ok {
		c.set(userID)
	}
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the authenticated user for r, if any.
func GetUserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok && id != ""
}
