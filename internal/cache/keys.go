package cache

import "fmt"

// RateLimitKey is the per-user request counter for the current window.
func RateLimitKey(userID string) string {
	return fmt.Sprintf("ratelimit:%s", userID)
}
