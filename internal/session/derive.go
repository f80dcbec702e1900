package session

import (
	"math"
	"time"
)

// DefaultStuckAfter is how long a session may stay connecting before it is
// reported as stuck.
const DefaultStuckAfter = 20 * time.Second

// TTL returns the whole seconds left until expiresAt, rounded up and clamped
// at zero. A zero expiresAt yields zero.
func TTL(expiresAt, now time.Time) int {
	if expiresAt.IsZero() {
		return 0
	}
	left := expiresAt.Sub(now)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// Stuck reports whether code has been connecting for longer than after.
func Stuck(code Code, since, now time.Time, after time.Duration) bool {
	if code != CodeConnecting || since.IsZero() {
		return false
	}
	return now.Sub(since) > after
}
