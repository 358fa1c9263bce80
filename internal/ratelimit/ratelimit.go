// Package ratelimit throttles agent start/stop requests so repeated clicks
// cannot spawn a burst of worker processes.
package ratelimit

import "time"

// Limiter decides whether an action identified by key may proceed.
// Implementations must be safe for concurrent use.
type Limiter interface {
	// Allow consumes one token for key. When it returns false, retryAfter
	// is how long until a token is available again.
	Allow(key string) (ok bool, retryAfter time.Duration)

	// Close releases background resources.
	Close() error
}
