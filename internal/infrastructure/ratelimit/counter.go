// Package ratelimit provides fixed-window counter stores shared by every
// gateway instance.
package ratelimit

import (
	"context"
	"time"
)

// CounterStore increments a named window counter and returns the value
// after the increment. Implementations must make increment-and-read a
// single atomic step so concurrent instances never under-count.
type CounterStore interface {
	// Increment bumps the counter at key, setting ttl when the key is
	// created, and returns the post-increment value.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
