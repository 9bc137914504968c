package ratelimit

import "context"

// RateLimiter controls provider send throughput per medium.
type RateLimiter interface {
	Allow(ctx context.Context, medium string) (bool, error)
	Wait(ctx context.Context, medium string) error
}
