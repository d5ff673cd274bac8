package ratelimit

import "context"

// RateLimiter caps outbound SMS throughput so a large due batch does not
// flood the transport provider. Buckets are limiter namespaces; the delivery
// worker uses a single "sms" bucket today.
type RateLimiter interface {
	Allow(ctx context.Context, bucket string) (bool, error)
	Wait(ctx context.Context, bucket string) error
}

// Unlimited is a pass-through limiter for tests and single-process setups
// without Redis.
type Unlimited struct{}

func (Unlimited) Allow(ctx context.Context, bucket string) (bool, error) { return true, nil }
func (Unlimited) Wait(ctx context.Context, bucket string) error          { return nil }
