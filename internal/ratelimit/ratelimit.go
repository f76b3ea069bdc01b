// Package ratelimit throttles submissions per client so a burst of uploads
// cannot exhaust the analyzer's quota.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more submission is allowed for a client.
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// Unlimited permits everything. Used when no Redis is configured.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// Bucket is a Redis-backed token bucket shared across instances. State per
// client lives in a small hash refreshed lazily on each request.
type Bucket struct {
	client   *redis.Client
	capacity int
	refill   float64 // tokens per second
	ttl      time.Duration
}

// NewBucket builds a bucket with the given burst capacity and refill rate.
func NewBucket(client *redis.Client, capacity int, refillPerSecond float64) *Bucket {
	return &Bucket{
		client:   client,
		capacity: capacity,
		refill:   refillPerSecond,
		ttl:      time.Hour,
	}
}

// Allow consumes one token for the client if available.
func (b *Bucket) Allow(ctx context.Context, clientKey string) (bool, error) {
	key := "a11y:submit:" + clientKey
	res, err := takeScript.Run(ctx, b.client, []string{key},
		b.capacity, b.refill, time.Now().UnixMilli(), b.ttl.Milliseconds()).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit check: %w", err)
	}
	allowed, ok := res.(int64)
	if !ok {
		return false, fmt.Errorf("rate limit script returned %T", res)
	}
	return allowed == 1, nil
}

var takeScript = redis.NewScript(`
local capacity = tonumber(ARGV[1])
local refill = tonumber(ARGV[2])
local now_ms = tonumber(ARGV[3])
local ttl_ms = tonumber(ARGV[4])

local state = redis.call('HMGET', KEYS[1], 'tokens', 'updated_ms')
local tokens = tonumber(state[1])
local updated = tonumber(state[2])
if tokens == nil then
  tokens = capacity
  updated = now_ms
end

local elapsed = math.max(0, now_ms - updated)
tokens = math.min(capacity, tokens + elapsed / 1000 * refill)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call('HMSET', KEYS[1], 'tokens', tokens, 'updated_ms', now_ms)
redis.call('PEXPIRE', KEYS[1], ttl_ms)
return allowed
`)
