package ratelimit

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBucketCapsBurst(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bucket := NewBucket(client, 2, 1)

	for i := 0; i < 2; i++ {
		allowed, err := bucket.Allow(ctx, "client-a")
		if err != nil || !allowed {
			t.Fatalf("request %d should pass: allowed=%v err=%v", i, allowed, err)
		}
	}
	allowed, err := bucket.Allow(ctx, "client-a")
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("third request should be rejected")
	}

	// A different client has its own bucket.
	allowed, err = bucket.Allow(ctx, "client-b")
	if err != nil || !allowed {
		t.Fatalf("independent client should pass: allowed=%v err=%v", allowed, err)
	}
}

func TestUnlimited(t *testing.T) {
	allowed, err := Unlimited{}.Allow(context.Background(), "anyone")
	if err != nil || !allowed {
		t.Fatalf("unlimited must always allow: %v %v", allowed, err)
	}
}
