package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestNoOpLimiter(t *testing.T) {
	limiter := &NoOpLimiter{}
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		allowed, err := limiter.Allow(ctx, "any-key")
		if err != nil {
			t.Fatalf("Allow() error = %v, want nil", err)
		}
		if !allowed {
			t.Error("Allow() = false, want true")
		}
	}

	if err := limiter.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestNewRedisLimiter_InvalidURL(t *testing.T) {
	if _, err := NewRedisLimiter("not-a-valid-url", 100, time.Minute); err == nil {
		t.Error("NewRedisLimiter() with invalid URL should return error")
	}
}

func TestNewRedisLimiter_ConnectionFailed(t *testing.T) {
	if _, err := NewRedisLimiter("redis://localhost:1", 100, time.Minute); err == nil {
		t.Error("NewRedisLimiter() with unreachable Redis should return error")
	}
}

func TestRedisLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisLimiter("redis://"+mr.Addr(), 3, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()
	key := "facebook:203.0.113.7"

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			t.Fatalf("Allow() request %d error = %v", i+1, err)
		}
		if !allowed {
			t.Errorf("Allow() request %d = false, want true", i+1)
		}
	}

	allowed, err := limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow() over limit error = %v", err)
	}
	if allowed {
		t.Error("Allow() over limit = true, want false")
	}
}

func TestRedisLimiter_WindowExpiry(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisLimiter("redis://"+mr.Addr(), 1, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()
	key := "google:198.51.100.4"

	if allowed, _ := limiter.Allow(ctx, key); !allowed {
		t.Fatal("Allow() first request = false, want true")
	}
	if allowed, _ := limiter.Allow(ctx, key); allowed {
		t.Fatal("Allow() second request = true, want false")
	}

	// Wait out the window; the first entry falls out of the sliding range.
	time.Sleep(100 * time.Millisecond)

	allowed, err := limiter.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow() after window error = %v", err)
	}
	if !allowed {
		t.Error("Allow() after window = false, want true")
	}
}

func TestRedisLimiter_DifferentKeys(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisLimiter("redis://"+mr.Addr(), 1, time.Minute)
	if err != nil {
		t.Fatalf("NewRedisLimiter() error = %v", err)
	}
	defer limiter.Close()

	ctx := context.Background()

	if allowed, _ := limiter.Allow(ctx, "tiktok:10.0.0.1"); !allowed {
		t.Error("Allow(key1) = false, want true")
	}
	if allowed, _ := limiter.Allow(ctx, "tiktok:10.0.0.2"); !allowed {
		t.Error("Allow(key2) = false, want true (independent limits)")
	}
	if allowed, _ := limiter.Allow(ctx, "tiktok:10.0.0.1"); allowed {
		t.Error("Allow(key1) second request = true, want false")
	}
}

func TestMemoryLimiter_Allow(t *testing.T) {
	limiter := NewMemoryLimiter(2, time.Minute, 100)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "k")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !allowed {
			t.Errorf("Allow() request %d = false, want true", i+1)
		}
	}
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Error("Allow() over limit = true, want false")
	}
}

func TestMemoryLimiter_WindowReset(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute, 100)

	current := time.Now()
	limiter.now = func() time.Time { return current }

	ctx := context.Background()
	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatal("Allow() first = false, want true")
	}
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatal("Allow() second = true, want false")
	}

	current = current.Add(61 * time.Second)
	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Error("Allow() after window = false, want true")
	}
}

func TestMemoryLimiter_BoundedKeys(t *testing.T) {
	limiter := NewMemoryLimiter(10, time.Minute, 5)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := limiter.Allow(ctx, fmt.Sprintf("key-%d", i)); err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
	}

	if got := limiter.Len(); got > 5 {
		t.Errorf("Len() = %d, want at most 5", got)
	}
}

func TestMemoryLimiter_ContextCancelled(t *testing.T) {
	limiter := NewMemoryLimiter(1, time.Minute, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := limiter.Allow(ctx, "k"); err == nil {
		t.Error("Allow() with cancelled context should return error")
	}
}
