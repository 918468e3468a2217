package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/leadgate-systems/leadgate/internal/metrics"
)

// MemoryLimiter is a fixed-window limiter with a bounded key cache for
// single-instance deployments without Redis. Stale windows are evicted on
// access; when the cache is full, the oldest window is dropped so the key
// set cannot grow without limit.
type MemoryLimiter struct {
	mu       sync.Mutex
	counters map[string]*window
	limit    int
	window   time.Duration
	maxKeys  int
	now      func() time.Time
}

type window struct {
	start time.Time
	count int
}

// NewMemoryLimiter creates a limiter allowing limit requests per key per
// windowSize, tracking at most maxKeys distinct keys.
func NewMemoryLimiter(limit int, windowSize time.Duration, maxKeys int) *MemoryLimiter {
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	return &MemoryLimiter{
		counters: make(map[string]*window),
		limit:    limit,
		window:   windowSize,
		maxKeys:  maxKeys,
		now:      time.Now,
	}
}

// Allow increments the counter for key and reports whether the request is
// within the limit.
func (m *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	w, ok := m.counters[key]
	if !ok || now.Sub(w.start) >= m.window {
		if !ok && len(m.counters) >= m.maxKeys {
			m.evictLocked(now)
		}
		m.counters[key] = &window{start: now, count: 1}
		return true, nil
	}

	if w.count >= m.limit {
		metrics.RateLimitHits.WithLabelValues(key).Inc()
		return false, nil
	}
	w.count++
	return true, nil
}

// evictLocked drops expired windows, falling back to the oldest live one.
func (m *MemoryLimiter) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time

	for k, w := range m.counters {
		if now.Sub(w.start) >= m.window {
			delete(m.counters, k)
			continue
		}
		if oldestKey == "" || w.start.Before(oldest) {
			oldestKey = k
			oldest = w.start
		}
	}

	if len(m.counters) >= m.maxKeys && oldestKey != "" {
		delete(m.counters, oldestKey)
	}
}

// Len reports the number of tracked keys.
func (m *MemoryLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.counters)
}

func (m *MemoryLimiter) Close() error {
	return nil
}
