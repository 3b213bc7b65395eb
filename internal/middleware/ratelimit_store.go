package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/jobhive/jobhive/internal/cache"
)

// RateStore coordinates rate limiting counters for a specific key.
type RateStore interface {
	Increment(ctx context.Context, key string, window time.Duration) (count int, ttl time.Duration, err error)
}

// memoryRateStore provides process-local rate limiting. It is concurrency-safe.
type memoryRateStore struct {
	mu    sync.Mutex
	data  map[string]*memoryCounter
	clock func() time.Time
}

type memoryCounter struct {
	count     int
	windowEnd time.Time
}

// NewMemoryRateStore constructs an in-memory rate store for single-instance deployments.
func NewMemoryRateStore() RateStore {
	return &memoryRateStore{
		data:  make(map[string]*memoryCounter),
		clock: time.Now,
	}
}

func (s *memoryRateStore) Increment(_ context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Expired counters are swept on write so the map stays bounded by active clients.
	for k, counter := range s.data {
		if !now.Before(counter.windowEnd) {
			delete(s.data, k)
		}
	}

	counter, ok := s.data[key]
	if !ok {
		counter = &memoryCounter{windowEnd: now.Add(window)}
		s.data[key] = counter
	}
	counter.count++

	return counter.count, counter.windowEnd.Sub(now), nil
}

// storeRateStore adapts a cache.Store (Redis or database) to RateStore.
type storeRateStore struct {
	store cache.Store
}

// NewCacheRateStore wraps a shared cache store so limits hold across instances.
func NewCacheRateStore(store cache.Store) RateStore {
	if store == nil {
		return nil
	}
	return &storeRateStore{store: store}
}

func (s *storeRateStore) Increment(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	count, ttl, err := s.store.IncrementWithTTL(ctx, key, window)
	return int(count), ttl, err
}
