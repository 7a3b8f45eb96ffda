package runner

import (
	"context"
	"sync"
	"time"
)

// SuccessCounter is the out-of-scope collaborator that counts
// same-JST-day successful submissions for a targeting (spec.md §4.20,
// §5 "queue-related success-count cache").
type SuccessCounter interface {
	CountSuccessesToday(ctx context.Context, targetingID int64, day time.Time) (int, error)
}

// successCacheEntry holds one targeting's cached count plus its
// fetch time.
type successCacheEntry struct {
	count     int
	fetchedAt time.Time
}

// SuccessCache wraps a SuccessCounter with a short TTL cache (default
// 30s per spec.md §5), invalidated locally on each success so the cap
// check reflects the worker's own just-recorded submission without
// waiting for the TTL to lapse.
type SuccessCache struct {
	mu       sync.Mutex
	counter  SuccessCounter
	ttl      time.Duration
	entries  map[int64]successCacheEntry
}

// NewSuccessCache constructs a cache with the given TTL; ttl<=0
// defaults to 30 seconds.
func NewSuccessCache(counter SuccessCounter, ttl time.Duration) *SuccessCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SuccessCache{
		counter: counter,
		ttl:     ttl,
		entries: make(map[int64]successCacheEntry),
	}
}

// Count returns the cached (or freshly fetched) success count for
// targetingID on day.
func (c *SuccessCache) Count(ctx context.Context, targetingID int64, day time.Time) (int, error) {
	c.mu.Lock()
	entry, ok := c.entries[targetingID]
	c.mu.Unlock()

	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.count, nil
	}

	count, err := c.counter.CountSuccessesToday(ctx, targetingID, day)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.entries[targetingID] = successCacheEntry{count: count, fetchedAt: time.Now()}
	c.mu.Unlock()

	return count, nil
}

// RecordSuccess bumps the cached count immediately, invalidating
// the fetch timestamp so the next Count() call after the TTL refreshes
// from the source of truth rather than accumulating drift forever.
func (c *SuccessCache) RecordSuccess(targetingID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := c.entries[targetingID]
	entry.count++
	entry.fetchedAt = time.Now()
	c.entries[targetingID] = entry
}

// UnderCap reports whether targetingID has room for another successful
// send today given maxDaily (0 or negative means unlimited).
func (c *SuccessCache) UnderCap(ctx context.Context, targetingID int64, day time.Time, maxDaily int) (bool, error) {
	if maxDaily <= 0 {
		return true, nil
	}
	count, err := c.Count(ctx, targetingID, day)
	if err != nil {
		return false, err
	}
	return count < maxDaily, nil
}
