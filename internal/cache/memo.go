package cache

import (
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Memo caches the results of a loader. Concurrent misses for the same key
// share one load, and Invalidate discards everything cached so far.
type Memo[T any] struct {
	lru        *LRUCache[T]
	group      singleflight.Group
	generation atomic.Uint64
}

func NewMemo[T any](lru *LRUCache[T]) *Memo[T] {
	return &Memo[T]{lru: lru}
}

// Get returns the cached value for key or loads it. Failed loads are not
// cached.
func (m *Memo[T]) Get(key string, load func() (T, error)) (T, error) {
	gen := m.generation.Load()
	k := strconv.FormatUint(gen, 10) + "|" + key
	if v, ok := m.lru.Get(k); ok {
		return v, nil
	}

	v, err, _ := m.group.Do(k, func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		// A load that raced with Invalidate must not repopulate the cache.
		if m.generation.Load() == gen {
			m.lru.Set(k, v)
		}
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Invalidate drops all cached values.
func (m *Memo[T]) Invalidate() {
	m.generation.Add(1)
	m.lru.Purge()
}

// Stats reports the hits and misses of the underlying cache.
func (m *Memo[T]) Stats() (hits, misses uint64) {
	return m.lru.Stats()
}

// CleanExpired removes expired entries from the underlying cache.
func (m *Memo[T]) CleanExpired() int {
	return m.lru.CleanExpired()
}
