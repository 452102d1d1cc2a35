package cache

import (
	"golang.org/x/sync/singleflight"
)

// Loader fronts an LRUCache with a fill function. Concurrent misses on the
// same key share one call to fill; errors are returned but never cached.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

func NewLoader[T any](cache *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: cache}
}

// Get returns the cached value for key or computes it with fill. The boolean
// reports whether the value came from the cache.
func (l *Loader[T]) Get(key string, fill func() (T, error)) (T, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := fill()
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Cache exposes the underlying LRU for invalidation and stats.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}
