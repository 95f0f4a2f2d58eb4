// Package cache holds the bounded in-memory caches for Sea users and posts.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// UserCapacity is the number of users kept in memory.
	UserCapacity = 100

	// PostCapacity is the number of posts kept in memory.
	PostCapacity = 3000
)

// LRU is a fixed-capacity map that evicts its least recently used entry when
// full. Both Get and Set mark the entry as most recently used.
type LRU[K comparable, V any] struct {
	entries *lru.Cache[K, V]
}

// NewLRU creates an LRU holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) (*LRU[K, V], error) {
	entries, err := lru.New[K, V](capacity)
	if err != nil {
		return nil, fmt.Errorf("create lru cache: %w", err)
	}
	return &LRU[K, V]{entries: entries}, nil
}

// Get returns the value stored for key.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.entries.Get(key)
}

// Set stores value for key, replacing any previous value.
func (c *LRU[K, V]) Set(key K, value V) {
	c.entries.Add(key, value)
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	return c.entries.Len()
}
