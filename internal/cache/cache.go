// Package cache provides the advisory TTL caches in front of derived user
// models. Entries can always be rebuilt from the store.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is a string-keyed cache whose entries expire.
type TTLCache[V any] interface {
	Get(key string) (V, bool)
	Set(key string, v V)
	Delete(key string)
}

// Expirable is a size-bounded LRU with a fixed TTL per entry.
type Expirable[V any] struct {
	lru *expirable.LRU[string, V]
}

// NewExpirable creates an Expirable cache. size <= 0 means unbounded.
func NewExpirable[V any](size int, ttl time.Duration) *Expirable[V] {
	return &Expirable[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

func (c *Expirable[V]) Get(key string) (V, bool) { return c.lru.Get(key) }
func (c *Expirable[V]) Set(key string, v V)      { c.lru.Add(key, v) }
func (c *Expirable[V]) Delete(key string)        { c.lru.Remove(key) }

// Len reports the number of live entries.
func (c *Expirable[V]) Len() int { return c.lru.Len() }

// Noop never stores anything.
type Noop[V any] struct{}

func (Noop[V]) Get(string) (V, bool) {
	var zero V
	return zero, false
}
func (Noop[V]) Set(string, V)  {}
func (Noop[V]) Delete(string) {}

var (
	_ TTLCache[int] = (*Expirable[int])(nil)
	_ TTLCache[int] = Noop[int]{}
)
