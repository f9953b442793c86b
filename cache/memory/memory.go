// Package memory provides an in-process LRU implementation of pandora.ToolCache.
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/pandora"
)

// DefaultCapacity is the number of entries kept when New is given a non-positive capacity.
const DefaultCapacity = 1024

type entry struct {
	key     string
	value   string
	expires time.Time
}

// Cache is an LRU cache with per-entry TTL. It is safe for concurrent use.
type Cache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
	now      func() time.Time
}

var _ pandora.ToolCache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a cache holding up to capacity entries.
func New(capacity int, options ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
		now:      time.Now,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Get returns the cached value. Expired entries are removed on access.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return "", false, nil
	}

	e := elem.Value.(*entry)
	if !e.expires.IsZero() && c.now().After(e.expires) {
		c.remove(elem)
		return "", false, nil
	}

	c.order.MoveToFront(elem)
	return e.value, true, nil
}

// Set stores value for ttl. A non-positive ttl never expires.
func (c *Cache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = c.now().Add(ttl)
	}

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.expires = expires
		c.order.MoveToFront(elem)
		return nil
	}

	c.items[key] = c.order.PushFront(&entry{key: key, value: value, expires: expires})
	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
	}
	return nil
}

// Len returns the number of entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) remove(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*entry).key)
}
