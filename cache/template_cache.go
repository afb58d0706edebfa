// Package cache implements the bounded, TTL-expiring LRU cache of
// notification templates consulted by the Channel Resolver.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/5-VED/notification-dispatcher/models"
)

const (
	defaultCapacity = 500
	defaultTTL      = 5 * time.Minute
)

// Key identifies a cached template by (type, channel).
type Key struct {
	Type    models.NotificationType
	Channel models.Channel
}

type entry struct {
	key       Key
	template  *models.NotificationTemplate
	cachedAt  time.Time
}

// TemplateCache is a mutex-guarded LRU with TTL expiry. It owns no
// package-level state; each Channel Resolver instance constructs its own.
type TemplateCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	ll       *list.List
	items    map[Key]*list.Element
}

// New builds a TemplateCache with the default capacity (500) and TTL (5m).
func New() *TemplateCache {
	return NewWithOptions(defaultCapacity, defaultTTL)
}

// NewWithOptions builds a TemplateCache with explicit capacity and TTL,
// primarily for tests.
func NewWithOptions(capacity int, ttl time.Duration) *TemplateCache {
	return &TemplateCache{
		capacity: capacity,
		ttl:      ttl,
		ll:       list.New(),
		items:    make(map[Key]*list.Element),
	}
}

// Get returns the cached template for key if present and not expired. A
// hit moves the entry to the front (most-recently-used).
func (c *TemplateCache) Get(key Key) (*models.NotificationTemplate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}

	e := el.Value.(*entry)
	if time.Since(e.cachedAt) > c.ttl {
		c.ll.Remove(el)
		delete(c.items, key)
		return nil, false
	}

	c.ll.MoveToFront(el)
	return e.template, true
}

// Put inserts or refreshes a cache entry, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *TemplateCache) Put(key Key, tmpl *models.NotificationTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry).template = tmpl
		el.Value.(*entry).cachedAt = time.Now()
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: key, template: tmpl, cachedAt: time.Now()})
	c.items[key] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).key)
		}
	}
}

// Invalidate removes a cache entry, e.g. after a template update.
func (c *TemplateCache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.ll.Remove(el)
		delete(c.items, key)
	}
}

// Len reports the current number of cached entries, for tests/metrics.
func (c *TemplateCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
