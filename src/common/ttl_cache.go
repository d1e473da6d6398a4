package common

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"
)

// TTLCacheSweeper is the function name of the sweeper goroutine the
// expirable LRU starts for every cache. golang-lru v2.0.7 offers no way to
// stop it, so it outlives the cache; leak checks must ignore it.
const TTLCacheSweeper = "github.com/hashicorp/golang-lru/v2/expirable.NewLRU[...].func1"

// TTLCache is a size-bounded map whose entries expire a fixed duration after
// they were last written. Expired entries are invisible to lookups and get
// removed by the background sweeper of the underlying expirable LRU. Removal,
// whatever its cause, only produces a debug log line.
//
// Every TTLCache owns one sweeper goroutine for the life of the process (see
// TTLCacheSweeper). Create caches once per component, not per request.
type TTLCache[K comparable, V any] struct {
	name   string
	ttl    time.Duration
	lru    *expirable.LRU[K, V]
	logger *logrus.Entry
}

// NewTTLCache creates a TTLCache holding at most size entries (0 means no
// bound). A ttl <= 0 disables expiry.
func NewTTLCache[K comparable, V any](name string, size int, ttl time.Duration, logger *logrus.Entry) *TTLCache[K, V] {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	c := &TTLCache[K, V]{
		name:   name,
		ttl:    ttl,
		logger: logger,
	}
	c.lru = expirable.NewLRU[K, V](size, c.onEvict, ttl)

	return c
}

// onEvict runs with the LRU lock held and must not call back into the cache.
func (c *TTLCache[K, V]) onEvict(key K, _ V) {
	c.logger.WithFields(logrus.Fields{
		"cache": c.name,
		"key":   key,
	}).Debug("Evicted")
}

// Add inserts or replaces a value and restarts its expiry clock.
func (c *TTLCache[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

// Get returns the value under key if it is present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Peek is Get without touching the recency order.
func (c *TTLCache[K, V]) Peek(key K) (V, bool) {
	return c.lru.Peek(key)
}

// Contains reports whether a live entry exists under key.
func (c *TTLCache[K, V]) Contains(key K) bool {
	_, ok := c.lru.Peek(key)
	return ok
}

// Remove deletes key from the cache.
func (c *TTLCache[K, V]) Remove(key K) bool {
	return c.lru.Remove(key)
}

// Len returns the number of entries, including expired entries the sweeper
// has not collected yet.
func (c *TTLCache[K, V]) Len() int {
	return c.lru.Len()
}

// TTL returns the configured time to live.
func (c *TTLCache[K, V]) TTL() time.Duration {
	return c.ttl
}
