// Package cache provides a bounded in-memory TTL cache used by the
// HTTP layer for catalog responses. It is capacity-limited: when full,
// the entry closest to expiry is evicted before inserting.
package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type item struct {
	value      []byte
	expiration int64
}

// Cache is a TTL map with a maximum entry count and periodic cleanup.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]item
	ttl        time.Duration
	maxEntries int
	stop       chan struct{}
	stopOnce   sync.Once
}

// New creates a cache and starts its cleanup goroutine.
func New(defaultTTL time.Duration, maxEntries int) *Cache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	c := &Cache{
		items:      make(map[string]item),
		ttl:        defaultTTL,
		maxEntries: maxEntries,
		stop:       make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Set stores raw bytes under key with the default TTL.
func (c *Cache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictLocked()
	}
	c.items[key] = item{
		value:      value,
		expiration: time.Now().Add(c.ttl).UnixNano(),
	}
}

// Get returns the bytes stored under key, if present and unexpired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	it, found := c.items[key]
	if !found || time.Now().UnixNano() > it.expiration {
		return nil, false
	}
	return it.value, true
}

// Delete removes one key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// DeleteByPrefix removes every key starting with prefix. Used to
// invalidate all cached catalog pages after a product write.
func (c *Cache) DeleteByPrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
}

// Marshal serializes value and stores it under key.
func (c *Cache) Marshal(key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.Set(key, data)
	return nil
}

// Unmarshal loads and deserializes the value under key into target.
func (c *Cache) Unmarshal(key string, target interface{}) (bool, error) {
	data, found := c.Get(key)
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return false, err
	}
	return true, nil
}

// Size returns the number of stored entries, expired ones included.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stop terminates the cleanup goroutine.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// evictLocked frees one slot: expired entries first, otherwise the
// entry with the nearest expiration. Caller holds the write lock.
func (c *Cache) evictLocked() {
	now := time.Now().UnixNano()
	var victim string
	var victimExp int64
	for key, it := range c.items {
		if now > it.expiration {
			delete(c.items, key)
			return
		}
		if victim == "" || it.expiration < victimExp {
			victim = key
			victimExp = it.expiration
		}
	}
	if victim != "" {
		delete(c.items, victim)
	}
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now().UnixNano()
			for key, it := range c.items {
				if now > it.expiration {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
