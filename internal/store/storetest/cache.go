package storetest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Cache is an in-memory utils.Cache. Values round-trip through JSON like
// they do in Redis; TTLs are ignored.
type Cache struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{data: map[string][]byte{}}
}

// Get implements utils.Cache.
func (c *Cache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

// Set implements utils.Cache.
func (c *Cache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

// Delete implements utils.Cache.
func (c *Cache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

// DeletePrefix implements utils.Cache.
func (c *Cache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			delete(c.data, k)
		}
	}
	return nil
}

// Has reports whether key is cached.
func (c *Cache) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
