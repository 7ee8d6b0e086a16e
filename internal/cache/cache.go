// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DefaultCleanupInterval is how often the TTL cache sweeps expired entries.
const DefaultCleanupInterval = 5 * time.Minute

// Entry is a cached value and its expiry.
type Entry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	TotalKeys   int64     `json:"total_keys"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// Cache is a concurrency-safe map with per-entry expiry and a background sweeper.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	ttl     time.Duration

	statsMu sync.Mutex
	stats   Stats

	stop      chan struct{}
	closeOnce sync.Once
}

// New creates a TTL cache. Call Close to stop the sweeper.
//
//	c := cache.New(5 * time.Minute)
//	defer c.Close()
//	c.Set(cache.GenerateKey("Summary", args), summary)
func New(ttl time.Duration) *Cache {
	return newWithInterval(ttl, DefaultCleanupInterval)
}

func newWithInterval(ttl, interval time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		ttl:     ttl,
		stats:   Stats{LastCleanup: time.Now()},
		stop:    make(chan struct{}),
	}
	go c.cleanupLoop(interval)
	return c
}

// Get returns the value for key if present and not expired. Expired
// entries are removed on access.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.count(func(s *Stats) { s.Misses++ })
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.mu.Lock()
		// re-check: a concurrent Set may have refreshed the entry
		if cur, still := c.entries[key]; still && time.Now().After(cur.ExpiresAt) {
			delete(c.entries, key)
		}
		n := int64(len(c.entries))
		c.mu.Unlock()
		c.count(func(s *Stats) {
			s.Misses++
			s.Evictions++
			s.TotalKeys = n
		})
		return nil, false
	}

	c.count(func(s *Stats) { s.Hits++ })
	return entry.Data, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key with a specific TTL.
func (c *Cache) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = Entry{Data: value, ExpiresAt: time.Now().Add(ttl)}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.count(func(s *Stats) { s.TotalKeys = n })
}

// Delete removes key. Missing keys are ignored.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.count(func(s *Stats) {
		if ok {
			s.Evictions++
		}
		s.TotalKeys = n
	})
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	dropped := int64(len(c.entries))
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.count(func(s *Stats) {
		s.Evictions += dropped
		s.TotalKeys = 0
	})
}

// GetStats returns a copy of the counters.
func (c *Cache) GetStats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// HitRate returns hits / (hits + misses) as a percentage.
func (c *Cache) HitRate() float64 {
	s := c.GetStats()
	return hitRate(s.Hits, s.Misses)
}

// Close stops the background sweeper. Safe to call more than once.
func (c *Cache) Close() {
	c.closeOnce.Do(func() { close(c.stop) })
}

func (c *Cache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup removes every expired entry.
func (c *Cache) cleanup() {
	now := time.Now()

	c.mu.Lock()
	var removed int64
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	n := int64(len(c.entries))
	c.mu.Unlock()

	c.count(func(s *Stats) {
		s.Evictions += removed
		s.TotalKeys = n
		s.LastCleanup = now
	})
}

func (c *Cache) count(update func(*Stats)) {
	c.statsMu.Lock()
	update(&c.stats)
	c.statsMu.Unlock()
}

func hitRate(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// GenerateKey builds a compact key from a method name and its arguments:
// method + ":" + the first 16 bytes of sha256(json(params)), hex encoded.
// Identical arguments always produce identical keys.
func GenerateKey(method string, params interface{}) string {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, sum[:16])
}
