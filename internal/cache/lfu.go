// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package cache

import (
	"sync"
	"time"
)

// lfuNode is one entry, linked into the list for its access frequency.
type lfuNode struct {
	key       string
	value     interface{}
	freq      int
	expiresAt time.Time
	prev      *lfuNode
	next      *lfuNode
}

// bucket is a circular doubly-linked list of nodes sharing a frequency.
// root.next is the most recently touched node, root.prev the least.
type bucket struct {
	root lfuNode
	size int
}

func newBucket() *bucket {
	b := &bucket{}
	b.root.next = &b.root
	b.root.prev = &b.root
	return b
}

func (b *bucket) pushFront(n *lfuNode) {
	n.prev = &b.root
	n.next = b.root.next
	b.root.next.prev = n
	b.root.next = n
	b.size++
}

func (b *bucket) unlink(n *lfuNode) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
	b.size--
}

func (b *bucket) back() *lfuNode {
	if b.size == 0 {
		return nil
	}
	return b.root.prev
}

// LFU is a bounded cache that evicts the least frequently used entry,
// breaking ties by least recent use. All operations are O(1).
type LFU struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	nodes    map[string]*lfuNode
	buckets  map[int]*bucket
	minFreq  int

	hits      int64
	misses    int64
	evictions int64
}

// NewLFU creates an LFU cache holding at most capacity entries.
func NewLFU(capacity int, ttl time.Duration) *LFU {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LFU{
		capacity: capacity,
		ttl:      ttl,
		nodes:    make(map[string]*lfuNode, capacity),
		buckets:  make(map[int]*bucket),
	}
}

// Get returns the value for key and bumps its frequency.
func (c *LFU) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.nodes[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if time.Now().After(n.expiresAt) {
		c.remove(n)
		c.misses++
		c.evictions++
		return nil, false
	}

	c.touch(n)
	c.hits++
	return n.value, true
}

// Set stores value with the default TTL.
func (c *LFU) Set(key string, value interface{}) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value with a specific TTL, evicting if full.
func (c *LFU) SetWithTTL(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := time.Now().Add(ttl)
	if n, ok := c.nodes[key]; ok {
		n.value = value
		n.expiresAt = expiresAt
		c.touch(n)
		return
	}

	if len(c.nodes) >= c.capacity {
		c.evictOne()
	}

	n := &lfuNode{key: key, value: value, freq: 1, expiresAt: expiresAt}
	c.bucketFor(1).pushFront(n)
	c.nodes[key] = n
	c.minFreq = 1
}

// Delete removes key. Missing keys are ignored.
func (c *LFU) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.nodes[key]; ok {
		c.remove(n)
		c.evictions++
	}
}

// Clear drops every entry.
func (c *LFU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictions += int64(len(c.nodes))
	c.nodes = make(map[string]*lfuNode, c.capacity)
	c.buckets = make(map[int]*bucket)
	c.minFreq = 0
}

// GetStats returns a copy of the counters.
func (c *LFU) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		TotalKeys: int64(len(c.nodes)),
	}
}

// HitRate returns hits / (hits + misses) as a percentage.
func (c *LFU) HitRate() float64 {
	s := c.GetStats()
	return hitRate(s.Hits, s.Misses)
}

// Len returns the number of entries, expired or not.
func (c *LFU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.nodes)
}

// Frequency returns how often key has been touched, 0 if absent.
func (c *LFU) Frequency(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.nodes[key]; ok {
		return n.freq
	}
	return 0
}

// Close is a no-op; the LFU cache expires lazily.
func (c *LFU) Close() {}

// callers must hold c.mu for the helpers below

func (c *LFU) bucketFor(freq int) *bucket {
	b, ok := c.buckets[freq]
	if !ok {
		b = newBucket()
		c.buckets[freq] = b
	}
	return b
}

func (c *LFU) touch(n *lfuNode) {
	old := c.buckets[n.freq]
	old.unlink(n)
	if old.size == 0 {
		delete(c.buckets, n.freq)
		if c.minFreq == n.freq {
			c.minFreq++
		}
	}
	n.freq++
	c.bucketFor(n.freq).pushFront(n)
}

func (c *LFU) remove(n *lfuNode) {
	if b, ok := c.buckets[n.freq]; ok {
		b.unlink(n)
		if b.size == 0 {
			delete(c.buckets, n.freq)
		}
	}
	delete(c.nodes, n.key)
}

func (c *LFU) evictOne() {
	b, ok := c.buckets[c.minFreq]
	if !ok {
		// minFreq can go stale after Delete; fall back to a scan.
		for f, candidate := range c.buckets {
			if !ok || f < c.minFreq {
				b, c.minFreq, ok = candidate, f, true
			}
		}
		if !ok {
			return
		}
	}
	if victim := b.back(); victim != nil {
		c.remove(victim)
		c.evictions++
	}
}
