// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestLFU_SetGet(t *testing.T) {
	c := NewLFU(3, time.Minute)

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v, want 1, true", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("Get(b) returned ok for missing key")
	}
}

func TestLFU_FrequencyCounting(t *testing.T) {
	c := NewLFU(3, time.Minute)
	c.Set("a", 1)
	if got := c.Frequency("a"); got != 1 {
		t.Errorf("Frequency after Set = %d, want 1", got)
	}

	c.Get("a")
	c.Get("a")
	if got := c.Frequency("a"); got != 3 {
		t.Errorf("Frequency after two reads = %d, want 3", got)
	}

	c.Set("a", 2)
	if got := c.Frequency("a"); got != 4 {
		t.Errorf("Frequency after overwrite = %d, want 4", got)
	}
	if got := c.Frequency("missing"); got != 0 {
		t.Errorf("Frequency(missing) = %d, want 0", got)
	}
}

func TestLFU_EvictsLeastFrequent(t *testing.T) {
	c := NewLFU(3, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Get("a")
	c.Get("a")
	c.Get("c")

	c.Set("d", 4) // b has the lowest frequency

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	for _, k := range []string{"a", "c", "d"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s should still be cached", k)
		}
	}
	if got := c.GetStats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestLFU_TieBreaksByRecency(t *testing.T) {
	c := NewLFU(2, time.Minute)
	c.Set("old", 1)
	c.Set("new", 2)

	c.Set("x", 3)

	if _, ok := c.Get("old"); ok {
		t.Error("least recent entry among equals should be evicted")
	}
	if _, ok := c.Get("new"); !ok {
		t.Error("more recent entry should survive")
	}
}

func TestLFU_EvictAfterDelete(t *testing.T) {
	c := NewLFU(2, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Set("b", 2)
	c.Delete("b")
	c.Set("c", 3)
	c.Get("c")
	c.Get("c")
	c.Set("d", 4)

	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("most frequent entry c was evicted")
	}
}

func TestLFU_Expiry(t *testing.T) {
	c := NewLFU(10, 40*time.Millisecond)
	c.Set("k", 1)
	c.SetWithTTL("long", 2, time.Hour)

	time.Sleep(70 * time.Millisecond)

	if _, ok := c.Get("k"); ok {
		t.Error("expired entry returned")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("entry with explicit TTL should survive")
	}
	s := c.GetStats()
	if s.Misses != 1 || s.Hits != 1 || s.Evictions != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 eviction", s)
	}
}

func TestLFU_DeleteClearLen(t *testing.T) {
	c := NewLFU(10, time.Minute)
	for i := 0; i < 4; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4", c.Len())
	}

	c.Delete("k1")
	c.Delete("nope")
	if c.Len() != 3 {
		t.Errorf("Len after Delete = %d, want 3", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", c.Len())
	}
	if got := c.GetStats().Evictions; got != 4 {
		t.Errorf("Evictions = %d, want 4", got)
	}

	c.Set("after", 1)
	if _, ok := c.Get("after"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestLFU_Defaults(t *testing.T) {
	c := NewLFU(0, 0)
	if c.capacity != 1000 || c.ttl != 5*time.Minute {
		t.Errorf("defaults = %d, %v, want 1000, 5m", c.capacity, c.ttl)
	}
}

func TestLFU_HitRate(t *testing.T) {
	c := NewLFU(5, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	if got := c.HitRate(); got != 75 {
		t.Errorf("HitRate() = %v, want 75", got)
	}
}

func TestLFU_CapacityNeverExceeded(t *testing.T) {
	c := NewLFU(50, time.Minute)
	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("k%d", i)
		c.Set(key, i)
		if i%3 == 0 {
			c.Get(key)
		}
	}
	if c.Len() != 50 {
		t.Errorf("Len = %d, want 50", c.Len())
	}
}

func TestLFU_Concurrent(t *testing.T) {
	c := NewLFU(64, time.Minute)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 300; i++ {
				key := fmt.Sprintf("k%d", (g*i)%100)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 64 {
		t.Errorf("Len = %d exceeds capacity", c.Len())
	}
}
