// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

package cache

import (
	"time"

	"github.com/tomtom215/trafficlens/internal/config"
)

// Cacher is the surface the analytics service depends on. Both the TTL
// cache and the LFU cache satisfy it.
type Cacher interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{})
	SetWithTTL(key string, value interface{}, ttl time.Duration)
	Delete(key string)
	Clear()
	GetStats() Stats
	HitRate() float64
	Close()
}

// Type selects a cache implementation.
type Type string

const (
	TypeTTL Type = "ttl"
	TypeLFU Type = "lfu"
)

// NewCacher builds the cache named by cfg.Type. Unknown types fall back
// to the TTL cache.
func NewCacher(cfg config.CacheConfig) Cacher {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	if Type(cfg.Type) == TypeLFU {
		return NewLFU(cfg.Capacity, ttl)
	}
	return New(ttl)
}

var (
	_ Cacher = (*Cache)(nil)
	_ Cacher = (*LFU)(nil)
)
