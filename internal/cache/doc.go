// Trafficlens - Road Traffic Count Ingestion and Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trafficlens

// Package cache holds in-process result caches for analytics queries.
//
// Two implementations share the Cacher interface:
//
//   - Cache: a map with per-entry TTL and a background sweeper
//   - LFU: a bounded cache evicting the least frequently used entry
//
// Select one with CACHE_TYPE (ttl or lfu). Keys are built with
// GenerateKey so identical query arguments map to the same entry:
//
//	key := cache.GenerateKey("Profile", args)
//	if v, ok := c.Get(key); ok {
//	    return v.([]aggregate.HourlyAverage), nil
//	}
//
// The analytics service clears the whole cache after every ingest run,
// since any new hourly row can change every derived metric.
package cache
