// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"sync"
	"sync/atomic"

	"github.com/kragraph/kragraph/internal/log"
)

// Config controls L1/L2 sizing. Zero values for the byte/entry limits mean
// "unbounded" for that dimension; L2Dir == "" disables L2 entirely (L1-only
// cache, used by tests).
type Config struct {
	L1MaxEntries     int
	L1MaxBytes       int64
	ProjectSoftBytes int64
	L2Dir            string
	L2Compress       bool
}

// Stats is the counter snapshot Stats() returns.
type Stats struct {
	L1Hits      int64
	L1Misses    int64
	L2Hits      int64
	L2Misses    int64
	Promotions  int64
	Evictions   int64
	L1Entries   int
	L1Bytes     int64
}

// Cache is the hierarchical content-addressed cache: an L1
// in-memory LRU fronting an optional L2 disk layer. A miss in L1 consults
// L2; an L2 hit is promoted to L1.
type Cache struct {
	l1 *l1Store
	l2 *l2Store

	logger log.Logger

	l1Hits, l1Misses   int64
	l2Hits, l2Misses   int64
	promotions         int64

	// inflight deduplicates concurrent builds of the same key.
	inflight sync.Map // string -> *inflightCall
}

type inflightCall struct {
	wg    sync.WaitGroup
	value []byte
	err   error
}

// New constructs a Cache. logger may be nil, in which case log.Nop is used.
func New(cfg Config, logger log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.Nop
	}
	l2, err := newL2Store(cfg.L2Dir, cfg.L2Compress)
	if err != nil {
		return nil, err
	}
	return &Cache{
		l1:     newL1Store(cfg.L1MaxEntries, cfg.L1MaxBytes, cfg.ProjectSoftBytes),
		l2:     l2,
		logger: logger,
	}, nil
}

// Get returns the cached value for key, if present in either layer.
func (c *Cache) Get(key Key) ([]byte, bool) {
	k := key.String()
	if v, ok := c.l1.get(k); ok {
		atomic.AddInt64(&c.l1Hits, 1)
		return v, true
	}
	atomic.AddInt64(&c.l1Misses, 1)

	if c.l2 == nil {
		return nil, false
	}
	if v, ok := c.l2.get(key); ok {
		atomic.AddInt64(&c.l2Hits, 1)
		atomic.AddInt64(&c.promotions, 1)
		c.l1.put(k, v, "") // project unknown at promotion time, charged to the global bucket
		return v, true
	}
	atomic.AddInt64(&c.l2Misses, 1)
	return nil, false
}

// Put inserts value under key, attributed to projectID. L2 write
// failures (disk full, permission) are returned to the caller so the build
// orchestrator can surface CacheDiskFull/CachePermission, but never
// prevent the L1 insert: the cache never crashes the pipeline.
func (c *Cache) Put(key Key, value []byte, projectID string) error {
	c.l1.put(key.String(), value, projectID)
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.put(key, value, key.ParserVersion); err != nil {
		c.logger.Warn("cache.l2.put_failed", "key", key.String(), "err", err)
		return err
	}
	return nil
}

// GetOrLoad resolves key from L1/L2, or invokes load exactly once across
// concurrent callers sharing the same key, caching
// the result under projectID on success.
func (c *Cache) GetOrLoad(key Key, projectID string, load func() ([]byte, error)) ([]byte, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	k := key.String()
	call := &inflightCall{}
	call.wg.Add(1)
	actual, loaded := c.inflight.LoadOrStore(k, call)
	if loaded {
		ic := actual.(*inflightCall)
		ic.wg.Wait()
		return ic.value, false, ic.err
	}

	defer func() {
		c.inflight.Delete(k)
		call.wg.Done()
	}()

	v, err := load()
	if err != nil {
		call.err = err
		return nil, false, err
	}
	call.value = v
	if putErr := c.Put(key, v, projectID); putErr != nil {
		c.logger.Warn("cache.get_or_load.put_failed", "key", k, "err", putErr)
	}
	return v, false, nil
}

// Clear resets both layers; used by tests and by `kragraph reset`-style CLI
// commands.
func (c *Cache) Clear() {
	c.l1.clear()
	if c.l2 != nil {
		c.l2.clear()
	}
}

// Stats returns a snapshot of the hit/miss/eviction counters.
func (c *Cache) Stats() Stats {
	entries, bytes, evictions := c.l1.snapshot()
	return Stats{
		L1Hits:     atomic.LoadInt64(&c.l1Hits),
		L1Misses:   atomic.LoadInt64(&c.l1Misses),
		L2Hits:     atomic.LoadInt64(&c.l2Hits),
		L2Misses:   atomic.LoadInt64(&c.l2Misses),
		Promotions: atomic.LoadInt64(&c.promotions),
		Evictions:  evictions,
		L1Entries:  entries,
		L1Bytes:    bytes,
	}
}
