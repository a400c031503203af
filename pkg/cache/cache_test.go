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
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(path string) Key {
	return Key{FilePath: path, ContentHash: "h-" + path, ParserVersion: "parser-v1"}
}

func TestCacheL1HitAfterPut(t *testing.T) {
	c, err := New(Config{L1MaxEntries: 100}, nil)
	require.NoError(t, err)

	k := testKey("a.py")
	require.NoError(t, c.Put(k, []byte("payload"), "proj1"))

	v, ok := c.Get(k)
	require.True(t, ok)
	assert.Equal(t, "payload", string(v))
	assert.Equal(t, int64(1), c.Stats().L1Hits)
}

func TestCacheMissUnknownKey(t *testing.T) {
	c, err := New(Config{}, nil)
	require.NoError(t, err)

	_, ok := c.Get(testKey("missing.py"))
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().L1Misses)
}

func TestCacheL2PromotesToL1(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{L2Dir: filepath.Join(dir, "l2")}, nil)
	require.NoError(t, err)

	k := testKey("b.py")
	require.NoError(t, c.Put(k, []byte("from-disk"), "proj1"))

	// Open a second cache over the same disk directory to simulate a
	// cold-start process whose L1 is empty and whose L2 is populated.
	c2, err := New(Config{L2Dir: filepath.Join(dir, "l2")}, nil)
	require.NoError(t, err)

	v, ok := c2.Get(k)
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(v))
	assert.Equal(t, int64(1), c2.Stats().L2Hits)
	assert.Equal(t, int64(1), c2.Stats().Promotions)

	// Second get on c2 now hits L1.
	_, ok = c2.Get(k)
	require.True(t, ok)
	assert.Equal(t, int64(1), c2.Stats().L1Hits)
}

func TestCacheCorruptL2PayloadIsTreatedAsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{L2Dir: dir}, nil)
	require.NoError(t, err)

	k := testKey("c.py")
	require.NoError(t, c.Put(k, []byte("good"), "proj1"))

	path := c.l2.pathFor(k)
	require.NoError(t, os.WriteFile(path, []byte("not a valid envelope"), 0o644))

	c.l1.clear() // force the lookup to go to disk
	_, ok := c.Get(k)
	assert.False(t, ok)
}

func TestCacheHierarchicalQuotaEvictsNoisyProjectFirst(t *testing.T) {
	c, err := New(Config{ProjectSoftBytes: 10, L1MaxBytes: 1000}, nil)
	require.NoError(t, err)

	require.NoError(t, c.Put(testKey("noisy1.py"), []byte("0123456789"), "noisy"))
	require.NoError(t, c.Put(testKey("noisy2.py"), []byte("0123456789"), "noisy"))

	// noisy's second insert exceeds its 10-byte soft limit; the first
	// entry it owns must be evicted even though the global cache is far
	// from its hard limit.
	_, ok := c.Get(testKey("noisy1.py"))
	assert.False(t, ok)
	_, ok = c.Get(testKey("noisy2.py"))
	assert.True(t, ok)
}

func TestCacheClearRemovesEntries(t *testing.T) {
	c, err := New(Config{}, nil)
	require.NoError(t, err)
	require.NoError(t, c.Put(testKey("d.py"), []byte("x"), "p"))
	c.Clear()
	_, ok := c.Get(testKey("d.py"))
	assert.False(t, ok)
}

func TestCacheGetOrLoadLoadsOnceThenServesFromCache(t *testing.T) {
	c, err := New(Config{}, nil)
	require.NoError(t, err)

	var calls int64
	k := testKey("e.py")

	load := func() ([]byte, error) {
		atomic.AddInt64(&calls, 1)
		return []byte("computed"), nil
	}

	v, _, err := c.GetOrLoad(k, "p", load)
	require.NoError(t, err)
	assert.Equal(t, "computed", string(v))

	v2, fromCache, err := c.GetOrLoad(k, "p", load)
	require.NoError(t, err)
	assert.True(t, fromCache)
	assert.Equal(t, "computed", string(v2))
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}
