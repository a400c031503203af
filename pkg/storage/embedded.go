// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// EmbeddedBackend implements Backend as an in-process, mutex-guarded table
// set, optionally persisted to a single JSON snapshot file on disk using
// the same write-to-temp/fsync/rename procedure pkg/cache uses for its L2
// envelopes. It stands in for a production key/value + tabular store; no
// concrete database is in scope here.
type EmbeddedBackend struct {
	mu     sync.RWMutex
	tables map[string]map[string]Row
	path   string
	closed bool
}

// EmbeddedConfig configures the embedded backend.
type EmbeddedConfig struct {
	// DataDir, if non-empty, is where the backend persists its snapshot
	// file (DataDir/store.json, or DataDir/<ProjectID>/store.json when
	// ProjectID is set). Empty means in-memory only.
	DataDir   string
	ProjectID string
}

// NewEmbeddedBackend creates a new embedded backend, loading any existing
// on-disk snapshot under DataDir.
func NewEmbeddedBackend(config EmbeddedConfig) (*EmbeddedBackend, error) {
	b := &EmbeddedBackend{tables: make(map[string]map[string]Row)}

	if config.DataDir == "" {
		return b, nil
	}
	dir := config.DataDir
	if config.ProjectID != "" {
		dir = filepath.Join(dir, config.ProjectID)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	b.path = filepath.Join(dir, "store.json")

	raw, err := os.ReadFile(b.path)
	if err == nil {
		if uerr := json.Unmarshal(raw, &b.tables); uerr != nil {
			return nil, fmt.Errorf("storage: corrupt snapshot %s: %w", b.path, uerr)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("storage: read snapshot: %w", err)
	}
	if b.tables == nil {
		b.tables = make(map[string]map[string]Row)
	}
	return b, nil
}

// Query implements Backend.Query.
func (b *EmbeddedBackend) Query(ctx context.Context, table string, filter Filter) (*QueryResult, error) {
	if filter == nil {
		filter = MatchAll
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil, fmt.Errorf("storage: backend is closed")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	res := &QueryResult{Table: table}
	for _, row := range b.tables[table] {
		if filter(row) {
			res.Rows = append(res.Rows, row)
		}
	}
	return res, nil
}

// Put implements Backend.Put.
func (b *EmbeddedBackend) Put(ctx context.Context, table, key string, row Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("storage: backend is closed")
	}
	b.putLocked(table, key, row)
	return b.flushLocked()
}

// Delete implements Backend.Delete.
func (b *EmbeddedBackend) Delete(ctx context.Context, table, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("storage: backend is closed")
	}
	b.deleteLocked(table, key)
	return b.flushLocked()
}

// Transact implements Backend.Transact: fn runs, without the backend's
// lock held, against a batchTx that records its Put/Delete calls in order;
// they are applied to the live state under the lock only if fn returns
// nil, so a delete-then-bulk-insert snapshot replace never leaves a
// partially-applied table on failure. Since the lock is not held while fn
// runs, fn may read through b (as store.ReplaceSnapshot does).
func (b *EmbeddedBackend) Transact(ctx context.Context, fn func(Tx) error) error {
	tx := &batchTx{base: b.tables, ops: nil}
	if err := fn(tx); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("storage: backend is closed")
	}
	for _, op := range tx.ops {
		if op.delete {
			b.deleteLocked(op.table, op.key)
		} else {
			b.putLocked(op.table, op.key, op.row)
		}
	}
	return b.flushLocked()
}

// Close implements Backend.Close.
func (b *EmbeddedBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return nil
}

func (b *EmbeddedBackend) putLocked(table, key string, row Row) {
	t, ok := b.tables[table]
	if !ok {
		t = make(map[string]Row)
		b.tables[table] = t
	}
	t[key] = row
}

func (b *EmbeddedBackend) deleteLocked(table, key string) {
	if t, ok := b.tables[table]; ok {
		delete(t, key)
	}
}

// flushLocked atomically rewrites the snapshot file, matching pkg/cache's
// write-to-temp/fsync/rename idiom. No-op when the backend is in-memory
// only (Path == "").
func (b *EmbeddedBackend) flushLocked() error {
	if b.path == "" {
		return nil
	}
	raw, err := json.Marshal(b.tables)
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(b.path), fmt.Sprintf(".tmp_%s", contentDigest(raw)))
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("storage: open temp snapshot: %w", err)
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("storage: fsync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("storage: rename temp snapshot: %w", err)
	}
	return nil
}

func contentDigest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

type batchOp struct {
	table  string
	key    string
	row    Row
	delete bool
}

// batchTx buffers Put/Delete calls for Transact, applied only on success.
type batchTx struct {
	base map[string]map[string]Row
	ops  []batchOp
}

func (t *batchTx) Put(table, key string, row Row) error {
	t.ops = append(t.ops, batchOp{table: table, key: key, row: row})
	return nil
}

func (t *batchTx) Delete(table, key string) error {
	t.ops = append(t.ops, batchOp{table: table, key: key, delete: true})
	return nil
}
