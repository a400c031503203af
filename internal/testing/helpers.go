// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package testing provides shared helpers for tests that need a persistence
// backend: a temp-dir embedded backend with automatic cleanup, plus a
// seeding shortcut for snapshot content.
package testing

import (
	"context"
	"testing"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/storage"
	"github.com/kragraph/kragraph/pkg/store"
)

// SetupTestBackend creates an embedded backend rooted in a temp directory
// and registers its cleanup with t.
func SetupTestBackend(t *testing.T) *storage.EmbeddedBackend {
	t.Helper()
	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		DataDir:   t.TempDir(),
		ProjectID: "test",
	})
	if err != nil {
		t.Fatalf("failed to create test backend: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })
	return backend
}

// SeedSnapshot persists docs as (repoID, snapshotID) through the normal
// replace path, failing the test on error.
func SeedSnapshot(t *testing.T, backend storage.Backend, repoID, snapshotID string, docs []*ir.IRDocument) *store.Store {
	t.Helper()
	s := store.New(backend)
	if err := s.ReplaceSnapshot(context.Background(), repoID, snapshotID, docs); err != nil {
		t.Fatalf("failed to seed snapshot: %v", err)
	}
	return s
}

// FunctionDoc builds a one-function IRDocument for path, a minimal but
// well-formed seed for store and resolver tests.
func FunctionDoc(path, fqn, nodeID string) *ir.IRDocument {
	return &ir.IRDocument{
		FilePath: path,
		Nodes: []ir.Node{
			{ID: nodeID, Kind: ir.NodeFunction, FQN: fqn, Name: fqn, FilePath: path},
		},
	}
}
