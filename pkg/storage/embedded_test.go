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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *EmbeddedBackend {
	t.Helper()
	b, err := NewEmbeddedBackend(EmbeddedConfig{DataDir: t.TempDir(), ProjectID: "proj"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestEmbeddedBackend_PutQueryDelete(t *testing.T) {
	ctx := context.Background()
	b := setupTestStorage(t)

	require.NoError(t, b.Put(ctx, "symbols", "s1", Row{"fqn": "pkg.Foo", "repo_id": "r1"}))
	require.NoError(t, b.Put(ctx, "symbols", "s2", Row{"fqn": "pkg.Bar", "repo_id": "r1"}))

	res, err := b.Query(ctx, "symbols", MatchAll)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)

	res, err = b.Query(ctx, "symbols", func(r Row) bool { return r["fqn"] == "pkg.Foo" })
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	require.NoError(t, b.Delete(ctx, "symbols", "s1"))
	res, err = b.Query(ctx, "symbols", MatchAll)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

func TestEmbeddedBackend_TransactAtomicity(t *testing.T) {
	ctx := context.Background()
	b := setupTestStorage(t)
	require.NoError(t, b.Put(ctx, "relations", "x1", Row{"kind": "CALLS"}))

	err := b.Transact(ctx, func(tx Tx) error {
		require.NoError(t, tx.Delete("relations", "x1"))
		require.NoError(t, tx.Put("relations", "x2", Row{"kind": "CALLS"}))
		return errBoom
	})
	require.Error(t, err)

	res, qerr := b.Query(ctx, "relations", MatchAll)
	require.NoError(t, qerr)
	require.Len(t, res.Rows, 1, "failed transaction must not mutate state")
}

func TestEmbeddedBackend_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir())

	b1, err := NewEmbeddedBackend(EmbeddedConfig{DataDir: dir, ProjectID: "proj"})
	require.NoError(t, err)
	require.NoError(t, b1.Put(ctx, "symbols", "s1", Row{"fqn": "pkg.Foo"}))
	require.NoError(t, b1.Close())

	b2, err := NewEmbeddedBackend(EmbeddedConfig{DataDir: dir, ProjectID: "proj"})
	require.NoError(t, err)
	defer b2.Close()

	res, err := b2.Query(ctx, "symbols", MatchAll)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

var errBoom = &testError{"boom"}
