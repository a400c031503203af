// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	return New(backend)
}

func sampleDoc() *ir.IRDocument {
	return &ir.IRDocument{
		FilePath: "a.py",
		Nodes: []ir.Node{
			{ID: "n1", Kind: ir.NodeFunction, FQN: "a.f", Name: "f"},
		},
		Edges: []ir.Edge{
			{Kind: ir.EdgeCalls, SourceID: "n1", TargetID: ir.ExternalNodeID("g")},
		},
	}
}

func TestReplaceSnapshot_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.ReplaceSnapshot(ctx, "repo1", "snap1", []*ir.IRDocument{sampleDoc()}))

	symbols, err := s.Symbols(ctx, "repo1", "snap1")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, "a.f", symbols[0].FQN)

	relations, err := s.Relations(ctx, "repo1", "snap1")
	require.NoError(t, err)
	require.Len(t, relations, 1)
	require.Equal(t, "CALLS", relations[0].Kind)
}

func TestReplaceSnapshot_ReplacesPriorContent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.ReplaceSnapshot(ctx, "repo1", "snap1", []*ir.IRDocument{sampleDoc()}))

	empty := &ir.IRDocument{FilePath: "a.py"}
	require.NoError(t, s.ReplaceSnapshot(ctx, "repo1", "snap1", []*ir.IRDocument{empty}))

	symbols, err := s.Symbols(ctx, "repo1", "snap1")
	require.NoError(t, err)
	require.Empty(t, symbols)
}
