// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	itesting "github.com/kragraph/kragraph/internal/testing"
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/store"
)

func TestWalkSource_SkipsDataDirAndHiddenDirs(t *testing.T) {
	root := t.TempDir()
	dataDir := filepath.Join(root, ".kragraph")
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.MkdirAll(dataDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "b.py"), []byte("y = 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "c.py"), []byte("z = 3\n"), 0o644))

	files, err := walkSource(root, dataDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "a.py", files[0].Path)
}

func TestPersistSnapshot_WritesSymbolRows(t *testing.T) {
	backend := itesting.SetupTestBackend(t)
	docs := []*ir.IRDocument{itesting.FunctionDoc("a.py", "a.f", "n1")}

	require.NoError(t, persistSnapshot(context.Background(), backend, "repo1", defaultSnapshotID, docs))

	symbols, err := store.New(backend).Symbols(context.Background(), "repo1", defaultSnapshotID)
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, "a.f", symbols[0].FQN)
}

func TestParsePlanKind_CaseInsensitive(t *testing.T) {
	kind, err := parsePlanKind("Call-Chain")
	require.NoError(t, err)
	require.Equal(t, "CALL_CHAIN", string(kind))

	_, err = parsePlanKind("bogus")
	require.Error(t, err)
}

func TestParseBudget_Presets(t *testing.T) {
	light, err := parseBudget("LIGHT")
	require.NoError(t, err)
	heavy, err2 := parseBudget("heavy")
	require.NoError(t, err2)
	require.Less(t, light.MaxNodes, heavy.MaxNodes)
}
