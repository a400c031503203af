// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/cache"
	"github.com/kragraph/kragraph/pkg/parser"
	"github.com/kragraph/kragraph/pkg/parser/pyplugin"
	"github.com/kragraph/kragraph/pkg/resolver"
)

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	reg := parser.NewRegistry()
	reg.Register(pyplugin.New(), ".py")
	c, err := cache.New(cache.Config{}, nil)
	require.NoError(t, err)
	return New(reg, c, resolver.New(nil, 0), nil)
}

const sampleSource = `def search_user(user_id):
    cursor = get_cursor()
    cursor.execute("SELECT * FROM users WHERE id=?", [user_id])
    return cursor
`

func TestBuildQuickModeProducesDocuments(t *testing.T) {
	b := newTestBuilder(t)
	files := []FileInput{{Path: "a.py", Content: []byte(sampleSource)}}

	res, err := b.Build(context.Background(), files, Config{RepoID: "repo1", SemanticIRMode: ModeQuick})
	require.NoError(t, err)

	outcome, ok := res.IRDocuments["a.py"]
	require.True(t, ok)
	require.NoError(t, outcome.Err)
	assert.NotEmpty(t, outcome.Doc.Nodes)
	assert.Empty(t, outcome.Doc.Functions) // quick mode skips CFG/SSA
}

func TestBuildFullModeProducesSSA(t *testing.T) {
	b := newTestBuilder(t)
	files := []FileInput{{Path: "a.py", Content: []byte(sampleSource)}}

	res, err := b.Build(context.Background(), files, Config{RepoID: "repo1", SemanticIRMode: ModeFull})
	require.NoError(t, err)

	outcome := res.IRDocuments["a.py"]
	require.NoError(t, outcome.Err)
	require.NotEmpty(t, outcome.Doc.Functions)
	for _, fn := range outcome.Doc.Functions {
		require.NotNil(t, fn.CFG)
		require.NotNil(t, fn.SSA)
	}
}

func TestBuildIsIdempotentAndCacheHitsOnSecondRun(t *testing.T) {
	b := newTestBuilder(t)
	files := []FileInput{{Path: "a.py", Content: []byte(sampleSource)}}
	cfg := Config{RepoID: "repo1", SemanticIRMode: ModeQuick}

	res1, err := b.Build(context.Background(), files, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0, res1.CacheHits)

	res2, err := b.Build(context.Background(), files, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res2.CacheHits)
	assert.Equal(t, 0, res2.CacheMisses)

	assert.Equal(t, res1.IRDocuments["a.py"].Doc.Nodes, res2.IRDocuments["a.py"].Doc.Nodes)
}

func TestBuildCrossFileImportResolves(t *testing.T) {
	b := newTestBuilder(t)
	files := []FileInput{
		{Path: "pkg/a.py", Content: []byte("def helper():\n    return 1\n")},
		{Path: "pkg/b.py", Content: []byte("from pkg.a import helper\n")},
	}

	res, err := b.Build(context.Background(), files, Config{RepoID: "repo1", SemanticIRMode: ModeQuick})
	require.NoError(t, err)
	require.NotNil(t, res.GlobalContext)
	assert.Contains(t, res.GlobalContext.FileDependencies["pkg/b.py"], "pkg/a.py")
}

func TestBuildUnsupportedExtensionBecomesPerFileDiagnostic(t *testing.T) {
	b := newTestBuilder(t)
	files := []FileInput{{Path: "readme.txt", Content: []byte("hello")}}

	res, err := b.Build(context.Background(), files, Config{RepoID: "repo1"})
	require.NoError(t, err)
	outcome := res.IRDocuments["readme.txt"]
	assert.Error(t, outcome.Err)
}
