// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
rules:
  - id: sqli-cursor-execute
    kind: sink
    pattern: "sqlite3.cursor:execute"
    severity: high
    cwe: CWE-89
    language: python
    tier: 1
    args:
      - position: 0
        tainted: true
  - id: sqli-any-execute
    kind: sink
    pattern: "*:execute"
    severity: medium
    cwe: CWE-89
    language: python
    tier: 3
  - id: flask-request-source
    kind: source
    pattern: "flask.request:args"
    severity: high
    language: python
    tier: 2
`

func TestCompileCatalogParsesRules(t *testing.T) {
	res, err := CompileCatalog([]byte(sampleCatalog), "rules.yaml", nil)
	require.NoError(t, err)
	assert.Len(t, res.Active, 2) // the wildcard sink rule subsumes the narrower one and is dropped
	assert.Len(t, res.SubsumedRules, 1)
	assert.Equal(t, "sqli-any-execute", res.SubsumedRules[0].ID)
}

func TestSubsumptionExactDominatedByWildcard(t *testing.T) {
	specific := Pattern{Kind: PatternCall, BaseType: "sqlite3.cursor", Member: "execute"}
	wildcard := Pattern{Kind: PatternCall, BaseType: "*", Member: "execute"}
	assert.True(t, subsumes(wildcard, specific))
	assert.False(t, subsumes(specific, wildcard))
}

func TestSubsumptionPrefixShapes(t *testing.T) {
	broad := Pattern{Kind: PatternCall, BaseType: "subprocess*", Member: "*"}
	narrow := Pattern{Kind: PatternCall, BaseType: "subprocess.popen", Member: "communicate"}
	assert.True(t, subsumes(broad, narrow))
}

func TestSubsumptionUnrelatedPatternsNeitherSubsumes(t *testing.T) {
	a := Pattern{Kind: PatternCall, BaseType: "os", Member: "system"}
	b := Pattern{Kind: PatternCall, BaseType: "sqlite3.cursor", Member: "execute"}
	assert.False(t, subsumes(a, b))
	assert.False(t, subsumes(b, a))
}

func TestMultiIndexExactAndWildcardLookup(t *testing.T) {
	idx := NewMultiIndex()
	idx.Add(&CompiledRule{ID: "r1", Pattern: Pattern{Kind: PatternCall, BaseType: "sqlite3.cursor", Member: "execute"}})
	idx.Add(&CompiledRule{ID: "r2", Pattern: Pattern{Kind: PatternCall, BaseType: "os", Member: "popen*"}})
	idx.Add(&CompiledRule{ID: "r3", Pattern: Pattern{Kind: PatternCall, BaseType: "*", Member: "*exec*"}})

	exact := idx.QueryExactTypeCall("sqlite3.cursor", "execute")
	require.Len(t, exact, 1)
	assert.Equal(t, "r1", exact[0].ID)

	candidates := idx.Candidates("popen_wait")
	var ids []string
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, "r2")

	execCandidates := idx.Candidates("os_exec_helper")
	ids = nil
	for _, c := range execCandidates {
		ids = append(ids, c.ID)
	}
	assert.Contains(t, ids, "r3")
}

func TestPrefixAndSuffixTrie(t *testing.T) {
	pt := newPrefixTrie()
	pt.add("rule1", "subprocess")
	assert.Contains(t, pt.search("subprocess.popen"), "rule1")
	assert.NotContains(t, pt.search("os.system"), "rule1")

	st := newSuffixTrie()
	st.add("rule2", ".cursor")
	assert.Contains(t, st.search("sqlite3.cursor"), "rule2")
	assert.NotContains(t, st.search("sqlite3.connection"), "rule2")
}

func TestMatchGlob(t *testing.T) {
	assert.True(t, matchGlob("subprocess*", "subprocess.popen"))
	assert.True(t, matchGlob("*.cursor", "sqlite3.cursor"))
	assert.True(t, matchGlob("*exec*", "os_exec_helper"))
	assert.False(t, matchGlob("*.cursor", "sqlite3.connection"))
}

func TestCompilerWithoutCacheCompilesUnchangedContentToSameHash(t *testing.T) {
	compiler := NewCompiler(nil, nil, nil)
	res1, err := compiler.compileFileCached(FileSource{Path: "a.yaml", Content: []byte(sampleCatalog)})
	require.NoError(t, err)
	res2, err := compiler.compileFileCached(FileSource{Path: "a.yaml", Content: []byte(sampleCatalog)})
	require.NoError(t, err)
	assert.Equal(t, res1.ContentHash, res2.ContentHash)
}

func TestReadCatalogDirSortsAndFiltersYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte("rules: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), []byte("rules: []\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))

	sources, err := ReadCatalogDir(dir)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, filepath.Join(dir, "a.yml"), sources[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.yaml"), sources[1].Path)
}

func TestSourcesHashChangesWithContent(t *testing.T) {
	a := []FileSource{{Path: "a.yaml", Content: []byte("rules: []")}}
	b := []FileSource{{Path: "a.yaml", Content: []byte("rules: [x]")}}
	assert.NotEqual(t, SourcesHash(a), SourcesHash(b))
	assert.Equal(t, SourcesHash(a), SourcesHash(a))
}
