// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
)

func moduleDoc(filePath, moduleFQN string, extra ...ir.Node) *ir.IRDocument {
	nodes := append([]ir.Node{{ID: "mod:" + filePath, Kind: ir.NodeModule, FQN: moduleFQN, FilePath: filePath}}, extra...)
	return &ir.IRDocument{FilePath: filePath, Language: "python", Nodes: nodes}
}

func TestResolvePlainImportResolvesToOwningFile(t *testing.T) {
	a := moduleDoc("pkg/a.py", "pkg.a",
		ir.Node{ID: "func:a.helper", Kind: ir.NodeFunction, FQN: "pkg.a.helper"},
	)
	b := moduleDoc("pkg/b.py", "pkg.b",
		ir.Node{ID: "imp:1", Kind: ir.NodeImport, FQN: "import pkg.a", Attrs: map[string]any{"raw": "import pkg.a"}},
	)

	r := New(nil, 0)
	gc, err := r.Resolve(context.Background(), "repo1", "snap1", []*ir.IRDocument{a, b})
	require.NoError(t, err)

	assert.Contains(t, gc.FileDependencies["pkg/b.py"], "pkg/a.py")
	assert.Equal(t, 1, gc.Stats.TotalResolvedImports)
	assert.Empty(t, gc.Unresolved)
}

func TestResolveFromImportResolvesSymbol(t *testing.T) {
	a := moduleDoc("pkg/a.py", "pkg.a",
		ir.Node{ID: "func:a.helper", Kind: ir.NodeFunction, FQN: "pkg.a.helper"},
	)
	b := moduleDoc("pkg/b.py", "pkg.b",
		ir.Node{ID: "imp:1", Kind: ir.NodeImport, FQN: "", Attrs: map[string]any{"raw": "from pkg.a import helper"}},
	)

	r := New(nil, 0)
	gc, err := r.Resolve(context.Background(), "repo1", "snap1", []*ir.IRDocument{a, b})
	require.NoError(t, err)

	assert.Contains(t, gc.FileDependencies["pkg/b.py"], "pkg/a.py")
}

func TestResolveUnknownModuleRecordsUnresolved(t *testing.T) {
	b := moduleDoc("pkg/b.py", "pkg.b",
		ir.Node{ID: "imp:1", Kind: ir.NodeImport, Attrs: map[string]any{"raw": "import numpy"}},
	)

	r := New(nil, 0)
	gc, err := r.Resolve(context.Background(), "repo1", "snap1", []*ir.IRDocument{b})
	require.NoError(t, err)

	require.Len(t, gc.Unresolved, 1)
	assert.Equal(t, ir.UnresolvedExternal, gc.Unresolved[0].Category)
}

func TestResolveIsPureGivenSameInputSet(t *testing.T) {
	a := moduleDoc("pkg/a.py", "pkg.a")
	b := moduleDoc("pkg/b.py", "pkg.b",
		ir.Node{ID: "imp:1", Kind: ir.NodeImport, Attrs: map[string]any{"raw": "import pkg.a"}},
	)
	docs := []*ir.IRDocument{a, b}

	r := New(nil, 0)
	gc1, err := r.Resolve(context.Background(), "repo1", "snap1", docs)
	require.NoError(t, err)
	gc2, err := r.Resolve(context.Background(), "repo1", "snap1", docs)
	require.NoError(t, err)

	assert.Equal(t, gc1.TopologicalOrder, gc2.TopologicalOrder)
	assert.Equal(t, gc1.FileDependencies, gc2.FileDependencies)
}

func TestTopologicalOrderBreaksTiesByPath(t *testing.T) {
	order := topologicalOrder(map[string][]string{}, []string{"z.py", "a.py", "m.py"})
	assert.Equal(t, []string{"a.py", "m.py", "z.py"}, order)
}

func TestTopologicalOrderRespectsDependency(t *testing.T) {
	deps := map[string][]string{"b.py": {"a.py"}}
	order := topologicalOrder(deps, []string{"a.py", "b.py"})
	assert.Equal(t, []string{"a.py", "b.py"}, order)
}
