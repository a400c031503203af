// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package cfg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/cfg"
	"github.com/kragraph/kragraph/pkg/ir"
)

func TestBuild_LinearBlock(t *testing.T) {
	stmts := map[string]*ir.Statement{
		"f#stmt1": {ID: "f#stmt1", Kind: ir.StmtPlain},
		"f#stmt2": {ID: "f#stmt2", Kind: ir.StmtReturn},
	}
	order := []string{"f#stmt1", "f#stmt2"}

	c := cfg.Build("f", stmts, order)
	require.False(t, c.Partial)
	require.Contains(t, c.Blocks, c.Entry)
	require.Contains(t, c.Blocks, c.Exit)

	var sawReturnEdge bool
	for _, e := range c.Edges {
		if e.Type == ir.CFGReturn {
			sawReturnEdge = true
		}
	}
	require.True(t, sawReturnEdge)
}

func TestBuild_BranchProducesJoin(t *testing.T) {
	stmts := map[string]*ir.Statement{
		"f#stmt1": {ID: "f#stmt1", Kind: ir.StmtBranch},
	}
	order := []string{"f#stmt1"}

	c := cfg.Build("f", stmts, order)
	require.False(t, c.Partial)

	var trueEdges, falseEdges int
	for _, e := range c.Edges {
		switch e.Type {
		case ir.CFGTrue:
			trueEdges++
		case ir.CFGFalse:
			falseEdges++
		}
	}
	require.Equal(t, 1, trueEdges)
	require.Equal(t, 1, falseEdges)
}

func TestBuild_LoopHasBackEdge(t *testing.T) {
	stmts := map[string]*ir.Statement{
		"f#stmt1": {ID: "f#stmt1", Kind: ir.StmtLoopHeader},
	}
	order := []string{"f#stmt1"}

	c := cfg.Build("f", stmts, order)
	require.False(t, c.Partial)

	var sawBackEdge bool
	for _, e := range c.Edges {
		if e.Type == ir.CFGLoopBack {
			sawBackEdge = true
		}
	}
	require.True(t, sawBackEdge)
}

func TestBuild_EmptyFunctionIsEntryToExit(t *testing.T) {
	c := cfg.Build("f", map[string]*ir.Statement{}, nil)
	require.False(t, c.Partial)
	require.Len(t, c.Edges, 1)
	require.Equal(t, ir.CFGUnconditional, c.Edges[0].Type)
}

func TestBuild_WellFormedInvariant(t *testing.T) {
	stmts := map[string]*ir.Statement{
		"f#stmt1": {ID: "f#stmt1", Kind: ir.StmtBranch},
		"f#stmt2": {ID: "f#stmt2", Kind: ir.StmtReturn},
	}
	order := []string{"f#stmt1", "f#stmt2"}
	c := cfg.Build("f", stmts, order)

	for id, b := range c.Blocks {
		if id != c.Entry {
			require.NotEmptyf(t, b.Predecessors, "block %s missing predecessor", id)
		}
		if id != c.Exit {
			require.NotEmptyf(t, b.Successors, "block %s missing successor", id)
		}
	}
}
