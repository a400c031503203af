// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
)

func TestCheckReferentialIntegrity_AllowsExternalTargets(t *testing.T) {
	doc := &ir.IRDocument{
		Nodes: []ir.Node{{ID: "func:a"}},
		Edges: []ir.Edge{
			{Kind: ir.EdgeCalls, SourceID: "func:a", TargetID: ir.ExternalNodeID("os.Open")},
		},
	}
	require.Empty(t, doc.CheckReferentialIntegrity())
}

func TestCheckReferentialIntegrity_FlagsDanglingEdge(t *testing.T) {
	doc := &ir.IRDocument{
		Nodes: []ir.Node{{ID: "func:a"}},
		Edges: []ir.Edge{
			{Kind: ir.EdgeCalls, SourceID: "func:a", TargetID: "func:missing"},
		},
	}
	diags := doc.CheckReferentialIntegrity()
	require.Len(t, diags, 1)
	require.Equal(t, "DANGLING_EDGE_TARGET", diags[0].Code)
}

func TestSortedEdges_CanonicalOrder(t *testing.T) {
	doc := &ir.IRDocument{
		Edges: []ir.Edge{
			{Kind: ir.EdgeDFG, TargetID: "b"},
			{Kind: ir.EdgeCalls, TargetID: "z"},
			{Kind: ir.EdgeCalls, TargetID: "a"},
		},
	}
	sorted := doc.SortedEdges()
	require.Equal(t, ir.EdgeCalls, sorted[0].Kind)
	require.Equal(t, "a", sorted[0].TargetID)
	require.Equal(t, ir.EdgeCalls, sorted[1].Kind)
	require.Equal(t, "z", sorted[1].TargetID)
	require.Equal(t, ir.EdgeDFG, sorted[2].Kind)
}

func TestSpanContains(t *testing.T) {
	outer := ir.Span{Start: ir.Position{Line: 1, Column: 0}, End: ir.Position{Line: 10, Column: 0}}
	inner := ir.Span{Start: ir.Position{Line: 2, Column: 0}, End: ir.Position{Line: 3, Column: 0}}
	require.True(t, outer.Contains(inner))
	require.False(t, inner.Contains(outer))
}
