// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/query"
	"github.com/kragraph/kragraph/pkg/taint/engine"
	"github.com/kragraph/kragraph/pkg/taint/rules"
)

func flowDocs() []*ir.IRDocument {
	return []*ir.IRDocument{{
		FilePath: "app.py",
		Nodes: []ir.Node{
			{ID: "app.py#source_fn", Kind: ir.NodeFunction, FQN: "app.source_fn", Name: "source_fn", FilePath: "app.py"},
			{ID: "app.py#sanitize_fn", Kind: ir.NodeFunction, FQN: "app.sanitize_fn", Name: "sanitize_fn", FilePath: "app.py"},
			{ID: "app.py#sink_fn", Kind: ir.NodeFunction, FQN: "app.sink_fn", Name: "sink_fn", FilePath: "app.py"},
		},
		Edges: []ir.Edge{
			{Kind: ir.EdgeDFG, SourceID: "app.py#source_fn", TargetID: "app.py#sanitize_fn"},
			{Kind: ir.EdgeDFG, SourceID: "app.py#sanitize_fn", TargetID: "app.py#sink_fn"},
		},
	}}
}

func sourceAtom() engine.DetectedAtom {
	return engine.DetectedAtom{
		Rule:       &rules.CompiledRule{ID: "src", Kind: rules.KindSource},
		Expression: ir.Expression{ID: "e1", NodeID: "app.py#source_fn", Kind: "call", Name: "request_input"},
		Score:      0.9,
	}
}

func sinkAtom() engine.DetectedAtom {
	return engine.DetectedAtom{
		Rule:       &rules.CompiledRule{ID: "sink", Kind: rules.KindSink},
		Expression: ir.Expression{ID: "e2", NodeID: "app.py#sink_fn", Kind: "call", Name: "execute"},
		Score:      0.9,
	}
}

func sanitizerAtom() engine.DetectedAtom {
	return engine.DetectedAtom{
		Rule:       &rules.CompiledRule{ID: "san", Kind: rules.KindSanitizer},
		Expression: ir.Expression{ID: "e3", NodeID: "app.py#sanitize_fn", Kind: "call", Name: "escape"},
		Score:      0.9,
	}
}

func TestFindProofs_DirectFlowIsReported(t *testing.T) {
	g := query.BuildGraph(flowDocs())
	ex := query.NewExecutor(g, nil, nil)
	fa := engine.NewFlowAnalyzer(g, ex)

	proofs, err := fa.FindProofs(context.Background(), []engine.DetectedAtom{sourceAtom(), sinkAtom()}, "snap1", "rs1", engine.Policy{ID: "default", Weight: 1.0})
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	require.Equal(t, "src", proofs[0].Source.Rule.ID)
	require.Equal(t, "sink", proofs[0].Sink.Rule.ID)
	require.Greater(t, proofs[0].Confidence, 0.0)
}

// interprocDocs models `q = build_query(a); execute(q)`: the source value
// enters build_query through a parameter and returns to the call site that
// feeds the sink, so the only source-to-sink path crosses ARG_TO_PARAM and
// RETURN_TO_CALLSITE edges.
func interprocDocs() []*ir.IRDocument {
	return []*ir.IRDocument{{
		FilePath: "app.py",
		Nodes: []ir.Node{
			{ID: "app.py#caller", Kind: ir.NodeFunction, FQN: "app.caller", Name: "caller", FilePath: "app.py"},
			{ID: "app.py#build_query", Kind: ir.NodeFunction, FQN: "app.build_query", Name: "build_query", FilePath: "app.py"},
			{ID: "app.py#build_query.a", Kind: ir.NodeParameter, FQN: "app.build_query.a", Name: "a", FilePath: "app.py"},
			{ID: "app.py#sink_fn", Kind: ir.NodeFunction, FQN: "app.sink_fn", Name: "sink_fn", FilePath: "app.py"},
		},
		Edges: []ir.Edge{
			{Kind: ir.EdgeCalls, SourceID: "app.py#caller", TargetID: "app.py#build_query"},
			{Kind: ir.EdgeContains, SourceID: "app.py#build_query", TargetID: "app.py#build_query.a"},
			{Kind: ir.EdgeDFG, SourceID: "app.py#build_query.a", TargetID: "app.py#build_query"},
			{Kind: ir.EdgeDFG, SourceID: "app.py#caller", TargetID: "app.py#sink_fn"},
		},
	}}
}

func TestFindProofs_CrossesInterproceduralEdges(t *testing.T) {
	docs := interprocDocs()
	g := query.BuildGraph(docs)
	g.AddEdges(engine.MaterializeInterprocEdges(g, docs))
	ex := query.NewExecutor(g, nil, nil)
	fa := engine.NewFlowAnalyzer(g, ex)

	atoms := []engine.DetectedAtom{
		{
			Rule:       &rules.CompiledRule{ID: "src", Kind: rules.KindSource},
			Expression: ir.Expression{ID: "e1", NodeID: "app.py#build_query.a", Kind: "call", Name: "get_user_input"},
			Score:      0.9,
		},
		{
			Rule:       &rules.CompiledRule{ID: "sink", Kind: rules.KindSink},
			Expression: ir.Expression{ID: "e2", NodeID: "app.py#sink_fn", Kind: "call", Name: "execute"},
			Score:      0.9,
		},
	}
	proofs, err := fa.FindProofs(context.Background(), atoms, "snap1", "rs1", engine.Policy{ID: "default", Weight: 1.0})
	require.NoError(t, err)
	require.Len(t, proofs, 1)
	require.Contains(t, proofs[0].Path.EdgeKinds, string(ir.EdgeReturnToCallsite))
}

func TestFindProofs_SanitizedPathIsForbidden(t *testing.T) {
	g := query.BuildGraph(flowDocs())
	ex := query.NewExecutor(g, nil, nil)
	fa := engine.NewFlowAnalyzer(g, ex)

	atoms := []engine.DetectedAtom{sourceAtom(), sinkAtom(), sanitizerAtom()}
	proofs, err := fa.FindProofs(context.Background(), atoms, "snap1", "rs1", engine.Policy{ID: "default", Weight: 1.0})
	require.NoError(t, err)
	require.Empty(t, proofs, "a path through a sanitizer's enclosing node must be forbidden")
}
