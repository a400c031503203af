// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package query_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/query"
)

func sampleDocs() []*ir.IRDocument {
	return []*ir.IRDocument{
		{
			FilePath: "app/main.py",
			Nodes: []ir.Node{
				{ID: "main.py#handle", Kind: ir.NodeFunction, FQN: "app.main.handle", Name: "handle", FilePath: "app/main.py"},
			},
			Edges: []ir.Edge{
				{Kind: ir.EdgeCalls, SourceID: "main.py#handle", TargetID: "app/db.py#query"},
			},
		},
		{
			FilePath: "app/db.py",
			Nodes: []ir.Node{
				{ID: "app/db.py#query", Kind: ir.NodeFunction, FQN: "app.db.query", Name: "query", FilePath: "app/db.py"},
			},
			Edges: []ir.Edge{
				{Kind: ir.EdgeCalls, SourceID: "app/db.py#query", TargetID: "app/db.py#execute"},
			},
		},
		{
			FilePath: "app/db.py",
			Nodes: []ir.Node{
				{ID: "app/db.py#execute", Kind: ir.NodeFunction, FQN: "app.db.execute", Name: "execute", FilePath: "app/db.py"},
			},
		},
	}
}

func TestExecutor_CallChainForward(t *testing.T) {
	g := query.BuildGraph(sampleDocs())
	ex := query.NewExecutor(g, query.NewResultCache(), nil)

	plan, err := query.NewPlan(query.PlanCallChain).
		WithPattern(query.QueryPattern{Pattern: "app.main.handle"}).
		WithSliceDirection(query.SliceForward).
		Build()
	require.NoError(t, err)

	result, err := ex.Execute(context.Background(), plan, "snap1", "")
	require.NoError(t, err)
	require.Equal(t, query.StatusSuccess, result.Status)
	require.Len(t, result.Data, 2)

	byLen := map[int]query.PathResult{}
	for _, p := range result.Data {
		byLen[p.Length] = p
	}
	require.Equal(t, []string{"main.py#handle", "app/db.py#query"}, byLen[1].NodeIDs)
	require.Equal(t, []string{"main.py#handle", "app/db.py#query", "app/db.py#execute"}, byLen[2].NodeIDs)
}

func TestExecutor_UnknownAnchorReturnsEmptySuccess(t *testing.T) {
	g := query.BuildGraph(sampleDocs())
	ex := query.NewExecutor(g, nil, nil)

	plan, err := query.NewPlan(query.PlanCallChain).
		WithPattern(query.QueryPattern{Pattern: "does.not.exist"}).
		Build()
	require.NoError(t, err)

	result, err := ex.Execute(context.Background(), plan, "snap1", "")
	require.NoError(t, err)
	require.Equal(t, query.StatusSuccess, result.Status)
	require.Empty(t, result.Data)
}

func TestExecutor_BudgetCapsPaths(t *testing.T) {
	g := query.BuildGraph(sampleDocs())
	ex := query.NewExecutor(g, nil, nil)

	plan, err := query.NewPlan(query.PlanCallChain).
		WithPattern(query.QueryPattern{Pattern: "app.main.handle"}).
		WithBudget(query.Budget{MaxDepth: 5, MaxNodes: 200, MaxPaths: 1}).
		Build()
	require.NoError(t, err)

	result, err := ex.Execute(context.Background(), plan, "snap1", "")
	require.NoError(t, err)
	require.Equal(t, query.StatusPartial, result.Status)
	require.Len(t, result.Data, 1)
}

func TestExecutor_ResultsAreCached(t *testing.T) {
	g := query.BuildGraph(sampleDocs())
	cache := query.NewResultCache()
	ex := query.NewExecutor(g, cache, nil)

	plan, err := query.NewPlan(query.PlanCallChain).
		WithPattern(query.QueryPattern{Pattern: "app.main.handle"}).
		Build()
	require.NoError(t, err)

	first, err := ex.Execute(context.Background(), plan, "snap1", "")
	require.NoError(t, err)
	second, ok := cache.Get(query.CacheKey{SnapshotID: "snap1", PlanHash: plan.Hash()})
	require.True(t, ok)
	require.Same(t, first, second)
}
