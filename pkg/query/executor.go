// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"container/heap"
	"context"
	"sort"

	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/pkg/ir"
)

// Executor runs a QueryPlan against a Graph with Dijkstra-style,
// cost-aware, budget-bounded traversal. container/heap is
// stdlib and has no third-party equivalent in the example pack worth
// pulling in for a single priority queue (see DESIGN.md).
type Executor struct {
	graph  *Graph
	cache  *ResultCache
	logger log.Logger
}

// NewExecutor builds an Executor over graph. cache may be nil to disable
// result caching.
func NewExecutor(graph *Graph, cache *ResultCache, logger log.Logger) *Executor {
	if logger == nil {
		logger = log.Nop
	}
	return &Executor{graph: graph, cache: cache, logger: logger}
}

// Execute runs plan against the snapshot graph and returns its paths.
// snapshotID and rulesetHash (empty unless plan.Kind == PlanTaintProof) key
// the result cache alongside plan.Hash().
func (ex *Executor) Execute(ctx context.Context, plan *QueryPlan, snapshotID, rulesetHash string) (*ExecutionResult, error) {
	cacheKey := CacheKey{SnapshotID: snapshotID, PlanHash: plan.Hash()}
	if plan.Kind == PlanTaintProof {
		cacheKey.RulesetHash = rulesetHash
	}
	if ex.cache != nil {
		if cached, ok := ex.cache.Get(cacheKey); ok {
			return cached, nil
		}
	}

	var anchors []string
	for _, p := range plan.Patterns {
		anchors = append(anchors, ex.graph.Resolve(p)...)
	}
	anchors = dedupeIDs(anchors)
	if len(anchors) == 0 {
		return &ExecutionResult{Status: StatusSuccess, BudgetUsed: Budget{}}, nil
	}

	allowed := allowedEdgeKinds(plan)
	direction := plan.SliceDirection
	if direction == "" {
		direction = SliceForward
	}

	paths, budgetUsed, status := ex.traverse(ctx, anchors, direction, allowed, plan.Budget, plan.Intent)

	result := &ExecutionResult{
		Status:     status,
		Data:       paths,
		BudgetUsed: budgetUsed,
	}
	if status == StatusPartial {
		result.TruncatedReason = "budget exhausted before the traversal frontier was empty"
	}

	if ex.cache != nil && status != StatusError {
		ex.cache.Put(cacheKey, result)
	}
	return result, nil
}

// allowedEdgeKinds is plan.EdgeTypes when set, else a plan-kind default.
func allowedEdgeKinds(plan *QueryPlan) map[ir.EdgeKind]bool {
	if len(plan.EdgeTypes) > 0 {
		out := make(map[ir.EdgeKind]bool, len(plan.EdgeTypes))
		for _, k := range plan.EdgeTypes {
			out[ir.EdgeKind(k)] = true
		}
		return out
	}
	switch plan.Kind {
	case PlanCallChain:
		return kindSet(ir.EdgeCalls)
	case PlanDataflow, PlanTaintProof:
		return kindSet(ir.EdgeDFG, ir.EdgeArgToParam, ir.EdgeReturnToCallsite)
	case PlanDataDependency:
		return kindSet(ir.EdgeReads, ir.EdgeWrites, ir.EdgeDFG)
	default: // PlanSlice
		return kindSet(ir.EdgeCalls, ir.EdgeDFG, ir.EdgeContains, ir.EdgeArgToParam, ir.EdgeReturnToCallsite)
	}
}

func kindSet(kinds ...ir.EdgeKind) map[ir.EdgeKind]bool {
	out := make(map[ir.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		out[k] = true
	}
	return out
}

type frontierEntry struct {
	nodeID string
	cost   float64
	depth  int
}

type frontier []*frontierEntry

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].cost < f[j].cost }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x any)         { *f = append(*f, x.(*frontierEntry)) }
func (f *frontier) Pop() any {
	old := *f
	n := len(old)
	item := old[n-1]
	*f = old[:n-1]
	return item
}

type predEdge struct {
	from string
	kind ir.EdgeKind
}

// traverse runs one multi-source Dijkstra pass from anchors, expanding
// only edges in allowed, in the given direction, stopping at budget limits.
func (ex *Executor) traverse(ctx context.Context, anchors []string, direction SliceDirection, allowed map[ir.EdgeKind]bool, budget Budget, intent Intent) ([]PathResult, Budget, Status) {
	dist := make(map[string]float64, budget.MaxNodes)
	depthOf := make(map[string]int, budget.MaxNodes)
	pred := make(map[string]predEdge)
	finalized := make(map[string]bool, budget.MaxNodes)
	anchorSet := make(map[string]bool, len(anchors))

	pq := &frontier{}
	heap.Init(pq)
	for _, a := range anchors {
		dist[a] = 0
		depthOf[a] = 0
		anchorSet[a] = true
		heap.Push(pq, &frontierEntry{nodeID: a, cost: 0, depth: 0})
	}

	status := StatusSuccess
	visited := 0

	for pq.Len() > 0 {
		select {
		case <-ctx.Done():
			status = StatusTimeout
			goto done
		default:
		}

		cur := heap.Pop(pq).(*frontierEntry)
		if finalized[cur.nodeID] {
			continue
		}
		finalized[cur.nodeID] = true
		visited++
		if visited > budget.MaxNodes {
			status = StatusPartial
			goto done
		}
		if cur.depth >= budget.MaxDepth {
			continue
		}

		for _, e := range ex.edgesFrom(cur.nodeID, direction) {
			if !allowed[e.Kind] {
				continue
			}
			next := e.TargetID
			if direction == SliceBackward {
				next = e.SourceID
			}
			if finalized[next] {
				continue
			}
			sourcePath, targetPath := ex.pathsFor(e, direction)
			step := EdgeCost(e, sourcePath, targetPath, intent)
			newCost := cur.cost + step
			if old, ok := dist[next]; !ok || newCost < old {
				dist[next] = newCost
				depthOf[next] = cur.depth + 1
				pred[next] = predEdge{from: cur.nodeID, kind: e.Kind}
				heap.Push(pq, &frontierEntry{nodeID: next, cost: newCost, depth: cur.depth + 1})
			}
		}
	}

done:
	var candidates []string
	for id := range finalized {
		if !anchorSet[id] {
			candidates = append(candidates, id)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if dist[candidates[i]] != dist[candidates[j]] {
			return dist[candidates[i]] < dist[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > budget.MaxPaths {
		candidates = candidates[:budget.MaxPaths]
		if status == StatusSuccess {
			status = StatusPartial
		}
	}

	paths := make([]PathResult, 0, len(candidates))
	for _, id := range candidates {
		paths = append(paths, buildPath(id, pred, dist, depthOf))
	}

	used := Budget{MaxDepth: budget.MaxDepth, MaxNodes: visited, MaxPaths: len(paths)}
	return paths, used, status
}

// edgesFrom returns the adjacency to expand from id for the traversal
// direction: Out for forward, In for backward, both for SliceBoth.
func (ex *Executor) edgesFrom(id string, direction SliceDirection) []ir.Edge {
	switch direction {
	case SliceBackward:
		return ex.graph.In(id)
	case SliceBoth:
		return append(append([]ir.Edge{}, ex.graph.Out(id)...), ex.graph.In(id)...)
	default:
		return ex.graph.Out(id)
	}
}

func (ex *Executor) pathsFor(e ir.Edge, direction SliceDirection) (sourcePath, targetPath string) {
	src, target := e.SourceID, e.TargetID
	if direction == SliceBackward {
		src, target = e.TargetID, e.SourceID
	}
	if n, ok := ex.graph.Node(src); ok {
		sourcePath = n.FilePath
	}
	if n, ok := ex.graph.Node(target); ok {
		targetPath = n.FilePath
	}
	return sourcePath, targetPath
}

// buildPath walks the predecessor chain from id back to its anchor,
// reversing it into anchor-to-id order.
func buildPath(id string, pred map[string]predEdge, dist map[string]float64, depthOf map[string]int) PathResult {
	var nodeIDs []string
	var edgeKinds []string
	cur := id
	for {
		nodeIDs = append(nodeIDs, cur)
		p, ok := pred[cur]
		if !ok {
			break
		}
		edgeKinds = append(edgeKinds, string(p.kind))
		cur = p.from
	}
	reverseStrings(nodeIDs)
	reverseStrings(edgeKinds)

	cost := dist[id]
	return PathResult{
		NodeIDs:    nodeIDs,
		EdgeKinds:  edgeKinds,
		Length:     depthOf[id],
		Confidence: 1.0 / (1.0 + cost/10.0),
	}
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
