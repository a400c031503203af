// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"

	"github.com/kragraph/kragraph/pkg/query"
	"github.com/kragraph/kragraph/pkg/taint/rules"
)

// Policy scopes a taint proof search to one named set of sinks/sources and
// weights the confidence it reports: a proof's confidence is the path
// confidence times the policy weight.
type Policy struct {
	ID     string
	Weight float64
}

// Proof is one confirmed source-to-sink flow: a DetectedAtom pair
// connected by a DFG/interprocedural path that no sanitizer atom's
// enclosing node lies on.
type Proof struct {
	Source     DetectedAtom
	Sink       DetectedAtom
	Path       query.PathResult
	Confidence float64
}

// FlowAnalyzer compiles source/sink atom pairs into pkg/query DATAFLOW
// plans and filters out any path a sanitizer atom's enclosing node lies
// on: a sanitized path is not a proof.
type FlowAnalyzer struct {
	graph    *query.Graph
	executor *query.Executor
}

func NewFlowAnalyzer(graph *query.Graph, executor *query.Executor) *FlowAnalyzer {
	return &FlowAnalyzer{graph: graph, executor: executor}
}

// FindProofs searches, for every (source, sink) atom pair, whether a
// DATAFLOW path connects their enclosing nodes without passing through a
// sanitizer's enclosing node, and returns every such proof.
func (f *FlowAnalyzer) FindProofs(ctx context.Context, atoms []DetectedAtom, snapshotID, rulesetHash string, policy Policy) ([]Proof, error) {
	sources := byKind(atoms, rules.KindSource)
	sinks := byKind(atoms, rules.KindSink)
	sanitizerNodes := nodeSet(byKind(atoms, rules.KindSanitizer))

	var proofs []Proof
	for _, src := range sources {
		plan, err := query.NewPlan(query.PlanDataflow).
			WithPattern(query.QueryPattern{Pattern: src.Expression.NodeID, PatternType: "node_id"}).
			WithSliceDirection(query.SliceForward).
			WithBudget(query.HeavyBudget()).
			WithIntent(query.IntentFlow).
			WithPolicy(policy.ID).
			Build()
		if err != nil {
			return nil, err
		}

		result, err := f.executor.Execute(ctx, plan, snapshotID, rulesetHash)
		if err != nil {
			return nil, err
		}

		for _, sink := range sinks {
			if sink.Expression.NodeID == src.Expression.NodeID {
				continue
			}
			path, ok := pathTo(result.Data, sink.Expression.NodeID)
			if !ok {
				continue
			}
			if crossesAny(path.NodeIDs, sanitizerNodes) {
				continue
			}
			proofs = append(proofs, Proof{
				Source:     src,
				Sink:       sink,
				Path:       path,
				Confidence: path.Confidence * policy.Weight,
			})
		}
	}
	return proofs, nil
}

func byKind(atoms []DetectedAtom, kind rules.Kind) []DetectedAtom {
	var out []DetectedAtom
	for _, a := range atoms {
		if a.Rule.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

func nodeSet(atoms []DetectedAtom) map[string]bool {
	set := make(map[string]bool, len(atoms))
	for _, a := range atoms {
		set[a.Expression.NodeID] = true
	}
	return set
}

func pathTo(paths []query.PathResult, nodeID string) (query.PathResult, bool) {
	for _, p := range paths {
		if len(p.NodeIDs) > 0 && p.NodeIDs[len(p.NodeIDs)-1] == nodeID {
			return p, true
		}
	}
	return query.PathResult{}, false
}

func crossesAny(nodeIDs []string, forbidden map[string]bool) bool {
	// Endpoints are the source/sink themselves, not an intermediate
	// sanitizer step, so only the interior of the path is checked.
	if len(nodeIDs) <= 2 {
		return false
	}
	for _, id := range nodeIDs[1 : len(nodeIDs)-1] {
		if forbidden[id] {
			return true
		}
	}
	return false
}
