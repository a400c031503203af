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
	"sort"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/query"
)

// MaterializeInterprocEdges derives ARG_TO_PARAM and RETURN_TO_CALLSITE
// edges from every CALLS edge in docs, tagging each with a CallContext
// whose CallerID and CallSiteID are both the calling function's node id,
// so calls from one function into the same callee share a context. The
// contexts are recorded on the edges only: pkg/query's traversal does not
// read them, so a path may enter a callee from one caller and leave
// through another caller's RETURN_TO_CALLSITE edge.
func MaterializeInterprocEdges(graph *query.Graph, docs []*ir.IRDocument) []ir.Edge {
	var edges []ir.Edge
	for _, d := range docs {
		for _, e := range d.Edges {
			if e.Kind != ir.EdgeCalls {
				continue
			}
			edges = append(edges, callEdges(graph, e)...)
		}
	}
	return edges
}

func callEdges(graph *query.Graph, call ir.Edge) []ir.Edge {
	if ir.IsExternal(call.TargetID) {
		return nil
	}
	callee, ok := graph.Node(call.TargetID)
	if !ok {
		return nil
	}

	ctx := &ir.CallContext{CallerID: call.SourceID, CallSiteID: call.SourceID}

	var out []ir.Edge
	for i, paramID := range calleeParams(graph, callee.ID) {
		out = append(out, ir.Edge{
			Kind:          ir.EdgeArgToParam,
			SourceID:      call.SourceID,
			TargetID:      paramID,
			CallerContext: ctx,
			Attrs:         map[string]any{"position": i},
		})
	}
	out = append(out, ir.Edge{
		Kind:          ir.EdgeReturnToCallsite,
		SourceID:      callee.ID,
		TargetID:      call.SourceID,
		CalleeContext: ctx,
	})
	return out
}

// calleeParams lists fn's parameter node ids via its CONTAINS edges,
// ordered deterministically. A language plugin that records a parameter's
// declared position in Attrs["position"] gets that order honored; absent
// it, falls back to node id order.
func calleeParams(graph *query.Graph, fn string) []string {
	type param struct {
		id  string
		pos int
		has bool
	}
	var params []param
	for _, e := range graph.Out(fn) {
		if e.Kind != ir.EdgeContains {
			continue
		}
		n, ok := graph.Node(e.TargetID)
		if !ok || n.Kind != ir.NodeParameter {
			continue
		}
		pos, has := n.Attrs["position"].(int)
		params = append(params, param{id: n.ID, pos: pos, has: has})
	}
	sort.SliceStable(params, func(i, j int) bool {
		if params[i].has && params[j].has {
			return params[i].pos < params[j].pos
		}
		return params[i].id < params[j].id
	})
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = p.id
	}
	return out
}
