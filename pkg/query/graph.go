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
	"regexp"
	"sort"

	"github.com/kragraph/kragraph/pkg/ir"
)

// Graph is the read-only, whole-snapshot view the executor traverses: every
// IRDocument's nodes and edges merged into one adjacency index, built once
// per snapshot and reused across queries.
type Graph struct {
	nodes map[string]ir.Node
	byFQN map[string][]string
	out   map[string][]ir.Edge
	in    map[string][]ir.Edge
}

// BuildGraph indexes every node and edge across docs. Edge lists are stored
// pre-sorted in the canonical (kind rank, target id) order so traversal
// is deterministic for a fixed snapshot.
func BuildGraph(docs []*ir.IRDocument) *Graph {
	g := &Graph{
		nodes: make(map[string]ir.Node),
		byFQN: make(map[string][]string),
		out:   make(map[string][]ir.Edge),
		in:    make(map[string][]ir.Edge),
	}
	for _, d := range docs {
		for _, n := range d.Nodes {
			g.nodes[n.ID] = n
			if n.FQN != "" {
				g.byFQN[n.FQN] = append(g.byFQN[n.FQN], n.ID)
			}
		}
	}
	for _, d := range docs {
		for _, e := range d.SortedEdges() {
			g.out[e.SourceID] = append(g.out[e.SourceID], e)
			g.in[e.TargetID] = append(g.in[e.TargetID], e)
		}
	}
	for k := range g.out {
		sort.SliceStable(g.out[k], func(i, j int) bool { return ir.Less(g.out[k][i], g.out[k][j]) })
	}
	for k := range g.in {
		sort.SliceStable(g.in[k], func(i, j int) bool { return ir.Less(g.in[k][i], g.in[k][j]) })
	}
	return g
}

// AddEdges merges extra edges (interprocedural ARG_TO_PARAM and
// RETURN_TO_CALLSITE, materialized after the per-document graph is built)
// into the adjacency index, re-sorting only the touched lists so the
// canonical traversal order is preserved.
func (g *Graph) AddEdges(edges []ir.Edge) {
	touched := make(map[string]bool, len(edges)*2)
	for _, e := range edges {
		g.out[e.SourceID] = append(g.out[e.SourceID], e)
		g.in[e.TargetID] = append(g.in[e.TargetID], e)
		touched[e.SourceID] = true
		touched[e.TargetID] = true
	}
	for id := range touched {
		sort.SliceStable(g.out[id], func(i, j int) bool { return ir.Less(g.out[id][i], g.out[id][j]) })
		sort.SliceStable(g.in[id], func(i, j int) bool { return ir.Less(g.in[id][i], g.in[id][j]) })
	}
}

// Node looks up a node by id.
func (g *Graph) Node(id string) (ir.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Out returns id's outgoing edges in canonical order.
func (g *Graph) Out(id string) []ir.Edge { return g.out[id] }

// In returns id's incoming edges in canonical order.
func (g *Graph) In(id string) []ir.Edge { return g.in[id] }

// Resolve turns one QueryPattern into the set of anchor node ids it
// names, dispatching on pattern_type ("symbol" | "file" | "regex" | "node_id").
func (g *Graph) Resolve(p QueryPattern) []string {
	switch p.PatternType {
	case "file":
		return g.resolveByFile(p.Pattern)
	case "regex":
		return g.resolveByRegex(p.Pattern)
	case "node_id":
		if _, ok := g.nodes[p.Pattern]; ok {
			return []string{p.Pattern}
		}
		return nil
	default:
		return g.resolveBySymbol(p.Pattern)
	}
}

// resolveBySymbol matches an exact FQN first, falling back to an exact
// unqualified Name match across every node.
func (g *Graph) resolveBySymbol(pattern string) []string {
	if ids, ok := g.byFQN[pattern]; ok {
		return dedupeIDs(ids)
	}
	var out []string
	for id, n := range g.nodes {
		if n.Name == pattern {
			out = append(out, id)
		}
	}
	return dedupeIDs(out)
}

func (g *Graph) resolveByFile(path string) []string {
	var out []string
	for id, n := range g.nodes {
		if n.FilePath == path {
			out = append(out, id)
		}
	}
	return dedupeIDs(out)
}

func (g *Graph) resolveByRegex(pattern string) []string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil
	}
	var out []string
	for id, n := range g.nodes {
		if re.MatchString(n.FQN) || re.MatchString(n.Name) {
			out = append(out, id)
		}
	}
	return dedupeIDs(out)
}

func dedupeIDs(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, id := range in {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
