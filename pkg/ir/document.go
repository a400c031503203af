// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package ir

import "sort"

// Expression is a leaf evaluation site (a call, a read, a write) the taint
// atom matcher scans. It is not a full expression tree: the generator keeps
// only the detail the matcher and DFG need.
type Expression struct {
	ID       string
	NodeID   string // enclosing function/method node
	Kind     string // "call" | "read" | "write"
	BaseType string // receiver/base type, normalized by the language plugin
	Name     string // call target name or variable name
	Args     []Argument
	Span     Span
}

// Argument is a single call argument, used by rule argument constraints
// (position, tainted-flag, regex, constant).
type Argument struct {
	Position int
	Text     string
	IsConst  bool
}

// DFGSnapshot is the per-file data-flow edge set computed alongside the IR;
// SSA variable reads/writes become DFG edges once SSA conversion assigns
// versions.
type DFGSnapshot struct {
	Edges []Edge
}

// IRDocument is the immutable, per-file bundle produced by the IR generator
// and handed read-only to the cross-file resolver and cache.
type IRDocument struct {
	RepoID        string
	SnapshotID    string
	FilePath      string
	Language      string
	ContentHash   string
	ParserVersion string

	Nodes       []Node
	Edges       []Edge
	Expressions []Expression
	DFG         DFGSnapshot

	// Functions indexes CFG/SSA results by the owning function node id.
	Functions map[string]*FunctionIR

	// Diagnostics records non-fatal issues encountered while building this
	// document (parse errors, ill-formed CFGs); an IRDocument with
	// diagnostics is still usable.
	Diagnostics []Diagnostic
}

// Diagnostic is a structured, non-fatal build issue attached to a document
// or to a specific function within it.
type Diagnostic struct {
	Code       string
	Message    string
	FunctionID string
}

// NodeByID returns the node with the given id and whether it was found.
func (d *IRDocument) NodeByID(id string) (Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// SortedEdges returns a copy of d.Edges in the canonical deterministic order.
func (d *IRDocument) SortedEdges() []Edge {
	out := make([]Edge, len(d.Edges))
	copy(out, d.Edges)
	sort.SliceStable(out, func(i, j int) bool { return Less(out[i], out[j]) })
	return out
}

// CheckReferentialIntegrity verifies that every edge endpoint
// either resolves inside d or is a synthetic External:* id.
func (d *IRDocument) CheckReferentialIntegrity() []Diagnostic {
	ids := make(map[string]struct{}, len(d.Nodes))
	for _, n := range d.Nodes {
		ids[n.ID] = struct{}{}
	}
	var diags []Diagnostic
	for _, e := range d.Edges {
		if _, ok := ids[e.SourceID]; !ok && !IsExternal(e.SourceID) {
			diags = append(diags, Diagnostic{Code: "DANGLING_EDGE_SOURCE", Message: e.SourceID})
		}
		if _, ok := ids[e.TargetID]; !ok && !IsExternal(e.TargetID) {
			diags = append(diags, Diagnostic{Code: "DANGLING_EDGE_TARGET", Message: e.TargetID})
		}
	}
	return diags
}
