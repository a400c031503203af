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

// EdgeKind enumerates every edge kind the IR generator, CFG/SSA builder and
// taint engine can produce. Ordered here in the canonical order used to
// break ties during deterministic graph traversal: edges iterate in a
// canonical order, by edge kind, then target id.
type EdgeKind string

const (
	EdgeContains         EdgeKind = "CONTAINS"
	EdgeCalls            EdgeKind = "CALLS"
	EdgeReads            EdgeKind = "READS"
	EdgeWrites           EdgeKind = "WRITES"
	EdgeInherits         EdgeKind = "INHERITS"
	EdgeImplements       EdgeKind = "IMPLEMENTS"
	EdgeImports          EdgeKind = "IMPORTS"
	EdgeReferencesType   EdgeKind = "REFERENCES_TYPE"
	EdgeReferencesSymbol EdgeKind = "REFERENCES_SYMBOL"
	EdgeDecorates        EdgeKind = "DECORATES"
	EdgeInstantiates     EdgeKind = "INSTANTIATES"
	EdgeDocuments        EdgeKind = "DOCUMENTS"
	EdgeCFGNext          EdgeKind = "CFG_NEXT"
	EdgeCFGBranch        EdgeKind = "CFG_BRANCH"
	EdgeCFGLoop          EdgeKind = "CFG_LOOP"
	EdgeCFGHandler       EdgeKind = "CFG_HANDLER"
	EdgeDFG              EdgeKind = "DFG"
	EdgeRouteHandler     EdgeKind = "ROUTE_HANDLER"
	EdgeMiddlewareNext   EdgeKind = "MIDDLEWARE_NEXT"
	// EdgeArgToParam and EdgeReturnToCallsite are the interprocedural
	// edges the taint engine materializes between call sites and callee
	// parameters/return values, context-tagged for k=1 CFA.
	EdgeArgToParam       EdgeKind = "ARG_TO_PARAM"
	EdgeReturnToCallsite EdgeKind = "RETURN_TO_CALLSITE"
)

// edgeKindOrder gives each kind a canonical rank for deterministic traversal.
var edgeKindOrder = map[EdgeKind]int{
	EdgeContains: 0, EdgeCalls: 1, EdgeReads: 2, EdgeWrites: 3,
	EdgeInherits: 4, EdgeImplements: 5, EdgeImports: 6,
	EdgeReferencesType: 7, EdgeReferencesSymbol: 8, EdgeDecorates: 9,
	EdgeInstantiates: 10, EdgeDocuments: 11, EdgeCFGNext: 12,
	EdgeCFGBranch: 13, EdgeCFGLoop: 14, EdgeCFGHandler: 15, EdgeDFG: 16,
	EdgeRouteHandler: 17, EdgeMiddlewareNext: 18, EdgeArgToParam: 19,
	EdgeReturnToCallsite: 20,
}

// Rank returns the canonical ordering rank for k, used to break ties when
// sorting edges for deterministic query execution.
func (k EdgeKind) Rank() int {
	if r, ok := edgeKindOrder[k]; ok {
		return r
	}
	return len(edgeKindOrder)
}

// CallContext tags an interprocedural edge with the call that created it;
// pkg/taint/engine fills both fields with the calling function's node id.
// No traversal in pkg/query reads it.
type CallContext struct {
	CallerID   string
	CallSiteID string
}

// Edge connects two node ids. SourceID/TargetID may be ExternalNodeID values
// for cross-file references.
type Edge struct {
	Kind     EdgeKind
	SourceID string
	TargetID string
	Span     *Span
	Attrs    map[string]any

	// CallerContext/CalleeContext are set only on EdgeArgToParam and
	// EdgeReturnToCallsite edges.
	CallerContext *CallContext
	CalleeContext *CallContext
}

// Less orders edges canonically: by kind rank, then by target id, the
// tie-break that keeps query traversal deterministic.
func Less(a, b Edge) bool {
	if a.Kind.Rank() != b.Kind.Rank() {
		return a.Kind.Rank() < b.Kind.Rank()
	}
	return a.TargetID < b.TargetID
}
