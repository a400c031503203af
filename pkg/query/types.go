// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package query implements the query plan executor: a canonical QueryPlan
// (no string DSL) compiled into a cost-aware graph traversal with budget
// enforcement.
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// PlanKind discriminates the traversal shape a QueryPlan compiles to.
type PlanKind string

const (
	PlanSlice          PlanKind = "SLICE"
	PlanDataflow       PlanKind = "DATAFLOW"
	PlanTaintProof     PlanKind = "TAINT_PROOF"
	PlanCallChain      PlanKind = "CALL_CHAIN"
	PlanDataDependency PlanKind = "DATA_DEPENDENCY"
)

// SliceDirection controls which direction a SLICE plan traverses from its
// anchor.
type SliceDirection string

const (
	SliceBackward SliceDirection = "backward"
	SliceForward  SliceDirection = "forward"
	SliceBoth     SliceDirection = "both"
)

// Intent rescales the edge cost table for the query's semantic goal:
// flow, symbol or concept, each with its own rescale table.
type Intent string

const (
	IntentFlow   Intent = "flow"
	IntentSymbol Intent = "symbol"
	IntentConcept Intent = "concept"
)

// QueryPattern is one anchor/source/sink/endpoint pattern.
type QueryPattern struct {
	Pattern     string
	PatternType string // "symbol" (default), "file", "regex", "node_id"
}

// Budget bounds a traversal; the zero value is not valid, use
// DefaultBudget/LightBudget/HeavyBudget or WithBudget.
type Budget struct {
	MaxDepth int
	MaxNodes int
	MaxPaths int
}

// LightBudget is a cheap, shallow budget for quick interactive queries.
func LightBudget() Budget { return Budget{MaxDepth: 3, MaxNodes: 200, MaxPaths: 20} }

// DefaultBudget is the standard budget used when a plan doesn't override it.
func DefaultBudget() Budget { return Budget{MaxDepth: 6, MaxNodes: 2000, MaxPaths: 100} }

// HeavyBudget is a deep-analysis budget for taint proofs and thorough slices.
func HeavyBudget() Budget { return Budget{MaxDepth: 15, MaxNodes: 20000, MaxPaths: 500} }

// QueryPlan is the canonical, hashable query input.
type QueryPlan struct {
	Kind             PlanKind
	Patterns         []QueryPattern
	Budget           Budget
	FileScope        string
	FunctionScope    string
	EdgeTypes        []string
	SliceDirection   SliceDirection
	PolicyID         string
	Intent           Intent
	Metadata         map[string]any
}

// Hash returns a stable content hash of the plan, used as the plan_hash half
// of the (snapshot_id, plan_hash) result-cache key.
func (p *QueryPlan) Hash() string {
	// Marshaling a struct with deterministic field order and no maps with
	// nondeterministic iteration (Metadata is re-encoded via its own sorted
	// keys by encoding/json) gives a reproducible digest across runs.
	raw, err := json.Marshal(p)
	if err != nil {
		// A QueryPlan built via QueryPlanBuilder is always JSON-encodable;
		// this only fires for a hand-built plan with a non-encodable
		// Metadata value, which is a caller bug, not a runtime condition to
		// recover from gracefully.
		panic(fmt.Sprintf("query: plan is not hashable: %v", err))
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Status is the overall outcome of one plan execution.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusPartial Status = "PARTIAL"
	StatusTimeout Status = "TIMEOUT"
	StatusError   Status = "ERROR"
)

// PathResult is one traversal path: node ids in order, the edge kinds
// taken, and the path's aggregate confidence.
type PathResult struct {
	NodeIDs    []string
	EdgeKinds  []string
	Length     int
	Confidence float64
	Metadata   map[string]any
}

// ExecutionResult is the executor's return shape.
type ExecutionResult struct {
	Status         Status
	Data           []PathResult
	Metadata       map[string]any
	Cursor         string
	BudgetUsed     Budget
	TruncatedReason string
}
