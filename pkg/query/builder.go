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

import "fmt"

// QueryPlanBuilder builds a QueryPlan fluently, in
// a fluent builder shape (one setter method
// per plan field, validated on Build()). There is no string query DSL
// — this builder is the only construction path besides
// hand-populating a QueryPlan literal.
type QueryPlanBuilder struct {
	plan QueryPlan
}

// NewPlan starts a builder for the given plan kind with DefaultBudget and
// IntentSymbol until overridden.
func NewPlan(kind PlanKind) *QueryPlanBuilder {
	return &QueryPlanBuilder{plan: QueryPlan{
		Kind:   kind,
		Budget: DefaultBudget(),
		Intent: IntentSymbol,
	}}
}

func (b *QueryPlanBuilder) WithBudget(budget Budget) *QueryPlanBuilder {
	b.plan.Budget = budget
	return b
}

func (b *QueryPlanBuilder) WithPattern(p QueryPattern) *QueryPlanBuilder {
	b.plan.Patterns = append(b.plan.Patterns, p)
	return b
}

func (b *QueryPlanBuilder) WithPatterns(patterns ...QueryPattern) *QueryPlanBuilder {
	b.plan.Patterns = append(b.plan.Patterns, patterns...)
	return b
}

func (b *QueryPlanBuilder) WithScope(filePath, functionID string) *QueryPlanBuilder {
	b.plan.FileScope = filePath
	b.plan.FunctionScope = functionID
	return b
}

func (b *QueryPlanBuilder) WithEdgeTypes(kinds ...string) *QueryPlanBuilder {
	b.plan.EdgeTypes = kinds
	return b
}

func (b *QueryPlanBuilder) WithSliceDirection(d SliceDirection) *QueryPlanBuilder {
	b.plan.SliceDirection = d
	return b
}

// WithPolicy sets the taint policy id a TAINT_PROOF plan scopes its
// sanitizer/sink matching to.
func (b *QueryPlanBuilder) WithPolicy(policyID string) *QueryPlanBuilder {
	b.plan.PolicyID = policyID
	return b
}

func (b *QueryPlanBuilder) WithIntent(intent Intent) *QueryPlanBuilder {
	b.plan.Intent = intent
	return b
}

func (b *QueryPlanBuilder) WithMetadata(key string, value any) *QueryPlanBuilder {
	if b.plan.Metadata == nil {
		b.plan.Metadata = make(map[string]any)
	}
	b.plan.Metadata[key] = value
	return b
}

// Build validates the accumulated plan and returns it, or an error
// describing the first invariant it violates.
func (b *QueryPlanBuilder) Build() (*QueryPlan, error) {
	p := b.plan
	if len(p.Patterns) == 0 {
		return nil, fmt.Errorf("query: plan %s needs at least one pattern", p.Kind)
	}
	if p.Budget.MaxDepth <= 0 || p.Budget.MaxNodes <= 0 || p.Budget.MaxPaths <= 0 {
		return nil, fmt.Errorf("query: plan %s has a non-positive budget field", p.Kind)
	}
	if p.Kind == PlanSlice && p.SliceDirection == "" {
		p.SliceDirection = SliceBoth
	}
	if p.Kind == PlanTaintProof && p.PolicyID == "" {
		return nil, fmt.Errorf("query: TAINT_PROOF plan needs a policy id")
	}
	return &p, nil
}
