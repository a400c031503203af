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
	"strings"

	"github.com/kragraph/kragraph/pkg/ir"
)

// Base edge costs for the cost-aware traversal.
const (
	costContains = 0.5
	costCalls    = 1.0
	costInherits = 1.5
	costDFG      = 3.0
	costImports  = 2.0
	costCFG      = 4.0
	costDefault  = 2.0
)

var baseEdgeCost = map[ir.EdgeKind]float64{
	ir.EdgeContains:         costContains,
	ir.EdgeCalls:            costCalls,
	ir.EdgeReads:            costDefault,
	ir.EdgeWrites:           costDefault,
	ir.EdgeInherits:         costInherits,
	ir.EdgeImplements:       costInherits,
	ir.EdgeImports:          costImports,
	ir.EdgeReferencesType:   costDefault,
	ir.EdgeReferencesSymbol: costDefault,
	ir.EdgeDecorates:        costDefault,
	ir.EdgeInstantiates:     costCalls,
	ir.EdgeDocuments:        costContains,
	ir.EdgeCFGNext:          costCFG,
	ir.EdgeCFGBranch:        costCFG,
	ir.EdgeCFGLoop:          costCFG,
	ir.EdgeCFGHandler:       costCFG,
	ir.EdgeDFG:              costDFG,
	ir.EdgeRouteHandler:     costCalls,
	ir.EdgeMiddlewareNext:   costCalls,
	ir.EdgeArgToParam:       costDFG,
	ir.EdgeReturnToCallsite: costDFG,
}

// Path-shape multipliers.
const (
	multiplierTestPath       = 5.0
	multiplierMockPath       = 8.0
	multiplierCrossModule    = 1.5
	multiplierExternalModule = 3.0
)

// intentRescale rescales specific edge kinds per query intent: a flow-
// intent query should prefer data-flow edges over structural ones, a
// symbol-intent query the reverse, a concept-intent query prefers
// documentation/decoration edges that carry human-facing meaning.
var intentRescale = map[Intent]map[ir.EdgeKind]float64{
	IntentFlow: {
		ir.EdgeDFG: 0.4, ir.EdgeArgToParam: 0.4, ir.EdgeReturnToCallsite: 0.4,
		ir.EdgeCalls: 1.5, ir.EdgeContains: 2.0,
	},
	IntentSymbol: {
		ir.EdgeReferencesSymbol: 0.4, ir.EdgeReferencesType: 0.4, ir.EdgeImports: 0.5,
		ir.EdgeDFG: 2.0,
	},
	IntentConcept: {
		ir.EdgeDocuments: 0.3, ir.EdgeDecorates: 0.5, ir.EdgeInherits: 0.7, ir.EdgeImplements: 0.7,
	},
}

// EdgeCost computes the traversal cost of e when stepping from a node in
// sourcePath into a node in targetPath, under the given intent. targetPath
// is empty for an External:* target, which is always
// priced as external-module.
func EdgeCost(e ir.Edge, sourcePath, targetPath string, intent Intent) float64 {
	cost, ok := baseEdgeCost[e.Kind]
	if !ok {
		cost = costDefault
	}
	if rescale, ok := intentRescale[intent]; ok {
		if mult, ok := rescale[e.Kind]; ok {
			cost *= mult
		}
	}

	if targetPath == "" {
		return cost * multiplierExternalModule
	}
	if isTestPath(targetPath) {
		cost *= multiplierTestPath
	}
	if isMockPath(targetPath) {
		cost *= multiplierMockPath
	}
	if sourcePath != "" && moduleOf(sourcePath) != moduleOf(targetPath) {
		cost *= multiplierCrossModule
	}
	return cost
}

func isTestPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "/test/") || strings.Contains(lower, "/tests/") ||
		strings.HasSuffix(lower, "_test.py") || strings.HasSuffix(lower, "_test.go") ||
		strings.HasPrefix(lower, "test_")
}

func isMockPath(path string) bool {
	lower := strings.ToLower(path)
	return strings.Contains(lower, "mock") || strings.Contains(lower, "fixture")
}

// moduleOf returns the top-level directory of a repo-relative path, used
// as a coarse module boundary for the cross-module multiplier.
func moduleOf(path string) string {
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
