// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package engine implements the taint analysis engine: atom matching
// against the pkg/taint/rules multi-index, source-to-sink flow compilation
// into pkg/query plans, and interprocedural edge materialization for
// call-context-sensitive propagation.
package engine

import (
	"regexp"
	"sort"
	"strings"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/taint/rules"
)

// Score weights for DetectedAtom.Score: 60% member-name match, 30% base-type match, 10% argument
// constraint satisfaction ("column" constraints — position-indexed
// argument checks — are what the remaining weight rewards).
const (
	weightName = 0.6
	weightType = 0.3
	weightArgs = 0.1

	// matchThreshold is the minimum combined score an atom needs to be
	// reported.
	matchThreshold = 0.5
	// maxAtomsPerExpression caps how many rules one expression can match,
	// keeping the taint graph from exploding on a heavily-overlapping
	// catalog.
	maxAtomsPerExpression = 3
)

// DetectedAtom is one (rule, expression) match
// above threshold.
type DetectedAtom struct {
	Rule       *rules.CompiledRule
	Expression ir.Expression
	Score      float64
}

// MatchExpression scores every rule the multi-index returns as a candidate
// for expr.Name against expr's full shape, keeping the top-scoring
// maxAtomsPerExpression results above matchThreshold.
func MatchExpression(idx *rules.MultiIndex, expr ir.Expression) []DetectedAtom {
	candidates := idx.Candidates(expr.Name)
	atoms := make([]DetectedAtom, 0, len(candidates))

	for _, r := range candidates {
		if !kindMatches(r.Pattern.Kind, expr.Kind) {
			continue
		}
		score := scoreMatch(r, expr)
		if score > matchThreshold {
			atoms = append(atoms, DetectedAtom{Rule: r, Expression: expr, Score: score})
		}
	}

	sort.Slice(atoms, func(i, j int) bool {
		if atoms[i].Score != atoms[j].Score {
			return atoms[i].Score > atoms[j].Score
		}
		return atoms[i].Rule.ID < atoms[j].Rule.ID
	})
	if len(atoms) > maxAtomsPerExpression {
		atoms = atoms[:maxAtomsPerExpression]
	}
	return atoms
}

// MatchAll runs MatchExpression over every expression in exprs, in order.
func MatchAll(idx *rules.MultiIndex, exprs []ir.Expression) []DetectedAtom {
	var out []DetectedAtom
	for _, e := range exprs {
		out = append(out, MatchExpression(idx, e)...)
	}
	return out
}

func kindMatches(pk rules.PatternKind, exprKind string) bool {
	switch pk {
	case rules.PatternRead:
		return exprKind == "read"
	default:
		return exprKind == "call"
	}
}

func scoreMatch(r *rules.CompiledRule, expr ir.Expression) float64 {
	return weightName*nameScore(r.Pattern.Member, expr.Name) +
		weightType*typeScore(r.Pattern.BaseType, expr.BaseType) +
		weightArgs*argScore(r.Args, expr.Args)
}

// nameScore rewards an exact (case-insensitive) member match over a
// wildcard match; the index only ever returns wildcard candidates that do
// match, so this never needs to handle a mismatch.
func nameScore(pattern, name string) float64 {
	name = strings.ToLower(name)
	if pattern == name {
		return 1.0
	}
	return 0.8
}

// typeScore handles the base-type half, which the index does not filter
// by: an unconstrained ("*") pattern gets partial credit, an exact match
// full credit, a matching wildcard partial credit, and a non-match zero.
func typeScore(pattern, baseType string) float64 {
	baseType = strings.ToLower(baseType)
	if pattern == "" || pattern == "*" {
		return 0.5
	}
	if pattern == baseType {
		return 1.0
	}
	if strings.Contains(pattern, "*") && rules.MatchGlob(pattern, baseType) {
		return 0.8
	}
	return 0.0
}

// argScore is the fraction of a rule's argument constraints the
// expression's actual call arguments satisfy; a rule with no constraints
// scores 1.0 (it imposes nothing to fail).
func argScore(constraints []rules.ArgConstraint, args []ir.Argument) float64 {
	if len(constraints) == 0 {
		return 1.0
	}
	satisfied := 0
	for _, c := range constraints {
		if argSatisfies(c, args) {
			satisfied++
		}
	}
	return float64(satisfied) / float64(len(constraints))
}

func argSatisfies(c rules.ArgConstraint, args []ir.Argument) bool {
	if c.Position < 0 || c.Position >= len(args) {
		return false
	}
	arg := args[c.Position]
	switch {
	case c.Const != "":
		return unquote(arg.Text) == c.Const
	case c.Regex != "":
		re, err := regexp.Compile(c.Regex)
		if err != nil {
			return false
		}
		return re.MatchString(arg.Text)
	case c.Tainted:
		// Taintedness is resolved later by the flow analyzer against
		// ssa.Facts and DFG reachability, not at match time; a bare
		// tainted constraint is satisfiable here only in the weak sense
		// that the argument isn't a known compile-time constant.
		return !arg.IsConst
	default:
		return true
	}
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
