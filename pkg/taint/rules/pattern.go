// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"strings"
)

// parsePattern splits a catalog rule's raw pattern string ("type:call" or
// "read:prop") into a Pattern, lower-casing both halves; language-specific normalization (nested-
// class separators etc.) is applied by the caller via a LanguagePlugin.
func parsePattern(raw string) (Pattern, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pattern{}, fmt.Errorf("rules: malformed pattern %q, want \"base_type:member\"", raw)
	}
	kind := PatternCall
	if strings.HasPrefix(raw, "read:") {
		kind = PatternRead
	}
	return Pattern{
		Kind:     kind,
		BaseType: strings.ToLower(parts[0]),
		Member:   strings.ToLower(parts[1]),
	}, nil
}

// wildcardShape classifies a single glob string by the position of its '*'
// wildcards, used both for multi-index placement (exact/prefix/suffix/
// trigram) and for structural subsumption.
type wildcardShape int

const (
	shapeExact wildcardShape = iota
	shapePrefix               // "foo*"
	shapeSuffix               // "*foo"
	shapeContains             // "*foo*"
	shapeMixed                // anything else (internal wildcards, multiple stars)
)

// classify returns a glob's shape and its literal content (the part with
// wildcards stripped, e.g. "foo" for both "foo*" and "*foo*").
func classify(s string) (wildcardShape, string) {
	stars := strings.Count(s, "*")
	switch {
	case stars == 0:
		return shapeExact, s
	case stars == 1 && strings.HasSuffix(s, "*"):
		return shapePrefix, strings.TrimSuffix(s, "*")
	case stars == 1 && strings.HasPrefix(s, "*"):
		return shapeSuffix, strings.TrimPrefix(s, "*")
	case stars == 2 && strings.HasPrefix(s, "*") && strings.HasSuffix(s, "*"):
		inner := s[1 : len(s)-1]
		if !strings.Contains(inner, "*") {
			return shapeContains, inner
		}
		return shapeMixed, s
	default:
		return shapeMixed, s
	}
}

// MatchGlob reports whether s matches a glob pattern containing zero or more
// '*' wildcards. Exported for pkg/taint/engine's atom-matching score, which
// needs to test a candidate rule's base_type pattern against a concrete
// expression's base type the same way the index tests member patterns.
func MatchGlob(pattern, s string) bool { return matchGlob(pattern, s) }

// matchGlob reports whether s matches a glob pattern containing zero or more
// '*' wildcards, via the classic two-pointer wildcard-matching algorithm.
// Used for both concrete atom matching and mixed-shape subsumption sampling.
func matchGlob(pattern, s string) bool {
	var sIdx, pIdx, starIdx, match int
	starIdx, match = -1, 0
	for sIdx < len(s) {
		switch {
		case pIdx < len(pattern) && (pattern[pIdx] == s[sIdx] || pattern[pIdx] == '?'):
			sIdx++
			pIdx++
		case pIdx < len(pattern) && pattern[pIdx] == '*':
			starIdx = pIdx
			match = sIdx
			pIdx++
		case starIdx != -1:
			pIdx = starIdx + 1
			match++
			sIdx = match
		default:
			return false
		}
	}
	for pIdx < len(pattern) && pattern[pIdx] == '*' {
		pIdx++
	}
	return pIdx == len(pattern)
}

// subsumes reports whether a structurally subsumes b: every string matching
// b's pattern also matches a's. Exact shape pairs (exact/prefix/suffix/
// contains) are decided structurally; anything more irregular falls back
// to sample verification.
func subsumes(a, b Pattern) bool {
	if a.Kind != b.Kind {
		return false
	}
	if subsumesGlob(a.BaseType, b.BaseType) && subsumesGlob(a.Member, b.Member) {
		return true
	}
	return false
}

func subsumesGlob(a, b string) bool {
	if a == b {
		return true
	}
	aShape, aLit := classify(a)
	bShape, bLit := classify(b)

	switch aShape {
	case shapeExact:
		return bShape == shapeExact && aLit == bLit
	case shapePrefix:
		switch bShape {
		case shapeExact:
			return strings.HasPrefix(bLit, aLit)
		case shapePrefix:
			return strings.HasPrefix(bLit, aLit)
		default:
			return sampleSubsumption(a, b)
		}
	case shapeSuffix:
		switch bShape {
		case shapeExact:
			return strings.HasSuffix(bLit, aLit)
		case shapeSuffix:
			return strings.HasSuffix(bLit, aLit)
		default:
			return sampleSubsumption(a, b)
		}
	case shapeContains:
		switch bShape {
		case shapeExact:
			return strings.Contains(bLit, aLit)
		case shapePrefix, shapeSuffix, shapeContains:
			return strings.Contains(bLit, aLit)
		default:
			return sampleSubsumption(a, b)
		}
	default: // shapeMixed
		return sampleSubsumption(a, b)
	}
}

// sampleSubsumption verifies a subsumes b by generating concrete samples of
// b's language and checking each also matches a, the fallback for mixed
// patterns where structural containment isn't cheaply decidable.
// Deterministic (no randomness) so subsumption is reproducible.
func sampleSubsumption(a, b string) bool {
	for _, sample := range generateSamples(b) {
		if !matchGlob(a, sample) {
			return false
		}
	}
	return true
}

// generateSamples deterministically expands a glob into a small, fixed set
// of representative concrete strings by substituting each '*' with a short
// filler token of varying length, covering the empty-fill and several
// non-trivial fills.
func generateSamples(pattern string) []string {
	fillers := []string{"", "x", "xyz", "ab_cd"}
	if !strings.Contains(pattern, "*") {
		return []string{pattern}
	}
	segments := strings.Split(pattern, "*")
	samples := make([]string, 0, len(fillers))
	for _, fill := range fillers {
		samples = append(samples, strings.Join(segments, fill))
	}
	return samples
}
