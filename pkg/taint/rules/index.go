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

import "strings"

type typeCallKey struct{ baseType, call string }

// MultiIndex is the unified rule index: exact (O(1)) maps for
// fully-literal patterns, prefix/suffix tries for one-sided wildcards, and
// a trigram index for "*contains*" patterns, selected by pattern shape.
type MultiIndex struct {
	byID map[string]*CompiledRule

	exactTypeCall map[typeCallKey][]*CompiledRule
	exactCall     map[string][]*CompiledRule
	exactTypeRead map[typeCallKey][]*CompiledRule

	memberPrefix *prefixTrie
	memberSuffix *suffixTrie
	trigram      map[string]map[string]struct{} // trigram -> rule ids (contains-shaped member patterns)
	containsLit  map[string]string              // rule id -> literal, for trigram post-filter
}

// NewMultiIndex constructs an empty index.
func NewMultiIndex() *MultiIndex {
	return &MultiIndex{
		byID:          make(map[string]*CompiledRule),
		exactTypeCall: make(map[typeCallKey][]*CompiledRule),
		exactCall:     make(map[string][]*CompiledRule),
		exactTypeRead: make(map[typeCallKey][]*CompiledRule),
		memberPrefix:  newPrefixTrie(),
		memberSuffix:  newSuffixTrie(),
		trigram:       make(map[string]map[string]struct{}),
		containsLit:   make(map[string]string),
	}
}

// Add deposits a compiled rule into every sub-index its pattern shape calls
// for.
func (idx *MultiIndex) Add(r *CompiledRule) {
	idx.byID[r.ID] = r

	memberShape, memberLit := classify(r.Pattern.Member)
	baseShape, _ := classify(r.Pattern.BaseType)

	if baseShape == shapeExact && memberShape == shapeExact {
		key := typeCallKey{r.Pattern.BaseType, r.Pattern.Member}
		if r.Pattern.Kind == PatternRead {
			idx.exactTypeRead[key] = append(idx.exactTypeRead[key], r)
		} else {
			idx.exactTypeCall[key] = append(idx.exactTypeCall[key], r)
		}
	}
	if memberShape == shapeExact {
		idx.exactCall[r.Pattern.Member] = append(idx.exactCall[r.Pattern.Member], r)
	}

	switch memberShape {
	case shapePrefix:
		idx.memberPrefix.add(r.ID, memberLit)
	case shapeSuffix:
		idx.memberSuffix.add(r.ID, memberLit)
	case shapeContains:
		idx.containsLit[r.ID] = memberLit
		for _, tri := range trigrams(memberLit) {
			if idx.trigram[tri] == nil {
				idx.trigram[tri] = make(map[string]struct{})
			}
			idx.trigram[tri][r.ID] = struct{}{}
		}
	}
}

// trigrams returns every length-3 shingle of s, or s itself when shorter
// than 3 bytes. Trigram indexing applies to pattern strings only, never to
// entity values.
func trigrams(s string) []string {
	if len(s) < 3 {
		return []string{s}
	}
	out := make([]string, 0, len(s)-2)
	for i := 0; i+3 <= len(s); i++ {
		out = append(out, s[i:i+3])
	}
	return out
}

// QueryExactTypeCall is the O(1) exact (base_type, call) lookup.
func (idx *MultiIndex) QueryExactTypeCall(baseType, call string) []*CompiledRule {
	return idx.exactTypeCall[typeCallKey{strings.ToLower(baseType), strings.ToLower(call)}]
}

// QueryExactCall is the O(1) exact call-name lookup.
func (idx *MultiIndex) QueryExactCall(call string) []*CompiledRule {
	return idx.exactCall[strings.ToLower(call)]
}

// QueryExactTypeRead is the O(1) exact (base_type, read) lookup.
func (idx *MultiIndex) QueryExactTypeRead(baseType, read string) []*CompiledRule {
	return idx.exactTypeRead[typeCallKey{strings.ToLower(baseType), strings.ToLower(read)}]
}

// Candidates aggregates every index capable of matching member against a
// concrete call/read name: exact, then prefix/suffix tries, then the
// trigram-filtered contains index (O(T) verification pass), deduplicated.
func (idx *MultiIndex) Candidates(member string) []*CompiledRule {
	member = strings.ToLower(member)
	seen := make(map[string]struct{})
	var out []*CompiledRule

	add := func(ids map[string]struct{}) {
		for id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, idx.byID[id])
		}
	}

	exact := make(map[string]struct{})
	for _, r := range idx.exactCall[member] {
		exact[r.ID] = struct{}{}
	}
	add(exact)
	add(idx.memberPrefix.search(member))
	add(idx.memberSuffix.search(member))

	candidateIDs := make(map[string]struct{})
	for _, tri := range trigrams(member) {
		for id := range idx.trigram[tri] {
			candidateIDs[id] = struct{}{}
		}
	}
	verified := make(map[string]struct{})
	for id := range candidateIDs {
		if strings.Contains(member, idx.containsLit[id]) {
			verified[id] = struct{}{}
		}
	}
	add(verified)

	return out
}

// Len returns the number of distinct rules deposited.
func (idx *MultiIndex) Len() int { return len(idx.byID) }
