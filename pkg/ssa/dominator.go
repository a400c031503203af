// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package ssa converts a pkg/cfg-built control-flow graph into SSA form:
// dominator tree, dominance frontier, minimal phi placement, and
// renaming. The algorithm is the classic Cooper/Harvey/Kennedy
// "A Simple, Fast Dominance Algorithm" iterative fixpoint, run directly over
// ir.FunctionCFG rather than a borrowed compiler IR, since the block graph
// here is already language-agnostic.
package ssa

import "github.com/kragraph/kragraph/pkg/ir"

// domInfo holds the computed dominator tree for one function's CFG.
type domInfo struct {
	order   []string          // reverse-postorder block IDs
	idom    map[string]string // immediate dominator
	rpoIdx  map[string]int    // block id -> position in order
}

// computeDominators builds the immediate-dominator map using the iterative
// algorithm over a reverse postorder traversal, which converges in few
// passes on the small, mostly-acyclic CFGs produced per function.
func computeDominators(c *ir.FunctionCFG) *domInfo {
	order := reversePostorder(c)
	idx := make(map[string]int, len(order))
	for i, id := range order {
		idx[id] = i
	}

	idom := map[string]string{c.Entry: c.Entry}
	changed := true
	for changed {
		changed = false
		for _, b := range order {
			if b == c.Entry {
				continue
			}
			blk := c.Blocks[b]
			var newIdom string
			for _, p := range blk.Predecessors {
				if _, ok := idom[p]; !ok {
					continue
				}
				if newIdom == "" {
					newIdom = p
					continue
				}
				newIdom = intersect(idom, idx, newIdom, p)
			}
			if newIdom != "" && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	return &domInfo{order: order, idom: idom, rpoIdx: idx}
}

func intersect(idom map[string]string, rpoIdx map[string]int, a, b string) string {
	for a != b {
		for rpoIdx[a] > rpoIdx[b] {
			a = idom[a]
		}
		for rpoIdx[b] > rpoIdx[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks the CFG from Entry and returns block IDs in
// reverse-postorder, which is the traversal order the dominator fixpoint
// needs for fast convergence.
func reversePostorder(c *ir.FunctionCFG) []string {
	visited := make(map[string]bool)
	var post []string
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, s := range c.Blocks[id].Successors {
			visit(s)
		}
		post = append(post, id)
	}
	visit(c.Entry)

	// Any block unreachable from Entry (dead code, or a disconnected block
	// left by pkg/cfg after unreachable statements) is appended as well, so
	// it still appears in the returned order (ahead of the reachable blocks
	// once reversed). It never gets an idom, so Build's dominator-tree
	// renaming does not visit it.
	for id := range c.Blocks {
		if !visited[id] {
			post = append(post, id)
		}
	}

	reversed := make([]string, len(post))
	for i, id := range post {
		reversed[len(post)-1-i] = id
	}
	return reversed
}

// dominanceFrontier computes DF(b) for every block per Cytron et al.: for
// each block with >=2 predecessors, walk each predecessor up its dominator
// chain until reaching the block's immediate dominator, adding the block to
// every frontier along the way.
func dominanceFrontier(c *ir.FunctionCFG, d *domInfo) map[string][]string {
	df := make(map[string][]string)
	for _, b := range d.order {
		blk := c.Blocks[b]
		if len(blk.Predecessors) < 2 {
			continue
		}
		for _, p := range blk.Predecessors {
			if _, ok := d.idom[p]; !ok {
				continue
			}
			runner := p
			for runner != d.idom[b] {
				df[runner] = appendUnique(df[runner], b)
				next, ok := d.idom[runner]
				if !ok || next == runner {
					break
				}
				runner = next
			}
		}
	}
	return df
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}
