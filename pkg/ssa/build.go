// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package ssa

import "github.com/kragraph/kragraph/pkg/ir"

// Build converts a function's CFG and its statement map into SSA form:
// minimal phi placement at dominance-frontier join points followed by
// depth-first dominator-tree renaming with per-name monotonic versions.
func Build(c *ir.FunctionCFG, statements map[string]*ir.Statement) *ir.FunctionSSA {
	out := &ir.FunctionSSA{
		FunctionID: c.FunctionID,
		Defs:       make(map[string][]ir.SSAVariable),
		Partial:    c.Partial,
	}
	if c.Partial {
		return out
	}

	d := computeDominators(c)
	df := dominanceFrontier(c, d)

	writesByBlock := collectWrites(c, statements)
	out.Phis = placePhis(c, df, writesByBlock)

	renamer := &renamer{
		cfg:     c,
		domTree: buildDomChildren(d),
		phis:    indexPhisByBlock(out.Phis),
		counter: make(map[string]int),
		stack:   make(map[string][]int),
		defs:    out.Defs,
	}
	renamer.run(c.Entry, statements)
	out.Defs = renamer.defs

	if renamer.hitUnreachable {
		out.Partial = true
	}
	return out
}

// collectWrites returns, per block, the set of variable names that block's
// statements assign to.
func collectWrites(c *ir.FunctionCFG, statements map[string]*ir.Statement) map[string][]string {
	out := make(map[string][]string)
	for blockID, blk := range c.Blocks {
		seen := make(map[string]bool)
		for _, sid := range blk.StatementIDs {
			stmt, ok := statements[sid]
			if !ok {
				continue
			}
			for _, w := range stmt.Writes {
				if !seen[w] {
					seen[w] = true
					out[blockID] = append(out[blockID], w)
				}
			}
		}
	}
	return out
}

// placePhis implements the standard minimal-SSA phi-insertion algorithm:
// for every variable, iteratively push phi placement across the dominance
// frontier of every block that defines it, until no new insertions occur.
func placePhis(c *ir.FunctionCFG, df map[string][]string, writesByBlock map[string][]string) []ir.PhiNode {
	defBlocks := make(map[string]map[string]bool) // variable -> set of defining blocks
	for blockID, names := range writesByBlock {
		for _, name := range names {
			if defBlocks[name] == nil {
				defBlocks[name] = make(map[string]bool)
			}
			defBlocks[name][blockID] = true
		}
	}

	hasPhi := make(map[string]map[string]bool) // variable -> set of blocks with a phi
	var phis []ir.PhiNode

	for name, defs := range defBlocks {
		worklist := make([]string, 0, len(defs))
		for b := range defs {
			worklist = append(worklist, b)
		}
		hasPhi[name] = make(map[string]bool)

		for len(worklist) > 0 {
			b := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, f := range df[b] {
				if hasPhi[name][f] {
					continue
				}
				hasPhi[name][f] = true
				phis = append(phis, ir.PhiNode{Block: f, Variable: name})
				if !defs[f] {
					defs[f] = true
					worklist = append(worklist, f)
				}
			}
		}
	}
	return phis
}

func indexPhisByBlock(phis []ir.PhiNode) map[string][]*ir.PhiNode {
	out := make(map[string][]*ir.PhiNode)
	for i := range phis {
		out[phis[i].Block] = append(out[phis[i].Block], &phis[i])
	}
	return out
}

func buildDomChildren(d *domInfo) map[string][]string {
	children := make(map[string][]string)
	for b, idom := range d.idom {
		if b == idom {
			continue
		}
		children[idom] = append(children[idom], b)
	}
	return children
}

// renamer performs the depth-first dominator-tree renaming pass (Cytron et
// al. algorithm 4), assigning a fresh monotonically increasing version
// number to each definition and resolving each phi operand to the version
// reaching the end of its predecessor block.
type renamer struct {
	cfg            *ir.FunctionCFG
	domTree        map[string][]string
	phis           map[string][]*ir.PhiNode
	counter        map[string]int
	stack          map[string][]int
	defs           map[string][]ir.SSAVariable
	hitUnreachable bool
}

func (r *renamer) run(block string, statements map[string]*ir.Statement) {
	if _, ok := r.cfg.Blocks[block]; !ok {
		r.hitUnreachable = true
		return
	}

	popped := make(map[string]int)

	for _, phi := range r.phis[block] {
		r.define(phi.Variable)
		popped[phi.Variable]++
	}

	for _, sid := range r.cfg.Blocks[block].StatementIDs {
		stmt, ok := statements[sid]
		if !ok {
			continue
		}
		for _, w := range stmt.Writes {
			ver := r.define(w)
			r.defs[sid] = append(r.defs[sid], ir.SSAVariable{Name: w, Version: ver, DefiningBlock: block})
			popped[w]++
		}
	}

	for _, succ := range r.cfg.Blocks[block].Successors {
		for _, phi := range r.phis[succ] {
			ver := r.currentVersion(phi.Variable)
			phi.Operands = append(phi.Operands, ir.PhiOperand{PredecessorBlock: block, Version: ver})
		}
	}

	for _, child := range r.domTree[block] {
		r.run(child, statements)
	}

	for name, n := range popped {
		r.stack[name] = r.stack[name][:len(r.stack[name])-n]
	}
}

func (r *renamer) define(name string) int {
	r.counter[name]++
	v := r.counter[name]
	r.stack[name] = append(r.stack[name], v)
	return v
}

func (r *renamer) currentVersion(name string) int {
	s := r.stack[name]
	if len(s) == 0 {
		return 0 // no reaching definition: treated as the implicit entry version
	}
	return s[len(s)-1]
}
