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

// Facts maps an original variable name to the literal text it holds at a
// particular point in a forward walk. Map identity (not content) matters
// to callers: a missing key means "not known to be constant", never "known
// to be non-constant" — the distinction pkg/taint/engine needs to tell a
// compile-time-constant sink argument from a runtime-tainted one.
type Facts map[string]string

// PropagateConstants runs a lightweight forward dataflow pass over a
// function's CFG, resolving literal-typed variables transitively. It
// walks blocks in reverse-postorder, which visits every
// block after all of its non-loop-back predecessors, and at a join point
// keeps only the facts every already-visited predecessor agrees on — a
// single pass rather than a fixed point, since losing precision across a
// loop back-edge is an acceptable conservative approximation for this
// engine's purpose (it only needs to say "this sink argument is provably
// constant", never "this sink argument is provably tainted").
func PropagateConstants(c *ir.FunctionCFG, statements map[string]*ir.Statement) Facts {
	if c == nil || c.Partial {
		return Facts{}
	}

	order := reversePostorder(c)
	out := make(map[string]Facts, len(order))

	for _, id := range order {
		blk := c.Blocks[id]
		cur := mergePredecessorFacts(blk, out)
		for _, sid := range blk.StatementIDs {
			stmt, ok := statements[sid]
			if !ok {
				continue
			}
			applyStatement(stmt, cur)
		}
		out[id] = cur
	}

	if exit, ok := out[c.Exit]; ok {
		return exit
	}
	return Facts{}
}

// mergePredecessorFacts intersects the facts of every predecessor already
// visited (reverse-postorder guarantees all non-back-edge predecessors
// have); the ENTRY block and any block whose predecessors disagree on a
// variable start with that variable unknown.
func mergePredecessorFacts(blk *ir.BasicBlock, out map[string]Facts) Facts {
	merged := Facts{}
	first := true
	for _, pred := range blk.Predecessors {
		predFacts, ok := out[pred]
		if !ok {
			continue // not yet visited: a loop back-edge, conservatively ignored
		}
		if first {
			for k, v := range predFacts {
				merged[k] = v
			}
			first = false
			continue
		}
		for k, v := range merged {
			if predFacts[k] != v {
				delete(merged, k)
			}
		}
	}
	return merged
}

// applyStatement updates cur in place for one statement's assignment
// shape: a bare literal, a two-operand concatenation where both operands
// resolve, or (for anything else that writes a variable) clearing any
// stale fact for that name.
func applyStatement(stmt *ir.Statement, cur Facts) {
	if stmt.Literal != nil {
		lit := *stmt.Literal
		if len(lit) >= 2 && (lit[0] == '"' || lit[0] == '\'') {
			lit = lit[1 : len(lit)-1]
		}
		for _, w := range stmt.Writes {
			cur[w] = lit
		}
		return
	}
	if stmt.ConcatOf[0] != "" || stmt.ConcatOf[1] != "" {
		left, leftOK := resolveOperand(stmt.ConcatOf[0], cur)
		right, rightOK := resolveOperand(stmt.ConcatOf[1], cur)
		if leftOK && rightOK {
			for _, w := range stmt.Writes {
				cur[w] = left + right
			}
			return
		}
	}
	for _, w := range stmt.Writes {
		delete(cur, w)
	}
}

// resolveOperand resolves a ConcatOf operand: if it looks like a quoted
// string literal, its value is itself; otherwise it's a variable name
// looked up in the running fact map.
func resolveOperand(text string, cur Facts) (string, bool) {
	if len(text) >= 2 && (text[0] == '"' || text[0] == '\'') {
		return text[1 : len(text)-1], true
	}
	v, ok := cur[text]
	return v, ok
}

// IsConstant reports whether name resolves to a known literal value at the
// point facts were computed for, and returns that value.
func (f Facts) IsConstant(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}
