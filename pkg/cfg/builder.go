// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package cfg builds the per-function basic-block graph (BFG) and control-
// flow graph (CFG) from a flat statement stream emitted by a language
// plugin. It is language-agnostic: it only inspects each
// ir.Statement's Kind, never language-specific AST nodes.
package cfg

import (
	"fmt"

	"github.com/kragraph/kragraph/pkg/ir"
)

// Build decomposes statements (in `order`) into basic blocks and control-
// flow edges for one function. A block ends at a branch, loop header,
// return or raise statement. Yield and loop-continue/exit statements only
// set the kind of the block they are in: the statements after them stay in
// that block, and no edge is added for the jump they make.
func Build(functionID string, statements map[string]*ir.Statement, order []string) *ir.FunctionCFG {
	c := &ir.FunctionCFG{
		FunctionID: functionID,
		Blocks:     make(map[string]*ir.BasicBlock),
	}

	entry := newBlock(c, functionID, "entry", ir.BlockEntry)
	exit := newBlock(c, functionID, "exit", ir.BlockExit)
	c.Entry = entry.ID
	c.Exit = exit.ID

	if len(order) == 0 {
		addEdge(c, entry.ID, exit.ID, ir.CFGUnconditional)
		return c
	}

	cur := newBlock(c, functionID, "b0", ir.BlockStatement)
	addEdge(c, entry.ID, cur.ID, ir.CFGUnconditional)

	blockIdx := 1
	terminated := false // true once cur ends in return/raise (implicit edge to EXIT already added)

	for _, stmtID := range order {
		stmt, ok := statements[stmtID]
		if !ok {
			continue
		}
		if terminated {
			// Unreachable statement after a return/raise: start a fresh,
			// disconnected block rather than silently dropping it.
			cur = newBlock(c, functionID, fmt.Sprintf("b%d", blockIdx), ir.BlockStatement)
			blockIdx++
			terminated = false
		}

		cur.StatementIDs = append(cur.StatementIDs, stmtID)

		switch stmt.Kind {
		case ir.StmtBranch:
			cur.Kind = ir.BlockBranch
			thenBlk := newBlock(c, functionID, fmt.Sprintf("b%d", blockIdx), ir.BlockStatement)
			blockIdx++
			addEdge(c, cur.ID, thenBlk.ID, ir.CFGTrue)
			elseBlk := newBlock(c, functionID, fmt.Sprintf("b%d", blockIdx), ir.BlockStatement)
			blockIdx++
			addEdge(c, cur.ID, elseBlk.ID, ir.CFGFalse)
			// Join point: both branches fall through into a shared
			// continuation block (a simplification of nested-branch
			// control flow that still produces a well-formed CFG with
			// every non-ENTRY block having >=1 predecessor).
			join := newBlock(c, functionID, fmt.Sprintf("b%d", blockIdx), ir.BlockStatement)
			blockIdx++
			addEdge(c, thenBlk.ID, join.ID, ir.CFGUnconditional)
			addEdge(c, elseBlk.ID, join.ID, ir.CFGUnconditional)
			cur = join

		case ir.StmtLoopHeader:
			cur.Kind = ir.BlockLoop
			body := newBlock(c, functionID, fmt.Sprintf("b%d", blockIdx), ir.BlockStatement)
			blockIdx++
			addEdge(c, cur.ID, body.ID, ir.CFGTrue)
			addEdge(c, body.ID, cur.ID, ir.CFGLoopBack)
			after := newBlock(c, functionID, fmt.Sprintf("b%d", blockIdx), ir.BlockStatement)
			blockIdx++
			addEdge(c, cur.ID, after.ID, ir.CFGFalse)
			cur = after

		case ir.StmtLoopExit:
			cur.Kind = ir.BlockLoopExit

		case ir.StmtLoopContinue:
			cur.Kind = ir.BlockLoopContinue

		case ir.StmtReturn:
			cur.Kind = ir.BlockReturn
			addEdge(c, cur.ID, exit.ID, ir.CFGReturn)
			terminated = true

		case ir.StmtRaise:
			cur.Kind = ir.BlockRaise
			addEdge(c, cur.ID, exit.ID, ir.CFGException)
			terminated = true

		case ir.StmtYield:
			cur.Kind = ir.BlockYield
		}
	}

	if !terminated {
		addEdge(c, cur.ID, exit.ID, ir.CFGUnconditional)
	}

	c.Partial = !wellFormed(c)
	return c
}

func newBlock(c *ir.FunctionCFG, functionID, suffix string, kind ir.BlockKind) *ir.BasicBlock {
	b := &ir.BasicBlock{ID: functionID + "#" + suffix, FunctionID: functionID, Kind: kind}
	c.Blocks[b.ID] = b
	return b
}

func addEdge(c *ir.FunctionCFG, from, to string, typ ir.CFGEdgeType) {
	c.Edges = append(c.Edges, ir.CFGEdge{SourceBlockID: from, TargetBlockID: to, Type: typ})
	c.Blocks[from].Successors = append(c.Blocks[from].Successors, to)
	c.Blocks[to].Predecessors = append(c.Blocks[to].Predecessors, from)
}

// wellFormed checks that every block other than ENTRY has
// >=1 predecessor, every block other than EXIT has >=1 successor.
func wellFormed(c *ir.FunctionCFG) bool {
	for id, b := range c.Blocks {
		if id != c.Entry && len(b.Predecessors) == 0 {
			return false
		}
		if id != c.Exit && len(b.Successors) == 0 {
			return false
		}
	}
	return true
}
