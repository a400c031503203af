// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package goplugin

import (
	"fmt"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/parser"
)

// statementSequencer linearizes a Go function body into the flat
// ir.Statement stream pkg/cfg decomposes into basic blocks, the same role
// pyplugin's statementSequencer plays for Python, and records CALLS/
// READS/WRITES edges and Expression entries for the taint atom matcher as a
// side effect of the walk, inline with statement linearization instead of
// a separate call-only traversal.
type statementSequencer struct {
	st         *walkState
	funcID     string
	statements map[string]*ir.Statement
	order      []string
	seq        int
}

func newStatementSequencer(st *walkState, funcID string) *statementSequencer {
	return &statementSequencer{st: st, funcID: funcID, statements: make(map[string]*ir.Statement)}
}

func (s *statementSequencer) nextID() string {
	s.seq++
	return fmt.Sprintf("%s#stmt%d", s.funcID, s.seq)
}

func (s *statementSequencer) emit(kind ir.StatementKind, n asNode) *ir.Statement {
	id := s.nextID()
	stmt := &ir.Statement{ID: id, Kind: kind, Span: parser.NodeSpan(n)}
	s.statements[id] = stmt
	s.order = append(s.order, id)
	return stmt
}

// orderedStatements flattens the id-keyed buffer into the insertion-ordered
// slice parser.ParsedFunction.Statements expects.
func (s *statementSequencer) orderedStatements() []ir.Statement {
	out := make([]ir.Statement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.statements[id])
	}
	return out
}

// walkSuite processes a block's direct statement children in order.
func (s *statementSequencer) walkSuite(block asNode) {
	for i := 0; i < int(block.ChildCount()); i++ {
		s.walkStatement(block.Child(i))
	}
}

func (s *statementSequencer) walkStatement(n asNode) {
	switch n.Type() {
	case "if_statement":
		stmt := s.emit(ir.StmtBranch, n)
		s.scanExpr(n.ChildByFieldName("condition"), stmt)
		if cons := n.ChildByFieldName("consequence"); cons != nil {
			s.walkSuite(cons)
		}
		if alt := n.ChildByFieldName("alternative"); alt != nil {
			if alt.Type() == "block" {
				s.walkSuite(alt)
			} else {
				s.walkStatement(alt)
			}
		}
	case "for_statement":
		stmt := s.emit(ir.StmtLoopHeader, n)
		if cond := n.ChildByFieldName("condition"); cond != nil {
			s.scanExpr(cond, stmt)
		}
		if body := n.ChildByFieldName("body"); body != nil {
			s.walkSuite(body)
		}
		s.emit(ir.StmtLoopExit, n)
	case "return_statement":
		stmt := s.emit(ir.StmtReturn, n)
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c.IsNamed() {
				s.scanExpr(c, stmt)
			}
		}
	case "go_statement", "defer_statement":
		stmt := s.emit(ir.StmtPlain, n)
		if call := n.NamedChild(0); call != nil {
			s.scanExpr(call, stmt)
		}
	case "continue_statement":
		s.emit(ir.StmtLoopContinue, n)
	case "break_statement":
		s.emit(ir.StmtLoopExit, n)
	case "short_var_declaration":
		stmt := s.emit(ir.StmtPlain, n)
		s.scanShortVarDecl(n, stmt)
	case "assignment_statement":
		stmt := s.emit(ir.StmtPlain, n)
		s.scanAssignment(n, stmt)
	case "expression_statement":
		stmt := s.emit(ir.StmtPlain, n)
		if expr := n.NamedChild(0); expr != nil {
			s.scanExpr(expr, stmt)
		}
	case "block":
		s.walkSuite(n)
	default:
		stmt := s.emit(ir.StmtPlain, n)
		s.scanExpr(n, stmt)
	}
}

// scanShortVarDecl handles `x := expr`, recording WRITES for each bound
// identifier and READS/CALLS for the RHS, the Go analogue of pyplugin's
// scanAssignmentOrExpr.
func (s *statementSequencer) scanShortVarDecl(n asNode, stmt *ir.Statement) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left != nil {
		for i := 0; i < int(left.ChildCount()); i++ {
			if c := left.Child(i); c.Type() == "identifier" {
				stmt.Writes = append(stmt.Writes, parser.NodeText(c, s.st.content))
			}
		}
	}
	s.scanRHS(right, stmt)
}

// scanAssignment handles `x = expr`, `x.field = expr` and compound forms
// (`x += expr`).
func (s *statementSequencer) scanAssignment(n asNode, stmt *ir.Statement) {
	left := n.ChildByFieldName("left")
	right := n.ChildByFieldName("right")
	if left != nil {
		for i := 0; i < int(left.ChildCount()); i++ {
			if c := left.Child(i); c.Type() == "identifier" {
				stmt.Writes = append(stmt.Writes, parser.NodeText(c, s.st.content))
			}
		}
	}
	s.scanRHS(right, stmt)
}

// scanRHS records the constant/concat shape pkg/ssa's constant-propagation
// pass resolves, then scans for calls/reads, matching pyplugin's
// recordConstantShape + scanExpr pairing.
func (s *statementSequencer) scanRHS(right asNode, stmt *ir.Statement) {
	if right == nil {
		return
	}
	for i := 0; i < int(right.ChildCount()); i++ {
		expr := right.Child(i)
		if !expr.IsNamed() {
			continue
		}
		s.recordConstantShape(expr, stmt)
		s.scanExpr(expr, stmt)
	}
}

func (s *statementSequencer) recordConstantShape(right asNode, stmt *ir.Statement) {
	if right == nil {
		return
	}
	if isConstExpr(right) {
		lit := parser.NodeText(right, s.st.content)
		stmt.Literal = &lit
		return
	}
	if right.Type() == "binary_expression" {
		left := right.ChildByFieldName("left")
		op := right.ChildByFieldName("operator")
		rhs := right.ChildByFieldName("right")
		if left != nil && rhs != nil && op != nil && parser.NodeText(op, s.st.content) == "+" {
			stmt.ConcatOf = [2]string{parser.NodeText(left, s.st.content), parser.NodeText(rhs, s.st.content)}
		}
	}
}

// scanExpr walks an expression subtree for call/read occurrences, emitting
// CALLS edges and Expression records the taint matcher scans.
func (s *statementSequencer) scanExpr(n asNode, stmt *ir.Statement) {
	if n == nil {
		return
	}
	switch n.Type() {
	case "call_expression":
		s.recordCall(n, stmt)
		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.ChildCount()); i++ {
				s.scanExpr(args.Child(i), stmt)
			}
		}
	case "identifier":
		stmt.Reads = append(stmt.Reads, parser.NodeText(n, s.st.content))
	case "func_literal":
		s.recordFuncLiteral(n, stmt)
	case "selector_expression":
		if obj := n.ChildByFieldName("operand"); obj != nil {
			s.scanExpr(obj, stmt)
		}
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			s.scanExpr(n.Child(i), stmt)
		}
	}
}

// recordCall resolves the call's base type/callee name and appends both
// a CALLS edge and a taint-matchable Expression, splitting bare
// identifier callees from selector_expression ones.
func (s *statementSequencer) recordCall(n asNode, stmt *ir.Statement) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	baseType, callName := splitCallTarget(fn, s.st.content)
	targetID := s.st.resolveLocalOrExternal(callName)

	s.st.result.Edges = append(s.st.result.Edges, ir.Edge{
		Kind: ir.EdgeCalls, SourceID: s.funcID, TargetID: targetID,
		Span: spanPtr(parser.NodeSpan(n)),
	})

	var args []ir.Argument
	if argList := n.ChildByFieldName("arguments"); argList != nil {
		pos := 0
		for i := 0; i < int(argList.ChildCount()); i++ {
			c := argList.Child(i)
			if !c.IsNamed() {
				continue
			}
			args = append(args, ir.Argument{
				Position: pos,
				Text:     parser.NodeText(c, s.st.content),
				IsConst:  isConstExpr(c),
			})
			pos++
		}
	}

	s.st.result.Expressions = append(s.st.result.Expressions, ir.Expression{
		ID:       fmt.Sprintf("%s#expr%d", s.funcID, len(s.st.result.Expressions)),
		NodeID:   s.funcID,
		Kind:     "call",
		BaseType: baseType,
		Name:     callName,
		Args:     args,
		Span:     parser.NodeSpan(n),
	})
}

// recordFuncLiteral registers an anonymous function literal as a NodeLambda
// with an in-order disambiguating index, the Go analogue of pyplugin's
// recordLambda. Closures aren't resolvable by name, so unlike
// walkFunction/walkMethod no nameToID entry is registered for them.
func (s *statementSequencer) recordFuncLiteral(n asNode, stmt *ir.Statement) {
	idx := s.st.lambdaCount
	s.st.lambdaCount++
	name := fmt.Sprintf("<func_literal_%d>", idx)
	fqn := s.st.plugin.NormalizeFQN(s.funcID, name)
	litID := fmt.Sprintf("%s#%s", s.funcID, name)
	s.st.result.Nodes = append(s.st.result.Nodes, ir.Node{
		ID: litID, Kind: ir.NodeLambda, FQN: fqn, Name: name,
		FilePath: s.st.filePath, Span: parser.NodeSpan(n), ParentID: s.funcID,
	})
	s.st.result.Edges = append(s.st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: s.funcID, TargetID: litID})

	pf := parser.ParsedFunction{Node: mustLastNode(s.st.result.Nodes)}
	if body := n.ChildByFieldName("body"); body != nil {
		seq := newStatementSequencer(s.st, litID)
		seq.walkSuite(body)
		pf.Statements = seq.orderedStatements()
		pf.StatementOrder = seq.order
	}
	s.st.result.Functions = append(s.st.result.Functions, pf)
}

func isConstExpr(n asNode) bool {
	switch n.Type() {
	case "int_literal", "float_literal", "imaginary_literal", "rune_literal",
		"interpreted_string_literal", "raw_string_literal", "true", "false", "nil":
		return true
	default:
		return false
	}
}

// splitCallTarget splits `pkg.Foo(...)` or `obj.Method(...)` into baseType
// "pkg"/"obj" and call name "Foo"/"Method", or returns ("", name) for a
// bare call.
func splitCallTarget(fn asNode, content []byte) (baseType, name string) {
	if fn.Type() == "selector_expression" {
		operand := fn.ChildByFieldName("operand")
		field := fn.ChildByFieldName("field")
		if operand != nil {
			baseType = parser.NodeText(operand, content)
		}
		if field != nil {
			name = parser.NodeText(field, content)
		}
		return baseType, name
	}
	return "", parser.NodeText(fn, content)
}

func spanPtr(s ir.Span) *ir.Span { return &s }
