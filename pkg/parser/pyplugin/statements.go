// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package pyplugin

import (
	"fmt"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/parser"
)

// statementSequencer linearizes a Python function body into the flat
// ir.Statement stream that pkg/cfg decomposes into basic blocks. It also
// records CALLS/READS/WRITES edges and Expression entries for the taint
// atom matcher as a side effect of the same walk, so call extraction never
// needs a second traversal.
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

// orderedStatements flattens the id-keyed buffer into the insertion-ordered
// slice parser.ParsedFunction.Statements expects, since mutation during the walk
// (e.g. appending Reads/Writes after emit) needs pointer lookups by id that a
// plain slice wouldn't support.
func (s *statementSequencer) orderedStatements() []ir.Statement {
	out := make([]ir.Statement, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.statements[id])
	}
	return out
}

func (s *statementSequencer) emit(kind ir.StatementKind, n asNode) *ir.Statement {
	id := s.nextID()
	stmt := &ir.Statement{ID: id, Kind: kind, Span: parser.NodeSpan(n)}
	s.statements[id] = stmt
	s.order = append(s.order, id)
	return stmt
}

// walkSuite processes a block of statements in order.
func (s *statementSequencer) walkSuite(body asNode) {
	for i := 0; i < int(body.ChildCount()); i++ {
		s.walkStatement(body.Child(i))
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
		for i := 0; i < int(n.ChildCount()); i++ {
			c := n.Child(i)
			if c.Type() == "elif_clause" || c.Type() == "else_clause" {
				if body := c.ChildByFieldName("body"); body != nil {
					s.walkSuite(body)
				}
			}
		}
	case "for_statement":
		stmt := s.emit(ir.StmtLoopHeader, n)
		if left := n.ChildByFieldName("left"); left != nil && left.Type() == "identifier" {
			stmt.Writes = append(stmt.Writes, parser.NodeText(left, s.st.content))
		}
		s.scanExpr(n.ChildByFieldName("right"), stmt)
		if body := n.ChildByFieldName("body"); body != nil {
			s.walkSuite(body)
		}
		s.emit(ir.StmtLoopExit, n)
	case "while_statement":
		stmt := s.emit(ir.StmtLoopHeader, n)
		s.scanExpr(n.ChildByFieldName("condition"), stmt)
		if body := n.ChildByFieldName("body"); body != nil {
			s.walkSuite(body)
		}
		s.emit(ir.StmtLoopExit, n)
	case "try_statement":
		if body := n.ChildByFieldName("body"); body != nil {
			s.walkSuite(body)
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if c := n.Child(i); c.Type() == "except_clause" {
				if body := c.ChildByFieldName("body"); body == nil {
					// python grammar nests the suite as last child
					if last := c.Child(int(c.ChildCount()) - 1); last != nil {
						s.walkSuite(last)
					}
				} else {
					s.walkSuite(body)
				}
			}
		}
	case "return_statement":
		stmt := s.emit(ir.StmtReturn, n)
		if ret := n.NamedChild(0); ret != nil {
			s.scanExpr(ret, stmt)
		}
	case "raise_statement":
		stmt := s.emit(ir.StmtRaise, n)
		if ret := n.NamedChild(0); ret != nil {
			s.scanExpr(ret, stmt)
		}
	case "continue_statement":
		s.emit(ir.StmtLoopContinue, n)
	case "break_statement":
		s.emit(ir.StmtLoopExit, n)
	case "expression_statement":
		stmt := s.emit(ir.StmtPlain, n)
		s.scanAssignmentOrExpr(n, stmt)
	default:
		stmt := s.emit(ir.StmtPlain, n)
		s.scanExpr(n, stmt)
	}
}

// scanAssignmentOrExpr handles `x = expr`, `x.attr = expr` and bare
// expression statements (most commonly a call), recording WRITES for the
// assignment target and READS/CALLS for the RHS.
func (s *statementSequencer) scanAssignmentOrExpr(n asNode, stmt *ir.Statement) {
	assign := firstChildOfType(n, "assignment")
	if assign == nil {
		if call := n.NamedChild(0); call != nil {
			s.scanExpr(call, stmt)
		}
		return
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left != nil && left.Type() == "identifier" {
		stmt.Writes = append(stmt.Writes, parser.NodeText(left, s.st.content))
	}
	s.recordConstantShape(right, stmt)
	s.scanExpr(right, stmt)
}

// recordConstantShape populates Statement.Literal/ConcatOf for the shapes
// pkg/ssa's constant-propagation pass resolves: a bare scalar literal, or a
// two-operand `a + b` concatenation.
func (s *statementSequencer) recordConstantShape(right asNode, stmt *ir.Statement) {
	if right == nil {
		return
	}
	if isConstExpr(right) {
		lit := parser.NodeText(right, s.st.content)
		stmt.Literal = &lit
		return
	}
	if right.Type() == "binary_operator" {
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
	case "call":
		s.recordCall(n, stmt)
		// still descend into arguments for nested calls/reads
		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.ChildCount()); i++ {
				s.scanExpr(args.Child(i), stmt)
			}
		}
	case "identifier":
		name := parser.NodeText(n, s.st.content)
		stmt.Reads = append(stmt.Reads, name)
	case "lambda":
		s.recordLambda(n, stmt)
	case "attribute":
		if obj := n.ChildByFieldName("object"); obj != nil {
			s.scanExpr(obj, stmt)
		}
	default:
		for i := 0; i < int(n.ChildCount()); i++ {
			s.scanExpr(n.Child(i), stmt)
		}
	}
}

// recordCall resolves the call's base type/callee name and appends both a
// CALLS edge and a taint-matchable Expression.
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

// recordLambda registers a lambda expression as a NodeLambda with an
// in-order disambiguating index, so same-bytes reparses assign the same
// `pkg.mod.func.<lambda_N>` names.
func (s *statementSequencer) recordLambda(n asNode, stmt *ir.Statement) {
	idx := s.st.lambdaCount
	s.st.lambdaCount++
	name := fmt.Sprintf("<lambda_%d>", idx)
	scope := s.funcID
	for _, node := range s.st.result.Nodes {
		if node.ID == s.funcID {
			scope = node.FQN
			break
		}
	}
	fqn := s.st.plugin.NormalizeFQN(scope, name)
	lambdaID := fmt.Sprintf("%s#%s", s.funcID, name)
	s.st.result.Nodes = append(s.st.result.Nodes, ir.Node{
		ID: lambdaID, Kind: ir.NodeLambda, FQN: fqn, Name: name,
		FilePath: s.st.filePath, Span: parser.NodeSpan(n), ParentID: s.funcID,
	})
	s.st.result.Edges = append(s.st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: s.funcID, TargetID: lambdaID})
	if body := n.ChildByFieldName("body"); body != nil {
		s.scanExpr(body, stmt)
	}
}

func isConstExpr(n asNode) bool {
	switch n.Type() {
	case "string", "integer", "float", "true", "false", "none":
		return true
	default:
		return false
	}
}

// splitCallTarget splits `a.b.c(...)` into baseType "a.b" and call name "c",
// or returns ("", name) for a bare call.
func splitCallTarget(fn asNode, content []byte) (baseType, name string) {
	if fn.Type() == "attribute" {
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj != nil {
			baseType = parser.NodeText(obj, content)
		}
		if attr != nil {
			name = parser.NodeText(attr, content)
		}
		return baseType, name
	}
	return "", parser.NodeText(fn, content)
}

func spanPtr(s ir.Span) *ir.Span { return &s }
