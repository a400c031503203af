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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
)

// walkFunction registers a function/method node, its parameters, and
// decomposes its body into the flat statement stream the BFG builder
// consumes, plus extracts CALLS/READS/WRITES edges.
func (st *walkState) walkFunction(n asNode, scopeFQN, parentID string, kind ir.NodeKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, st.content)
	fqn := st.plugin.NormalizeFQN(scopeFQN, name)
	funcID := irgen.NodeID(st.repoID, kind, st.filePath, fqn, 0)
	st.nameToID[name] = funcID

	decorators := decoratorNamesFor(n, st.content)

	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: funcID, Kind: kind, FQN: fqn, Name: name,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
		Attrs: map[string]any{"decorators": decorators},
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: funcID})
	for _, dec := range decorators {
		st.result.Edges = append(st.result.Edges, ir.Edge{
			Kind: ir.EdgeDecorates, SourceID: st.resolveLocalOrExternal(dec), TargetID: funcID,
		})
	}

	st.walkParameters(n, fqn, funcID)

	body := n.ChildByFieldName("body")
	pf := parser.ParsedFunction{Node: mustLastNode(st.result.Nodes)}
	if body != nil {
		seq := newStatementSequencer(st, funcID)
		seq.walkSuite(body)
		pf.Statements = seq.orderedStatements()
		pf.StatementOrder = seq.order
	}
	st.result.Functions = append(st.result.Functions, pf)

	// Nested function definitions (closures) are walked with this
	// function as their enclosing scope, and as class bodies do, any
	// further nesting recurses naturally.
	if body != nil {
		for i := 0; i < int(body.ChildCount()); i++ {
			if c := body.Child(i); c.Type() == "function_definition" {
				st.walkFunction(c, fqn, funcID, ir.NodeFunction)
			}
		}
	}
}

func mustLastNode(nodes []ir.Node) ir.Node {
	return nodes[len(nodes)-1]
}

func (st *walkState) walkParameters(fn asNode, scopeFQN, funcID string) {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	idx := 0
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(i)
		var name string
		switch p.Type() {
		case "identifier":
			name = parser.NodeText(p, st.content)
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			if nameField := p.ChildByFieldName("name"); nameField != nil {
				name = parser.NodeText(nameField, st.content)
			} else if c := p.Child(0); c != nil {
				name = parser.NodeText(c, st.content)
			}
		default:
			continue
		}
		if name == "" || name == "self" || name == "cls" {
			idx++
			continue
		}
		fqn := st.plugin.NormalizeFQN(scopeFQN, name)
		paramID := irgen.NodeID(st.repoID, ir.NodeParameter, st.filePath, fqn, idx)
		st.result.Nodes = append(st.result.Nodes, ir.Node{
			ID: paramID, Kind: ir.NodeParameter, FQN: fqn, Name: name,
			FilePath: st.filePath, Span: parser.NodeSpan(p), ParentID: funcID,
			Attrs: map[string]any{"position": idx},
		})
		st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: funcID, TargetID: paramID})
		idx++
	}
}

// decoratorNamesFor walks back over the function definition's preceding
// siblings to find `decorated_definition` decorator nodes (tree-sitter
// Python nests the function_definition inside a decorated_definition when
// decorators are present).
func decoratorNamesFor(fn asNode, content []byte) []string {
	parent := fn.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var names []string
	for i := 0; i < int(parent.ChildCount()); i++ {
		c := parent.Child(i)
		if c.Type() != "decorator" {
			continue
		}
		names = append(names, parser.NodeText(c, content))
	}
	return names
}

// exprIsCall reports whether n is (or directly wraps) a call expression.
func exprIsCall(n *sitter.Node) bool {
	return n != nil && n.Type() == "call"
}
