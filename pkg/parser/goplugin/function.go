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
	"strings"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
)

// walkFunction registers a top-level func declaration, matching pyplugin's
// walkFunction: node + parameters + a flat statement stream for pkg/cfg.
func (st *walkState) walkFunction(n asNode, scopeFQN, parentID string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, st.content)
	fqn := st.plugin.NormalizeFQN(scopeFQN, name)
	funcID := irgen.NodeID(st.repoID, ir.NodeFunction, st.filePath, fqn, 0)
	st.nameToID[name] = funcID

	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: funcID, Kind: ir.NodeFunction, FQN: fqn, Name: name,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: funcID})

	st.walkParameters(n, fqn, funcID)
	st.walkFunctionBody(n, funcID)
}

// walkMethod registers a method declaration, resolving its receiver's
// base type (stripping pointer/generic wrapping), and parents the method under the
// receiver's struct node when one was already discovered in this file.
func (st *walkState) walkMethod(n asNode, scopeFQN, parentID string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, st.content)
	receiverType := receiverBaseType(n, st.content)

	scope := scopeFQN
	owner := parentID
	if receiverType != "" {
		scope = st.plugin.NormalizeFQN(scopeFQN, receiverType)
		if id, ok := st.nameToID[receiverType]; ok {
			owner = id
		}
	}
	fqn := st.plugin.NormalizeFQN(scope, name)
	methodID := irgen.NodeID(st.repoID, ir.NodeMethod, st.filePath, fqn, 0)
	// Methods are looked up by simple name for call resolution, matching
	// a same-file name->id map keyed on the bare function name.
	st.nameToID[name] = methodID

	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: methodID, Kind: ir.NodeMethod, FQN: fqn, Name: name,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: owner,
		Attrs: map[string]any{"receiver_type": receiverType},
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: owner, TargetID: methodID})

	st.walkParameters(n, fqn, methodID)
	st.walkFunctionBody(n, methodID)
}

func (st *walkState) walkFunctionBody(n asNode, funcID string) {
	body := n.ChildByFieldName("body")
	pf := parser.ParsedFunction{Node: mustLastNode(st.result.Nodes)}
	if body != nil {
		seq := newStatementSequencer(st, funcID)
		seq.walkSuite(body)
		pf.Statements = seq.orderedStatements()
		pf.StatementOrder = seq.order
	}
	st.result.Functions = append(st.result.Functions, pf)
}

func mustLastNode(nodes []ir.Node) ir.Node {
	return nodes[len(nodes)-1]
}

// receiverBaseType extracts the struct name a method is declared on via
// the parameter_list > parameter_declaration > type walk, stripping
// pointer and generic wrapping.
func receiverBaseType(methodDecl asNode, content []byte) string {
	receiver := methodDecl.ChildByFieldName("receiver")
	if receiver == nil {
		return ""
	}
	for i := 0; i < int(receiver.ChildCount()); i++ {
		child := receiver.Child(i)
		if child.Type() != "parameter_declaration" {
			continue
		}
		typeNode := child.ChildByFieldName("type")
		if typeNode != nil {
			return baseTypeName(typeNode, content)
		}
	}
	return ""
}

func baseTypeName(typeNode asNode, content []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			if c := typeNode.Child(i); c.Type() != "*" {
				return baseTypeName(c, content)
			}
		}
		return ""
	case "generic_type":
		if name := typeNode.ChildByFieldName("type"); name != nil {
			return parser.NodeText(name, content)
		}
		return ""
	case "type_identifier":
		return parser.NodeText(typeNode, content)
	default:
		text := strings.TrimPrefix(parser.NodeText(typeNode, content), "*")
		if idx := strings.Index(text, "["); idx > 0 {
			text = text[:idx]
		}
		return text
	}
}

// walkParameters registers each parameter_declaration as a NodeParameter,
// skipping the receiver (handled separately by walkMethod) and blank
// identifiers, matching pyplugin's self/cls skip.
func (st *walkState) walkParameters(fn asNode, scopeFQN, funcID string) {
	params := fn.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	idx := 0
	for i := 0; i < int(params.ChildCount()); i++ {
		decl := params.Child(i)
		if decl.Type() != "parameter_declaration" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			idx++
			continue
		}
		name := parser.NodeText(nameNode, st.content)
		if name == "" || name == "_" {
			idx++
			continue
		}
		fqn := st.plugin.NormalizeFQN(scopeFQN, name)
		paramID := irgen.NodeID(st.repoID, ir.NodeParameter, st.filePath, fqn, idx)
		st.result.Nodes = append(st.result.Nodes, ir.Node{
			ID: paramID, Kind: ir.NodeParameter, FQN: fqn, Name: name,
			FilePath: st.filePath, Span: parser.NodeSpan(decl), ParentID: funcID,
			Attrs: map[string]any{"position": idx},
		})
		st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: funcID, TargetID: paramID})
		idx++
	}
}
