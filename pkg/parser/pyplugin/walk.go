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

// walkBlock recurses over a module/class/function body, registering
// function and class definitions, imports, and module-level assignments.
// scopeFQN is the enclosing scope's FQN; parentID is its node id (CONTAINS
// edges point from parentID to whatever is discovered directly below it).
func (st *walkState) walkBlock(n asNode, scopeFQN, parentID string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function_definition":
			st.walkFunction(child, scopeFQN, parentID, ir.NodeFunction)
		case "class_definition":
			st.walkClass(child, scopeFQN, parentID)
		case "import_statement", "import_from_statement":
			st.walkImport(child, parentID)
		case "expression_statement":
			st.walkTopLevelAssignment(child, scopeFQN, parentID)
		default:
			st.walkBlock(child, scopeFQN, parentID)
		}
	}
}

func (st *walkState) walkClass(n asNode, scopeFQN, parentID string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, st.content)
	fqn := st.plugin.NormalizeFQN(scopeFQN, name)
	classID := irgen.NodeID(st.repoID, ir.NodeClass, st.filePath, fqn, 0)

	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: classID, Kind: ir.NodeClass, FQN: fqn, Name: name,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: classID})

	if argList := n.ChildByFieldName("superclasses"); argList != nil {
		for i := 0; i < int(argList.ChildCount()); i++ {
			c := argList.Child(i)
			if c.Type() != "identifier" {
				continue
			}
			baseName := parser.NodeText(c, st.content)
			target := st.resolveLocalOrExternal(baseName)
			st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeInherits, SourceID: classID, TargetID: target})
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	for i := 0; i < int(body.ChildCount()); i++ {
		child := body.Child(i)
		if child.Type() == "function_definition" {
			st.walkFunction(child, fqn, classID, ir.NodeMethod)
		} else {
			st.walkBlock(child, fqn, classID)
		}
	}
}

func (st *walkState) walkImport(n asNode, parentID string) {
	text := parser.NodeText(n, st.content)
	importID := irgen.NodeID(st.repoID, ir.NodeImport, st.filePath, text, len(st.result.Nodes))
	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: importID, Kind: ir.NodeImport, FQN: text, Name: text,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
		Attrs: map[string]any{"raw": text},
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: importID})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeImports, SourceID: parentID, TargetID: importID})
}

// walkTopLevelAssignment records module/class-level `x = expr` statements as
// variable nodes with a WRITES edge, classifying the RHS
// (literal/call/attribute) via attrs.role.
func (st *walkState) walkTopLevelAssignment(n asNode, scopeFQN, parentID string) {
	assign := firstChildOfType(n, "assignment")
	if assign == nil {
		return
	}
	left := assign.ChildByFieldName("left")
	right := assign.ChildByFieldName("right")
	if left == nil || left.Type() != "identifier" {
		return
	}
	name := parser.NodeText(left, st.content)
	fqn := st.plugin.NormalizeFQN(scopeFQN, name)
	varID := irgen.NodeID(st.repoID, ir.NodeVariable, st.filePath, fqn, int(n.StartByte()))
	role := classifyRHS(right)
	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: varID, Kind: ir.NodeVariable, FQN: fqn, Name: name,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
		Attrs: map[string]any{"role": role},
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: varID})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeWrites, SourceID: parentID, TargetID: varID})
}

// classifyRHS classifies an assignment's right-hand side as literal
// (immediate type), call (deferred), or attribute (deferred).
func classifyRHS(right asNode) string {
	if right == nil {
		return "unknown"
	}
	switch right.Type() {
	case "string", "integer", "float", "true", "false", "none", "list", "dictionary", "set", "tuple":
		return "literal"
	case "call":
		return "call"
	case "attribute":
		return "attribute"
	default:
		return "deferred"
	}
}

func firstChildOfType(n asNode, t string) *sitter.Node {
	if n.Type() == t {
		return n
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.Type() == t {
			return c
		}
	}
	return nil
}

// resolveLocalOrExternal returns a node id for a same-file simple name if
// one has already been registered, or a synthetic External:* id
// otherwise; the cross-file resolver (pkg/resolver) later upgrades
// unresolved cross-file references using the full GlobalContext.
func (st *walkState) resolveLocalOrExternal(name string) string {
	if id, ok := st.nameToID[name]; ok {
		return id
	}
	return ir.ExternalNodeID(name)
}
