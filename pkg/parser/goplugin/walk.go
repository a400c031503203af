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
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
)

// walkBlock recurses over the source_file (or a type block's contents),
// registering function/method/type declarations, imports, and top-level
// var/const declarations, mirroring pyplugin's walkBlock.
func (st *walkState) walkBlock(n asNode, scopeFQN, parentID string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function_declaration":
			st.walkFunction(child, scopeFQN, parentID)
		case "method_declaration":
			st.walkMethod(child, scopeFQN, parentID)
		case "type_declaration":
			st.walkTypeDeclaration(child, scopeFQN, parentID)
		case "import_declaration":
			st.walkImport(child, parentID)
		case "var_declaration", "const_declaration":
			st.walkTopLevelVarOrConst(child, scopeFQN, parentID)
		default:
			// package_clause and other leaf nodes carry nothing to extract.
		}
	}
}

// walkTypeDeclaration handles both single type specs (type Foo struct{...})
// and type blocks (type ( Foo struct{...}; Bar interface{...} )), emitting
// one node per declared type spec.
func (st *walkState) walkTypeDeclaration(n asNode, scopeFQN, parentID string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "type_spec":
			st.walkTypeSpec(child, scopeFQN, parentID)
		case "type_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "type_spec" {
					st.walkTypeSpec(spec, scopeFQN, parentID)
				}
			}
		}
	}
}

func (st *walkState) walkTypeSpec(n asNode, scopeFQN, parentID string) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := parser.NodeText(nameNode, st.content)
	fqn := st.plugin.NormalizeFQN(scopeFQN, name)
	typeNode := n.ChildByFieldName("type")
	goKind := determineGoKind(typeNode)
	classID := irgen.NodeID(st.repoID, ir.NodeClass, st.filePath, fqn, 0)
	st.nameToID[name] = classID

	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: classID, Kind: ir.NodeClass, FQN: fqn, Name: name,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
		Attrs: map[string]any{"go_kind": goKind},
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: classID})

	switch goKind {
	case "struct":
		st.walkStructFields(typeNode, fqn, classID)
	case "interface":
		st.walkInterfaceMethods(typeNode, fqn, classID)
	}
}

func determineGoKind(typeNode asNode) string {
	if typeNode == nil {
		return "alias"
	}
	switch typeNode.Type() {
	case "struct_type":
		return "struct"
	case "interface_type":
		return "interface"
	default:
		return "alias"
	}
}

// walkStructFields registers each field_declaration as a NodeField, the
// closest IR analogue to a class attribute.
func (st *walkState) walkStructFields(structType asNode, scopeFQN, parentID string) {
	if structType == nil {
		return
	}
	fieldList := firstChildOfType(structType, "field_declaration_list")
	if fieldList == nil {
		return
	}
	for i := 0; i < int(fieldList.ChildCount()); i++ {
		decl := fieldList.Child(i)
		if decl.Type() != "field_declaration" {
			continue
		}
		nameNode := decl.ChildByFieldName("name")
		if nameNode == nil {
			// embedded field: the type node itself names it
			nameNode = decl.ChildByFieldName("type")
		}
		if nameNode == nil {
			continue
		}
		name := parser.NodeText(nameNode, st.content)
		fqn := st.plugin.NormalizeFQN(scopeFQN, name)
		fieldID := irgen.NodeID(st.repoID, ir.NodeField, st.filePath, fqn, i)
		st.result.Nodes = append(st.result.Nodes, ir.Node{
			ID: fieldID, Kind: ir.NodeField, FQN: fqn, Name: name,
			FilePath: st.filePath, Span: parser.NodeSpan(decl), ParentID: parentID,
		})
		st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: fieldID})
	}
}

// walkInterfaceMethods registers each interface method elision as a
// NodeMethod with no body, so the taint compiler's base_type resolution can
// still match calls against the interface's declared surface.
func (st *walkState) walkInterfaceMethods(ifaceType asNode, scopeFQN, parentID string) {
	if ifaceType == nil {
		return
	}
	for i := 0; i < int(ifaceType.ChildCount()); i++ {
		spec := ifaceType.Child(i)
		if spec.Type() != "method_elem" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := parser.NodeText(nameNode, st.content)
		fqn := st.plugin.NormalizeFQN(scopeFQN, name)
		methodID := irgen.NodeID(st.repoID, ir.NodeMethod, st.filePath, fqn, i)
		st.result.Nodes = append(st.result.Nodes, ir.Node{
			ID: methodID, Kind: ir.NodeMethod, FQN: fqn, Name: name,
			FilePath: st.filePath, Span: parser.NodeSpan(spec), ParentID: parentID,
			Attrs: map[string]any{"abstract": true},
		})
		st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: methodID})
	}
}

// walkImport registers IMPORT nodes for both `import "fmt"` and
// grouped `import ( ... )` declarations.
func (st *walkState) walkImport(n asNode, parentID string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "import_spec":
			st.registerImportSpec(child, parentID)
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if spec := child.Child(j); spec.Type() == "import_spec" {
					st.registerImportSpec(spec, parentID)
				}
			}
		}
	}
}

func (st *walkState) registerImportSpec(n asNode, parentID string) {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return
	}
	importPath := trimQuotes(parser.NodeText(pathNode, st.content))
	alias := ""
	if nameNode := n.ChildByFieldName("name"); nameNode != nil {
		alias = parser.NodeText(nameNode, st.content)
	}

	importID := irgen.NodeID(st.repoID, ir.NodeImport, st.filePath, importPath, len(st.result.Nodes))
	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID: importID, Kind: ir.NodeImport, FQN: importPath, Name: importPath,
		FilePath: st.filePath, Span: parser.NodeSpan(n), ParentID: parentID,
		Attrs: map[string]any{"alias": alias},
	})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: importID})
	st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeImports, SourceID: parentID, TargetID: importID})
}

// walkTopLevelVarOrConst records package-level `var x = expr` and
// `const x = expr` declarations as variable nodes, classifying the RHS the
// way pyplugin's classifyRHS does for module-level assignments.
func (st *walkState) walkTopLevelVarOrConst(n asNode, scopeFQN, parentID string) {
	for i := 0; i < int(n.ChildCount()); i++ {
		spec := n.Child(i)
		if spec.Type() != "var_spec" && spec.Type() != "const_spec" {
			continue
		}
		nameNode := spec.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := parser.NodeText(nameNode, st.content)
		fqn := st.plugin.NormalizeFQN(scopeFQN, name)
		value := spec.ChildByFieldName("value")
		varID := irgen.NodeID(st.repoID, ir.NodeVariable, st.filePath, fqn, int(spec.StartByte()))
		st.result.Nodes = append(st.result.Nodes, ir.Node{
			ID: varID, Kind: ir.NodeVariable, FQN: fqn, Name: name,
			FilePath: st.filePath, Span: parser.NodeSpan(spec), ParentID: parentID,
			Attrs: map[string]any{"role": classifyRHS(value)},
		})
		st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: parentID, TargetID: varID})
		st.result.Edges = append(st.result.Edges, ir.Edge{Kind: ir.EdgeWrites, SourceID: parentID, TargetID: varID})
	}
}

// classifyRHS implements the same literal/call/deferred split pyplugin's
// classifyRHS uses, against Go's composite/call expression shapes.
func classifyRHS(right asNode) string {
	if right == nil {
		return "unknown"
	}
	switch right.Type() {
	case "int_literal", "float_literal", "imaginary_literal", "rune_literal",
		"interpreted_string_literal", "raw_string_literal", "true", "false",
		"nil", "composite_literal":
		return "literal"
	case "call_expression":
		return "call"
	case "selector_expression":
		return "attribute"
	default:
		return "deferred"
	}
}

func trimQuotes(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '`') {
		return s[1 : len(s)-1]
	}
	return s
}

func firstChildOfType(n asNode, t string) asNode {
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
// one has already been registered, or a synthetic External:* id otherwise,
// matching pyplugin's resolver of the same name.
func (st *walkState) resolveLocalOrExternal(name string) string {
	if id, ok := st.nameToID[name]; ok {
		return id
	}
	return ir.ExternalNodeID(name)
}
