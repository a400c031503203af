// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package parser

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kragraph/kragraph/pkg/ir"
)

// ParsedTree bundles a tree-sitter tree with its root node and any
// syntax-error diagnostic, so callers remember to Close it once done walking.
type ParsedTree struct {
	Tree     *sitter.Tree
	Root     *sitter.Node
	Diagnostic *ir.Diagnostic
}

// Close releases the underlying tree-sitter tree.
func (t *ParsedTree) Close() {
	if t.Tree != nil {
		t.Tree.Close()
	}
}

// ParseWithGrammar runs a tree-sitter grammar over content. Tree-sitter is
// error-tolerant: a syntax error produces a non-nil Diagnostic alongside a
// still-usable (partial) tree rather than a hard failure.
// Language plugins in sibling packages (pyplugin, goplugin, ...) call this
// shared entry point instead of reimplementing parser setup.
func ParseWithGrammar(lang *sitter.Language, content []byte, filePath string) (*ParsedTree, error) {
	p := sitter.NewParser()
	p.SetLanguage(lang)

	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, fmt.Errorf("parser: tree-sitter parse %s: %w", filePath, err)
	}

	root := tree.RootNode()
	pt := &ParsedTree{Tree: tree, Root: root}
	if root.HasError() {
		if count := CountErrorNodes(root); count > 0 {
			pt.Diagnostic = &ir.Diagnostic{
				Code:    "PARSE_SYNTAX_ERRORS",
				Message: fmt.Sprintf("%d syntax error node(s) in %s", count, filePath),
			}
		}
	}
	return pt, nil
}

// CountErrorNodes walks the tree counting ERROR nodes.
func CountErrorNodes(n *sitter.Node) int {
	count := 0
	if n.IsError() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		count += CountErrorNodes(n.Child(i))
	}
	return count
}

// NodeSpan converts a tree-sitter node's byte-oriented points into the IR's
// line+column Span (closed-open). Tree-sitter rows are
// zero-based; the IR's line numbers are one-based.
func NodeSpan(n *sitter.Node) ir.Span {
	start := n.StartPoint()
	end := n.EndPoint()
	return ir.Span{
		Start: ir.Position{Line: int(start.Row) + 1, Column: int(start.Column)},
		End:   ir.Position{Line: int(end.Row) + 1, Column: int(end.Column)},
	}
}

// NodeText returns the source slice covered by n.
func NodeText(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

// ChildByFieldText is NodeText applied to n's named field child, or "" if
// the field is absent.
func ChildByFieldText(n *sitter.Node, field string, content []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return NodeText(c, content)
}
