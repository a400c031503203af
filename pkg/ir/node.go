// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package ir defines the layered intermediate representation shared by the
// parser, IR generator, CFG/SSA builder, cross-file resolver and the query
// and taint engines: files, nodes, edges, basic blocks and SSA structures.
package ir

import "fmt"

// NodeKind enumerates the IR element kinds a language plugin can emit.
type NodeKind string

const (
	NodeFile      NodeKind = "file"
	NodeModule    NodeKind = "module"
	NodeClass     NodeKind = "class"
	NodeFunction  NodeKind = "function"
	NodeMethod    NodeKind = "method"
	NodeParameter NodeKind = "parameter"
	NodeVariable  NodeKind = "variable"
	NodeField     NodeKind = "field"
	NodeLambda    NodeKind = "lambda"
	NodeImport    NodeKind = "import"
)

// Position is a line+column location, one-based line, zero-based column.
// The column follows tree-sitter's point convention; tree-sitter rows are
// zero-based and parser.NodeSpan shifts them by one.
type Position struct {
	Line   int
	Column int
}

// Span is closed-open: [Start, End).
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether s fully encloses other.
func (s Span) Contains(other Span) bool {
	if before(other.Start, s.Start) {
		return false
	}
	if before(s.End, other.End) {
		return false
	}
	return true
}

func before(a, b Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

// Node is a single IR element: file, module, class, function, etc.
type Node struct {
	ID       string
	Kind     NodeKind
	FQN      string
	Name     string
	FilePath string
	Span     Span
	ParentID string
	Attrs    map[string]any
}

// ExternalNodeID builds the synthetic id used for cross-file references that
// cannot be resolved to a concrete node within the owning IRDocument.
func ExternalNodeID(symbol string) string {
	return fmt.Sprintf("External:%s", symbol)
}

// IsExternal reports whether id names a synthetic external node.
func IsExternal(id string) bool {
	return len(id) >= len("External:") && id[:len("External:")] == "External:"
}
