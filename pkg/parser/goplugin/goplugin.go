// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package goplugin is the secondary language plugin. It walks
// a tree-sitter Go AST into the same flat ParseResult shape pyplugin
// produces, reusing the pkg/parser/treesitter.go infrastructure both
// plugins share: function_declaration/method_declaration nodes,
// selector_expression callee names, struct_type/interface_type kinds, all
// behind the same LanguagePlugin contract pyplugin implements.
package goplugin

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
)

var builtins = map[string]bool{
	"string": true, "bool": true, "byte": true, "rune": true, "error": true,
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"float32": true, "float64": true, "complex64": true, "complex128": true,
	"any": true, "interface{}": true,
}

// Plugin implements parser.LanguagePlugin for Go.
type Plugin struct{}

// New returns a ready-to-register Go language plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Language() string { return "go" }

// NormalizeFQN joins scope parts with '.', matching pyplugin's convention so
// cross-language FQN comparisons (e.g. the taint compiler's base_type
// resolution) don't need a per-language separator table.
func (p *Plugin) NormalizeFQN(parts ...string) string {
	var filtered []string
	for _, part := range parts {
		if part != "" {
			filtered = append(filtered, part)
		}
	}
	return strings.Join(filtered, ".")
}

func (p *Plugin) IsBuiltinType(name string) bool { return builtins[strings.TrimPrefix(name, "*")] }

// walkState mirrors pyplugin's walkState: the per-file counters and a
// same-file name->id index resolving local calls before pkg/resolver's
// cross-file pass runs.
type walkState struct {
	repoID      string
	filePath    string
	content     []byte
	plugin      *Plugin
	result      *parser.ParseResult
	nameToID    map[string]string
	lambdaCount int
}

// Parse walks the Go tree-sitter AST and produces a ParseResult.
func (p *Plugin) Parse(repoID, filePath string, content []byte) (*parser.ParseResult, error) {
	lang := golang.GetLanguage()
	pt, err := parser.ParseWithGrammar(lang, content, filePath)
	if err != nil {
		return nil, err
	}
	defer pt.Close()

	st := &walkState{
		repoID:   repoID,
		filePath: filePath,
		content:  content,
		plugin:   p,
		result:   &parser.ParseResult{},
		nameToID: make(map[string]string),
	}
	if pt.Diagnostic != nil {
		st.result.Diagnostics = append(st.result.Diagnostics, *pt.Diagnostic)
	}

	pkgName := packageNameFromRoot(pt.Root, content)
	if pkgName == "" {
		pkgName = moduleNameFromPath(filePath)
	}
	st.result.PackageOrModule = pkgName

	moduleID := irgen.NodeID(repoID, ir.NodeModule, filePath, pkgName, 0)
	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID:       moduleID,
		Kind:     ir.NodeModule,
		FQN:      pkgName,
		Name:     pkgName,
		FilePath: filePath,
		Span:     parser.NodeSpan(pt.Root),
	})

	st.walkBlock(pt.Root, pkgName, moduleID)

	return st.result, nil
}

func packageNameFromRoot(root asNode, content []byte) string {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child.Type() != "package_clause" {
			continue
		}
		if nameNode := child.ChildByFieldName("name"); nameNode != nil {
			return parser.NodeText(nameNode, content)
		}
	}
	return ""
}

// moduleNameFromPath derives a fallback package name from the file path,
// e.g. "pkg/sub/file.go" -> "sub", the last directory component since a
// Go package name can't be recovered from a missing package_clause. A path
// with no directory falls back to the file's base name.
func moduleNameFromPath(filePath string) string {
	parts := strings.Split(filePath, "/")
	if len(parts) < 2 {
		return strings.TrimSuffix(filePath, ".go")
	}
	return parts[len(parts)-2]
}

// asNode is a small convenience alias used across this package's walk_*.go
// files, matching pyplugin's.
type asNode = *sitter.Node
