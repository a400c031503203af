// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package pyplugin is the primary language plugin. It walks a tree-sitter
// Python AST and emits the flat ParseResult (nodes, edges, expressions,
// per-function statement streams) that pkg/irgen and pkg/cfg build on:
// functions first, then the calls within each.
package pyplugin

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
)

var builtins = map[string]bool{
	"str": true, "int": true, "float": true, "bool": true, "bytes": true,
	"list": true, "dict": true, "set": true, "tuple": true, "None": true,
	"object": true, "type": true, "Exception": true,
}

// Plugin implements parser.LanguagePlugin for Python.
type Plugin struct{}

// New returns a ready-to-register Python language plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Language() string { return "python" }

// NormalizeFQN joins scope parts with '.', matching the glossary's FQN
// example `pkg.mod.Class.method`; lambda parts are expected to already be
// pre-formatted as `<lambda_N>` by the caller.
func (p *Plugin) NormalizeFQN(parts ...string) string {
	var filtered []string
	for _, part := range parts {
		if part != "" {
			filtered = append(filtered, part)
		}
	}
	return strings.Join(filtered, ".")
}

func (p *Plugin) IsBuiltinType(name string) bool { return builtins[name] }

// walkState tracks the mutable counters a single Parse call needs: the
// lambda/comprehension disambiguator and a same-file name->id index for
// resolving local calls before the cross-file resolver runs.
type walkState struct {
	repoID      string
	filePath    string
	content     []byte
	plugin      *Plugin
	lambdaCount int
	result      *parser.ParseResult
	nameToID    map[string]string
}

// Parse walks the Python tree-sitter AST and produces a ParseResult.
func (p *Plugin) Parse(repoID, filePath string, content []byte) (*parser.ParseResult, error) {
	lang := python.GetLanguage()
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

	moduleFQN := moduleNameFromPath(filePath)
	st.result.PackageOrModule = moduleFQN

	moduleID := irgen.NodeID(repoID, ir.NodeModule, filePath, moduleFQN, 0)
	st.result.Nodes = append(st.result.Nodes, ir.Node{
		ID:       moduleID,
		Kind:     ir.NodeModule,
		FQN:      moduleFQN,
		Name:     moduleFQN,
		FilePath: filePath,
		Span:     parser.NodeSpan(pt.Root),
	})

	st.walkBlock(pt.Root, moduleFQN, moduleID)

	return st.result, nil
}

// moduleNameFromPath derives a Python-style dotted module name from a file
// path, e.g. "pkg/sub/mod.py" -> "pkg.sub.mod".
func moduleNameFromPath(filePath string) string {
	trimmed := strings.TrimSuffix(filePath, ".py")
	trimmed = strings.ReplaceAll(trimmed, "/", ".")
	return strings.Trim(trimmed, ".")
}

// asNode is a small convenience alias used across walk_*.go files in this
// package to keep signatures short.
type asNode = *sitter.Node
