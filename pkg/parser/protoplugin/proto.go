// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package protoplugin parses protobuf definition files with a line-based
// scanner (tree-sitter has no bundled proto grammar) and emits services,
// RPCs, messages and enums as IR nodes. Proto files carry no executable
// statements, so the plugin never produces functions for the CFG builder;
// its value is the symbol and containment surface cross-file queries see.
package protoplugin

import (
	"strings"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
)

var builtins = map[string]bool{
	"double": true, "float": true, "int32": true, "int64": true,
	"uint32": true, "uint64": true, "sint32": true, "sint64": true,
	"fixed32": true, "fixed64": true, "sfixed32": true, "sfixed64": true,
	"bool": true, "string": true, "bytes": true,
}

// Plugin implements parser.LanguagePlugin for protobuf definition files.
type Plugin struct{}

// New returns a ready-to-register protobuf language plugin.
func New() *Plugin { return &Plugin{} }

func (p *Plugin) Language() string { return "protobuf" }

// NormalizeFQN joins scope parts with '.', the separator proto packages and
// nested messages both use.
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

// Parse scans content line by line, tracking brace depth to delimit
// service/message/enum blocks the way the original proto scanner did.
func (p *Plugin) Parse(repoID, filePath string, content []byte) (*parser.ParseResult, error) {
	res := &parser.ParseResult{}
	lines := strings.Split(string(content), "\n")

	pkg := packageName(lines)
	res.PackageOrModule = pkg

	moduleID := irgen.NodeID(repoID, ir.NodeModule, filePath, pkg, 0)
	res.Nodes = append(res.Nodes, ir.Node{
		ID:       moduleID,
		Kind:     ir.NodeModule,
		FQN:      pkg,
		Name:     pkg,
		FilePath: filePath,
		Span:     spanFor(1, len(lines)+1),
	})

	var currentService string
	var currentServiceID string
	serviceStart := 0
	depth := 0

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") {
			continue
		}

		if currentService != "" {
			depth += strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
			if strings.HasPrefix(trimmed, "rpc ") {
				if name := rpcName(trimmed); name != "" {
					fqn := p.NormalizeFQN(pkg, currentService, name)
					id := irgen.NodeID(repoID, ir.NodeMethod, filePath, fqn, 0)
					res.Nodes = append(res.Nodes, ir.Node{
						ID:       id,
						Kind:     ir.NodeMethod,
						FQN:      fqn,
						Name:     name,
						FilePath: filePath,
						Span:     spanFor(lineNum, lineNum+1),
						ParentID: currentServiceID,
						Attrs:    map[string]any{"signature": rpcSignature(trimmed)},
					})
					res.Edges = append(res.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: currentServiceID, TargetID: id})
				}
			}
			if depth == 0 {
				res.Nodes = appendSpanEnd(res.Nodes, currentServiceID, lineNum+1)
				currentService = ""
			}
			continue
		}

		keyword, name := blockHeader(trimmed)
		switch keyword {
		case "service":
			fqn := p.NormalizeFQN(pkg, name)
			currentServiceID = irgen.NodeID(repoID, ir.NodeClass, filePath, fqn, 0)
			currentService = name
			serviceStart = lineNum
			depth = strings.Count(trimmed, "{") - strings.Count(trimmed, "}")
			res.Nodes = append(res.Nodes, ir.Node{
				ID:       currentServiceID,
				Kind:     ir.NodeClass,
				FQN:      fqn,
				Name:     name,
				FilePath: filePath,
				Span:     spanFor(serviceStart, serviceStart+1),
				ParentID: moduleID,
				Attrs:    map[string]any{"proto_kind": "service"},
			})
			res.Edges = append(res.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: moduleID, TargetID: currentServiceID})
			if depth == 0 {
				currentService = ""
			}
		case "message", "enum":
			end := blockEnd(lines, i)
			fqn := p.NormalizeFQN(pkg, name)
			id := irgen.NodeID(repoID, ir.NodeClass, filePath, fqn, 0)
			res.Nodes = append(res.Nodes, ir.Node{
				ID:       id,
				Kind:     ir.NodeClass,
				FQN:      fqn,
				Name:     name,
				FilePath: filePath,
				Span:     spanFor(lineNum, end+1),
				ParentID: moduleID,
				Attrs:    map[string]any{"proto_kind": keyword},
			})
			res.Edges = append(res.Edges, ir.Edge{Kind: ir.EdgeContains, SourceID: moduleID, TargetID: id})
		}
	}

	return res, nil
}

// packageName finds the first `package x.y;` declaration, falling back to
// an empty package the way proto itself treats a missing declaration.
func packageName(lines []string) string {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "package ") {
			rest := strings.TrimPrefix(trimmed, "package ")
			if idx := strings.Index(rest, ";"); idx >= 0 {
				return strings.TrimSpace(rest[:idx])
			}
		}
	}
	return ""
}

// blockHeader matches `service Name {`, `message Name {`, `enum Name {`.
func blockHeader(trimmed string) (keyword, name string) {
	for _, kw := range []string{"service", "message", "enum"} {
		if strings.HasPrefix(trimmed, kw+" ") && strings.Contains(trimmed, "{") {
			parts := strings.Fields(trimmed)
			if len(parts) >= 2 {
				return kw, strings.TrimSuffix(parts[1], "{")
			}
		}
	}
	return "", ""
}

// rpcName extracts the method name from an `rpc Name(Req) returns (Resp)` line.
func rpcName(trimmed string) string {
	rest := strings.TrimPrefix(trimmed, "rpc ")
	idx := strings.Index(rest, "(")
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:idx])
}

// rpcSignature keeps everything up to the trailing `;` or options block.
func rpcSignature(trimmed string) string {
	end := len(trimmed)
	if i := strings.Index(trimmed, ";"); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(trimmed, "{"); i >= 0 && i < end {
		end = i
	}
	return strings.TrimSpace(trimmed[:end])
}

// blockEnd returns the 1-based line on which the block opened at startIdx
// closes, tracking brace depth across lines.
func blockEnd(lines []string, startIdx int) int {
	depth := 0
	started := false
	for i := startIdx; i < len(lines); i++ {
		depth += strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		if !started && strings.Contains(lines[i], "{") {
			started = true
		}
		if started && depth == 0 {
			return i + 1
		}
	}
	return len(lines)
}

func spanFor(startLine, endLine int) ir.Span {
	return ir.Span{
		Start: ir.Position{Line: startLine, Column: 1},
		End:   ir.Position{Line: endLine, Column: 1},
	}
}

// appendSpanEnd closes the span of the node with id once its block's end
// line is known; services are emitted when their header is seen, before
// the closing brace has been reached.
func appendSpanEnd(nodes []ir.Node, id string, endLine int) []ir.Node {
	for i := range nodes {
		if nodes[i].ID == id {
			nodes[i].Span.End = ir.Position{Line: endLine, Column: 1}
		}
	}
	return nodes
}
