// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package indexdoc

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/kragraph/kragraph/pkg/ir"
)

var pathSafe = regexp.MustCompile(`[/.\\]`)

const summaryMaxLen = 100

// Transformer builds IndexDocuments for one repo/snapshot, following
// the engine/index boundary (same repo_id/snapshot_id
// constructor shape, same per-node conversion responsibilities).
type Transformer struct {
	RepoID     string
	SnapshotID string
	Language   string
}

// NewTransformer constructs a Transformer for one build's repo/snapshot.
func NewTransformer(repoID, snapshotID, language string) *Transformer {
	return &Transformer{RepoID: repoID, SnapshotID: snapshotID, Language: language}
}

// FromNode converts one symbol node (file, module, class, function, method)
// into an IndexDocument. source is the node's enclosing file content, used
// to slice the [CODE] section from node.Span; a nil source degrades
// gracefully to an empty code section rather than failing, the same
// fallback applied when no separate chunker
// isn't available.
func (t *Transformer) FromNode(node ir.Node, source []byte, createdAt string) *IndexDocument {
	chunkID := t.chunkID(node)
	code := sliceSpan(source, node.Span)

	return &IndexDocument{
		ID:          chunkID,
		ChunkID:     chunkID,
		RepoID:      t.RepoID,
		SnapshotID:  t.SnapshotID,
		FilePath:    node.FilePath,
		Language:    t.Language,
		SymbolID:    node.ID,
		SymbolName:  node.Name,
		Content:     t.buildContent(node, code),
		Identifiers: extractIdentifiers(node, code),
		Tags:        t.buildTags(node),
		StartLine:   node.Span.Start.Line,
		EndLine:     node.Span.End.Line,
		CreatedAt:   createdAt,
	}
}

// FromNodes batches FromNode over every node in a file, keyed by the same
// source bytes.
func (t *Transformer) FromNodes(nodes []ir.Node, source []byte, createdAt string) []*IndexDocument {
	docs := make([]*IndexDocument, 0, len(nodes))
	for _, n := range nodes {
		if !isChunkable(n.Kind) {
			continue
		}
		docs = append(docs, t.FromNode(n, source, createdAt))
	}
	return docs
}

func isChunkable(k ir.NodeKind) bool {
	switch k {
	case ir.NodeFile, ir.NodeModule, ir.NodeClass, ir.NodeFunction, ir.NodeMethod:
		return true
	default:
		return false
	}
}

func (t *Transformer) chunkID(node ir.Node) string {
	safe := pathSafe.ReplaceAllString(node.FilePath, "_")
	return fmt.Sprintf("sym:%s:%s:%d-%d", t.RepoID, safe, node.Span.Start.Line, node.Span.End.Line)
}

// buildContent produces the structured, index-optimized content field:
// "[SUMMARY]...[SIGNATURE]...[CODE]...[META] k=v ...".
func (t *Transformer) buildContent(node ir.Node, code string) string {
	var parts []string

	if summary := t.summary(node, code); summary != "" {
		parts = append(parts, "[SUMMARY] "+summary)
	}
	if sig := signature(node); sig != "" {
		parts = append(parts, "[SIGNATURE] "+sig)
	}
	if code != "" {
		parts = append(parts, "[CODE]\n"+code)
	}

	meta := []string{
		"file=" + node.FilePath,
		"kind=" + string(node.Kind),
	}
	if t.Language != "" {
		meta = append(meta, "lang="+t.Language)
	}
	parts = append(parts, "[META] "+strings.Join(meta, " "))

	return strings.Join(parts, "\n\n")
}

// summary prefers an explicit attrs["summary"] (e.g. from a docstring
// pass), then attrs["doc_comment"], then the code body; the last two are
// truncated to a 100-char cap.
func (t *Transformer) summary(node ir.Node, code string) string {
	if s, ok := stringAttr(node, "summary"); ok {
		return s
	}
	if s, ok := stringAttr(node, "doc_comment"); ok {
		return truncate(strings.TrimSpace(s), summaryMaxLen)
	}
	return truncate(strings.TrimSpace(code), summaryMaxLen)
}

func signature(node ir.Node) string {
	if s, ok := stringAttr(node, "signature"); ok {
		return s
	}
	if node.Kind == ir.NodeFunction || node.Kind == ir.NodeMethod {
		return node.FQN
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func stringAttr(node ir.Node, key string) (string, bool) {
	if node.Attrs == nil {
		return "", false
	}
	v, ok := node.Attrs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

func sliceSpan(source []byte, span ir.Span) string {
	if len(source) == 0 {
		return ""
	}
	lines := strings.Split(string(source), "\n")
	start, end := span.Start.Line-1, span.End.Line
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return ""
	}
	return strings.Join(lines[start:end], "\n")
}

var identifierPattern = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]{2,}\b`)

// extractIdentifiers collects the
// node's own name, its file's base name, and bare-word tokens pulled from
// the code body (a coarse substitute for per-language AST symbol
// extraction, adequate for search-index recall rather than precision).
func extractIdentifiers(node ir.Node, code string) []string {
	set := make(map[string]struct{})
	if node.Name != "" {
		set[strings.ToLower(node.Name)] = struct{}{}
	}
	if node.FilePath != "" {
		base := node.FilePath
		if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
			base = base[idx+1:]
		}
		base = strings.TrimSuffix(base, ".py")
		set[strings.ToLower(strings.ReplaceAll(base, "_", " "))] = struct{}{}
	}
	for _, m := range identifierPattern.FindAllString(code, -1) {
		set[strings.ToLower(m)] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// buildTags builds the tag map, adding repomap_score
// when the node carries a PageRank-style importance attr;
// nothing in this module currently computes that score, so the tag is
// simply passed through when an upstream pass has already set it.
func (t *Transformer) buildTags(node ir.Node) map[string]string {
	tags := map[string]string{
		"kind": string(node.Kind),
	}
	if t.Language != "" {
		tags["language"] = t.Language
	}
	if score, ok := node.Attrs["repomap_score"]; ok {
		tags["repomap_score"] = fmt.Sprintf("%v", score)
	}
	return tags
}
