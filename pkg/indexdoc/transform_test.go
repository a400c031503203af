// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package indexdoc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/indexdoc"
	"github.com/kragraph/kragraph/pkg/ir"
)

func sampleNode() ir.Node {
	return ir.Node{
		ID:       "app.py#handle",
		Kind:     ir.NodeFunction,
		FQN:      "app.handle",
		Name:     "handle",
		FilePath: "app.py",
		Span: ir.Span{
			Start: ir.Position{Line: 1},
			End:   ir.Position{Line: 3},
		},
	}
}

func TestFromNode_BuildsStructuredContent(t *testing.T) {
	tr := indexdoc.NewTransformer("repo1", "snap1", "python")
	src := []byte("def handle(request):\n    return do_query(request)\n")

	doc := tr.FromNode(sampleNode(), src, "2026-08-02T00:00:00Z")

	require.Equal(t, "repo1", doc.RepoID)
	require.Equal(t, "snap1", doc.SnapshotID)
	require.Equal(t, "app.py#handle", doc.SymbolID)
	require.Contains(t, doc.Content, "[SIGNATURE] app.handle")
	require.Contains(t, doc.Content, "[CODE]\ndef handle(request):")
	require.Contains(t, doc.Content, "[META] file=app.py kind=function lang=python")
	require.Contains(t, doc.Identifiers, "handle")
	require.Contains(t, doc.Identifiers, "request")
	require.Equal(t, "function", doc.Tags["kind"])
}

func TestFromNode_MissingSourceDegradesGracefully(t *testing.T) {
	tr := indexdoc.NewTransformer("repo1", "snap1", "python")

	doc := tr.FromNode(sampleNode(), nil, "2026-08-02T00:00:00Z")

	require.NotContains(t, doc.Content, "[CODE]")
	require.Contains(t, doc.Content, "[META]")
}

func TestFromNode_SummaryTruncatesAt100Chars(t *testing.T) {
	tr := indexdoc.NewTransformer("repo1", "snap1", "python")
	long := strings.Repeat("x", 150)
	node := sampleNode()
	node.Attrs = map[string]any{"doc_comment": long}

	doc := tr.FromNode(node, nil, "2026-08-02T00:00:00Z")

	require.True(t, strings.HasSuffix(extractSummaryLine(doc.Content), "..."))
}

func TestFromNode_PassesThroughRepomapScore(t *testing.T) {
	tr := indexdoc.NewTransformer("repo1", "snap1", "python")
	node := sampleNode()
	node.Attrs = map[string]any{"repomap_score": 0.87}

	doc := tr.FromNode(node, nil, "2026-08-02T00:00:00Z")

	require.Equal(t, "0.87", doc.Tags["repomap_score"])
}

func TestFromNodes_SkipsNonChunkableKinds(t *testing.T) {
	tr := indexdoc.NewTransformer("repo1", "snap1", "python")
	nodes := []ir.Node{
		sampleNode(),
		{ID: "app.py#handle.p0", Kind: ir.NodeParameter, FilePath: "app.py"},
	}

	docs := tr.FromNodes(nodes, nil, "2026-08-02T00:00:00Z")

	require.Len(t, docs, 1)
}

func extractSummaryLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "[SUMMARY]") {
			return line
		}
	}
	return ""
}
