// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/output"
	"github.com/kragraph/kragraph/pkg/build"
	"github.com/kragraph/kragraph/pkg/indexdoc"
	"github.com/kragraph/kragraph/pkg/ir"
)

// emitIndexDocuments transforms every built document's chunkable nodes into
// IndexDocuments and writes them, one JSON object per line, to
// <dataDir>/index/documents.jsonl, replacing any file a previous run left
// there. The engine's responsibility ends at
// emission; downstream indexers consume the file however they like.
func emitIndexDocuments(dataDir, repoID, snapshotID string, docs []*ir.IRDocument, files []build.FileInput) (int, error) {
	sourceByPath := make(map[string][]byte, len(files))
	for _, f := range files {
		sourceByPath[f.Path] = f.Content
	}

	dir := filepath.Join(dataDir, "index")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.NewInternalError("failed to create index directory", err.Error(), "", err)
	}
	f, err := os.Create(filepath.Join(dir, "documents.jsonl"))
	if err != nil {
		return 0, errors.NewInternalError("failed to create index document file", err.Error(), "", err)
	}
	defer f.Close()

	createdAt := time.Now().UTC().Format(time.RFC3339)
	total := 0
	for _, d := range docs {
		t := indexdoc.NewTransformer(repoID, snapshotID, d.Language)
		for _, doc := range t.FromNodes(d.Nodes, sourceByPath[d.FilePath], createdAt) {
			if err := output.JSONCompactTo(f, doc); err != nil {
				return total, errors.NewInternalError("failed to write index document", err.Error(), "", err)
			}
			total++
		}
	}
	return total, nil
}
