// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package indexdoc transforms IR nodes into the IndexDocument shape the
// engine hands off to external indexes: these documents are opaque beyond
// emission, so this package owns only the transformer, not a store.
package indexdoc

// IndexDocument is the chunk handed to vector/lexical/fuzzy/domain indexes.
// Field names and the content format ("[SUMMARY]...[SIGNATURE]...[CODE]...
// [META] k=v ...") are what downstream indexers key their chunkers on.
type IndexDocument struct {
	ID         string
	ChunkID    string
	RepoID     string
	SnapshotID string
	FilePath   string
	Language   string
	SymbolID   string
	SymbolName string
	Content    string
	Identifiers []string
	Tags       map[string]string
	StartLine  int
	EndLine    int
	CreatedAt  string
}
