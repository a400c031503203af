// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package ir

// SymbolRef locates a resolved FQN within the owning file's IRDocument.
type SymbolRef struct {
	OwningFile string
	NodeID     string
	Kind       NodeKind
}

// UnresolvedCategory classifies an import the resolver could not bind.
type UnresolvedCategory string

const (
	UnresolvedUnknownModule UnresolvedCategory = "unknown_module"
	UnresolvedAmbiguous     UnresolvedCategory = "ambiguous"
	UnresolvedExternal      UnresolvedCategory = "external"
)

// UnresolvedImport records an import the resolver's Phase 2 could not bind
// to a known file, with a category for diagnostics.
type UnresolvedImport struct {
	FilePath   string
	ImportPath string
	Category   UnresolvedCategory
}

// GlobalStats aggregates resolver statistics.
type GlobalStats struct {
	TotalSymbols        int
	TotalFiles          int
	TotalResolvedImports int
}

// GlobalContext is the cross-file resolution result: FQN -> symbol,
// the file dependency DAG and its topological order.
type GlobalContext struct {
	RepoID     string
	SnapshotID string

	SymbolTable map[string]SymbolRef

	// FileDependencies maps an importer file path to the set of files it
	// depends on (the files declaring the symbols it imports).
	FileDependencies map[string][]string

	TopologicalOrder []string
	Unresolved       []UnresolvedImport
	Stats            GlobalStats
}
