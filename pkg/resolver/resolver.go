// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package resolver implements the cross-file resolver: a pure function
// from a set of IRDocuments sharing (repo_id, snapshot_id) to a
// GlobalContext (symbol table, file dependency DAG, topological order,
// statistics). Resolution is two-phase — exported symbols first, then
// imports against that table — with the fan-out on
// golang.org/x/sync/errgroup.
package resolver

import (
	"context"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/pkg/ir"
)

// parallelThreshold: below this many
// documents, resolving sequentially avoids goroutine overhead that would
// dominate the work itself.
const parallelThreshold = 64

// Resolver is the cross-file symbol resolver. It holds no document state
// between calls: Resolve is pure with respect to its input set.
type Resolver struct {
	logger  log.Logger
	workers int
}

// New builds a Resolver. workers <= 0 leaves the errgroup fan-out without
// a limit.
func New(logger log.Logger, workers int) *Resolver {
	if logger == nil {
		logger = log.Nop
	}
	return &Resolver{logger: logger, workers: workers}
}

// Resolve builds a GlobalContext from docs. All docs must share
// (repoID, snapshotID); Resolve does not itself enforce that (the layered
// IR builder is responsible for only ever calling it with one snapshot's
// documents).
func (r *Resolver) Resolve(ctx context.Context, repoID, snapshotID string, docs []*ir.IRDocument) (*ir.GlobalContext, error) {
	symbolTable := newConcurrentSymbolMap()
	moduleIndex := newConcurrentSymbolMap() // module FQN -> owning file path, reused the same concurrent map shape

	if err := r.phase1(ctx, docs, symbolTable, moduleIndex); err != nil {
		return nil, err
	}

	fileDeps, unresolved, resolvedCount, err := r.phase2(ctx, docs, symbolTable, moduleIndex)
	if err != nil {
		return nil, err
	}

	topo := topologicalOrder(fileDeps, fileSet(docs))

	gc := &ir.GlobalContext{
		RepoID:           repoID,
		SnapshotID:       snapshotID,
		SymbolTable:      symbolTable.snapshot(),
		FileDependencies: fileDeps,
		TopologicalOrder: topo,
		Unresolved:       unresolved,
		Stats: ir.GlobalStats{
			TotalSymbols:         symbolTable.len(),
			TotalFiles:           len(docs),
			TotalResolvedImports: resolvedCount,
		},
	}
	return gc, nil
}

// phase1 inserts every file's exported symbols into a concurrent map.
// A symbol is exported if it is a module, class,
// function, method or variable node; Python has no visibility keyword so every
// top-level/class-scoped declaration is considered exported, matching the
// language's own convention (only leading-underscore discipline, which is
// a linting concern, not a resolver one).
func (r *Resolver) phase1(ctx context.Context, docs []*ir.IRDocument, symbolTable, moduleIndex *concurrentSymbolMap) error {
	run := func(d *ir.IRDocument) error {
		for _, n := range d.Nodes {
			switch n.Kind {
			case ir.NodeModule:
				moduleIndex.store(n.FQN, ir.SymbolRef{OwningFile: d.FilePath, NodeID: n.ID, Kind: n.Kind})
				symbolTable.store(n.FQN, ir.SymbolRef{OwningFile: d.FilePath, NodeID: n.ID, Kind: n.Kind})
			case ir.NodeClass, ir.NodeFunction, ir.NodeMethod, ir.NodeVariable:
				if n.FQN == "" {
					continue
				}
				symbolTable.store(n.FQN, ir.SymbolRef{OwningFile: d.FilePath, NodeID: n.ID, Kind: n.Kind})
			}
		}
		return nil
	}

	if len(docs) < parallelThreshold {
		for _, d := range docs {
			if err := run(d); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for _, d := range docs {
		d := d
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return run(d)
		})
	}
	return g.Wait()
}

// phase2 iterates over imports in parallel, resolving each against the map
// built in phase1; unresolved imports are recorded
// with a category.
func (r *Resolver) phase2(ctx context.Context, docs []*ir.IRDocument, symbolTable, moduleIndex *concurrentSymbolMap) (map[string][]string, []ir.UnresolvedImport, int, error) {
	var mu sync.Mutex
	fileDeps := make(map[string][]string)
	var unresolved []ir.UnresolvedImport
	resolvedCount := 0

	run := func(d *ir.IRDocument) error {
		var localDeps []string
		var localUnresolved []ir.UnresolvedImport
		localResolved := 0

		for _, n := range d.Nodes {
			if n.Kind != ir.NodeImport {
				continue
			}
			raw, _ := n.Attrs["raw"].(string)
			parsed, ok := parseImportText(raw)
			if !ok {
				localUnresolved = append(localUnresolved, ir.UnresolvedImport{
					FilePath: d.FilePath, ImportPath: raw, Category: ir.UnresolvedUnknownModule,
				})
				continue
			}

			owner, category, ok := resolveImport(parsed, d.FilePath, symbolTable, moduleIndex)
			if !ok {
				localUnresolved = append(localUnresolved, ir.UnresolvedImport{
					FilePath: d.FilePath, ImportPath: raw, Category: category,
				})
				continue
			}
			if owner != d.FilePath {
				localDeps = append(localDeps, owner)
			}
			localResolved++
		}

		mu.Lock()
		if len(localDeps) > 0 {
			fileDeps[d.FilePath] = append(fileDeps[d.FilePath], dedupe(localDeps)...)
		}
		unresolved = append(unresolved, localUnresolved...)
		resolvedCount += localResolved
		mu.Unlock()
		return nil
	}

	if len(docs) < parallelThreshold {
		for _, d := range docs {
			if err := run(d); err != nil {
				return nil, nil, 0, err
			}
		}
		return fileDeps, unresolved, resolvedCount, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if r.workers > 0 {
		g.SetLimit(r.workers)
	}
	for _, d := range docs {
		d := d
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return run(d)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}
	return fileDeps, unresolved, resolvedCount, nil
}

// resolveImport resolves one parsed import against the symbol/module
// indexes, returning the owning file path of the resolved target.
func resolveImport(p parsedImport, importerFile string, symbolTable, moduleIndex *concurrentSymbolMap) (owner string, category ir.UnresolvedCategory, ok bool) {
	switch p.kind {
	case importModule:
		if ref, found := moduleIndex.load(p.module); found {
			return ref.OwningFile, "", true
		}
		return "", ir.UnresolvedExternal, false

	case importFrom:
		for _, name := range p.names {
			fqn := p.module + "." + name
			if ref, found := symbolTable.load(fqn); found {
				return ref.OwningFile, "", true
			}
		}
		if ref, found := moduleIndex.load(p.module); found {
			return ref.OwningFile, "", true
		}
		if len(p.names) > 1 {
			return "", ir.UnresolvedAmbiguous, false
		}
		return "", ir.UnresolvedExternal, false

	case importRelative:
		base := relativeModuleBase(importerFile, p.relDots)
		module := base
		if p.module != "" {
			if module != "" {
				module += "." + p.module
			} else {
				module = p.module
			}
		}
		for _, name := range p.names {
			fqn := strings.TrimPrefix(module+"."+name, ".")
			if ref, found := symbolTable.load(fqn); found {
				return ref.OwningFile, "", true
			}
		}
		if ref, found := moduleIndex.load(module); found {
			return ref.OwningFile, "", true
		}
		return "", ir.UnresolvedUnknownModule, false
	}
	return "", ir.UnresolvedUnknownModule, false
}

// relativeModuleBase walks up `dots` package levels from importerFile's
// containing package, mirroring Python relative-import semantics.
func relativeModuleBase(importerFile string, dots int) string {
	parts := strings.Split(strings.TrimSuffix(importerFile, ".py"), "/")
	if len(parts) > 0 {
		parts = parts[:len(parts)-1] // drop the importing module itself
	}
	up := dots - 1
	if up > 0 && up <= len(parts) {
		parts = parts[:len(parts)-up]
	}
	return strings.Join(parts, ".")
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

func fileSet(docs []*ir.IRDocument) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.FilePath)
	}
	return out
}

// topologicalOrder sorts files by their dependency DAG (importer depends
// on imported-declarer), breaking ties by path lexicographic order for
// determinism.
func topologicalOrder(deps map[string][]string, files []string) []string {
	sort.Strings(files)

	inDegree := make(map[string]int, len(files))
	dependents := make(map[string][]string) // dependency -> importers that depend on it
	for _, f := range files {
		inDegree[f] = 0
	}
	for importer, imports := range deps {
		for _, dep := range imports {
			inDegree[importer]++
			dependents[dep] = append(dependents[dep], importer)
		}
	}
	for dep := range dependents {
		sort.Strings(dependents[dep])
	}

	var ready []string
	for _, f := range files {
		if inDegree[f] == 0 {
			ready = append(ready, f)
		}
	}
	sort.Strings(ready)

	var order []string
	visited := make(map[string]bool)
	for len(ready) > 0 {
		f := ready[0]
		ready = ready[1:]
		if visited[f] {
			continue
		}
		visited[f] = true
		order = append(order, f)

		var newlyReady []string
		for _, dependent := range dependents[f] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sort.Strings(newlyReady)
		ready = append(ready, newlyReady...)
		sort.Strings(ready)
	}

	// Any remaining files are part of an import cycle: append them in
	// lexicographic order rather than failing the build.
	if len(order) < len(files) {
		for _, f := range files {
			if !visited[f] {
				order = append(order, f)
			}
		}
	}
	return order
}

// concurrentSymbolMap is the "concurrent insertion-only; no deletes" map
// the resolver's symbol table needs during construction.
type concurrentSymbolMap struct {
	m sync.Map
}

func newConcurrentSymbolMap() *concurrentSymbolMap { return &concurrentSymbolMap{} }

func (c *concurrentSymbolMap) store(key string, ref ir.SymbolRef) {
	c.m.Store(key, ref)
}

func (c *concurrentSymbolMap) load(key string) (ir.SymbolRef, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return ir.SymbolRef{}, false
	}
	return v.(ir.SymbolRef), true
}

func (c *concurrentSymbolMap) len() int {
	n := 0
	c.m.Range(func(_, _ any) bool { n++; return true })
	return n
}

func (c *concurrentSymbolMap) snapshot() map[string]ir.SymbolRef {
	out := make(map[string]ir.SymbolRef)
	c.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(ir.SymbolRef)
		return true
	})
	return out
}
