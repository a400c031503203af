// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package build implements the layered IR builder: the orchestrator that
// turns a set of files into IRDocuments (cached per-file via pkg/cache,
// built via pkg/parser + pkg/cfg + pkg/ssa on a miss) and then a
// GlobalContext (via pkg/resolver). Per file: hash, cache-check, parse,
// emit.
package build

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/pkg/cache"
	cfgbuilder "github.com/kragraph/kragraph/pkg/cfg"
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
	"github.com/kragraph/kragraph/pkg/parser"
	"github.com/kragraph/kragraph/pkg/resolver"
	"github.com/kragraph/kragraph/pkg/ssa"
)

// SemanticIRMode selects how much per-function analysis a build performs
// (BuildConfig.semantic_ir_mode).
type SemanticIRMode string

const (
	// ModeQuick builds nodes/edges only: no BFG/CFG/SSA. Fast path for
	// symbol-level queries (slice, call-chain) that don't need SSA.
	ModeQuick SemanticIRMode = "quick"
	// ModeFull additionally builds the BFG/CFG and SSA form per function,
	// required by the taint engine's DFG-based flow analysis.
	ModeFull SemanticIRMode = "full"
)

// Config is the per-run build configuration; mode strings parse
// case-insensitively.
type Config struct {
	RepoID         string
	ParallelWorkers int
	Occurrences    bool
	Diagnostics    bool
	Packages       []string
	SemanticIRMode SemanticIRMode
}

// ParseMode normalizes a user-supplied mode string, defaulting to
// ModeQuick on anything unrecognized.
func ParseMode(s string) SemanticIRMode {
	switch lower(s) {
	case "full":
		return ModeFull
	default:
		return ModeQuick
	}
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return string(b)
}

// FileInput is one file handed to Build: its repo-relative path and raw
// content bytes (read once by the caller, never re-read here).
type FileInput struct {
	Path    string
	Content []byte
}

// DocOutcome is one file's build outcome: exactly one of Doc or Err is
// set; a failed file carries its diagnostic instead of a document.
type DocOutcome struct {
	Doc *ir.IRDocument
	Err error
}

// Result is one build's complete output.
type Result struct {
	IRDocuments   map[string]DocOutcome
	GlobalContext *ir.GlobalContext
	CacheStats    cache.Stats
	Diagnostics   []ir.Diagnostic

	CacheHits   int
	CacheMisses int
}

// Builder is the layered IR builder, orchestrating the parser
// registry, content-addressed cache, and cross-file resolver.
type Builder struct {
	registry *parser.Registry
	cache    *cache.Cache
	resolver *resolver.Resolver
	logger   log.Logger
	external irgen.ExternalAnalyzer
}

// New constructs a Builder with the default no-op ExternalAnalyzer. Use
// WithExternalAnalyzer to plug in a real one.
func New(registry *parser.Registry, c *cache.Cache, res *resolver.Resolver, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.Nop
	}
	return &Builder{registry: registry, cache: c, resolver: res, logger: logger, external: irgen.NoopAnalyzer{}}
}

// WithExternalAnalyzer sets the batch external type-inference hook generate
// calls once per file. Passing nil restores the no-op default.
func (b *Builder) WithExternalAnalyzer(a irgen.ExternalAnalyzer) *Builder {
	if a == nil {
		a = irgen.NoopAnalyzer{}
	}
	b.external = a
	return b
}

// Build turns files into per-file documents plus a GlobalContext.
func (b *Builder) Build(ctx context.Context, files []FileInput, cfg Config) (*Result, error) {
	outcomes := make(map[string]DocOutcome, len(files))
	var resultsMu sync.Mutex
	var hits, misses int

	g, gctx := errgroup.WithContext(ctx)
	if cfg.ParallelWorkers > 0 {
		g.SetLimit(cfg.ParallelWorkers)
	}

	for _, f := range files {
		f := f
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return nil // a cancelled build degrades to partial results, not an aborted one
			default:
			}
			outcome, hit := b.buildOne(gctx, f, cfg)
			resultsMu.Lock()
			outcomes[f.Path] = outcome
			if hit {
				hits++
			} else {
				misses++
			}
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-file errors are captured in outcomes, never abort the build

	docs := make([]*ir.IRDocument, 0, len(outcomes))
	var diags []ir.Diagnostic
	for path, o := range outcomes {
		if o.Err != nil {
			diags = append(diags, ir.Diagnostic{Code: "BUILD_FAILED", Message: o.Err.Error(), FunctionID: path})
			continue
		}
		docs = append(docs, o.Doc)
		diags = append(diags, o.Doc.Diagnostics...)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].FilePath < docs[j].FilePath })

	gc, err := b.resolver.Resolve(ctx, cfg.RepoID, snapshotIDFor(cfg.RepoID, docs), docs)
	if err != nil {
		return nil, err
	}

	res := &Result{
		IRDocuments:   outcomes,
		GlobalContext: gc,
		Diagnostics:   diags,
		CacheHits:     hits,
		CacheMisses:   misses,
	}
	if b.cache != nil {
		res.CacheStats = b.cache.Stats()
	}
	res.Diagnostics = append(res.Diagnostics, CheckConsistency(docs)...)
	return res, nil
}

// buildOne runs the per-file pipeline: hash,
// cache lookup (promote on L2 hit), or parse+generate on miss.
func (b *Builder) buildOne(ctx context.Context, f FileInput, cfg Config) (DocOutcome, bool) {
	hash := contentHash(f.Content)
	ext := filepath.Ext(f.Path)

	plugin, err := b.registry.ForExtension(ext)
	if err != nil {
		return DocOutcome{Err: err}, false
	}

	key := cache.Key{
		FilePath:      f.Path,
		ContentHash:   hash,
		ParserVersion: parser.ParserVersion,
		ExtraSalt:     string(cfg.SemanticIRMode),
	}

	if b.cache != nil {
		if raw, ok := b.cache.Get(key); ok {
			var doc ir.IRDocument
			if err := json.Unmarshal(raw, &doc); err == nil {
				return DocOutcome{Doc: &doc}, true
			}
			b.logger.Warn("build.cache.decode_failed", "path", f.Path)
		}
	}

	doc, err := b.generate(ctx, cfg.RepoID, f.Path, f.Content, hash, plugin, cfg)
	if err != nil {
		return DocOutcome{Err: err}, false
	}

	if b.cache != nil {
		if raw, merr := json.Marshal(doc); merr == nil {
			if perr := b.cache.Put(key, raw, cfg.RepoID); perr != nil {
				b.logger.Warn("build.cache.put_failed", "path", f.Path, "err", perr)
			}
		}
	}
	return DocOutcome{Doc: doc}, false
}

// generate runs B->C->D (parse -> IR generation is done inside the
// language plugin -> BFG/CFG/SSA) for one file.
func (b *Builder) generate(ctx context.Context, repoID, path string, content []byte, hash string, plugin parser.LanguagePlugin, cfg Config) (*ir.IRDocument, error) {
	pr, err := plugin.Parse(repoID, path, content)
	if err != nil {
		return nil, err
	}

	doc := &ir.IRDocument{
		RepoID:        repoID,
		FilePath:      path,
		Language:      plugin.Language(),
		ContentHash:   hash,
		ParserVersion: parser.ParserVersion,
		Nodes:         pr.Nodes,
		Edges:         pr.Edges,
		Expressions:   pr.Expressions,
		Diagnostics:   pr.Diagnostics,
		Functions:     make(map[string]*ir.FunctionIR),
	}

	if cfg.SemanticIRMode == ModeFull {
		for _, fn := range pr.Functions {
			stmtMap := make(map[string]*ir.Statement, len(fn.Statements))
			for i := range fn.Statements {
				s := fn.Statements[i]
				stmtMap[s.ID] = &s
			}
			c := cfgbuilder.Build(fn.Node.ID, stmtMap, fn.StatementOrder)
			s := ssa.Build(c, stmtMap)
			doc.Functions[fn.Node.ID] = &ir.FunctionIR{
				FunctionID: fn.Node.ID,
				Statements: stmtMap,
				CFG:        c,
				SSA:        s,
			}
			if c.Partial {
				doc.Diagnostics = append(doc.Diagnostics, ir.Diagnostic{
					Code: "PARTIAL_CFG", Message: "control-flow graph is not fully well-formed", FunctionID: fn.Node.ID,
				})
			}
		}
	}

	b.applyExternalHints(ctx, doc)

	if diags := doc.CheckReferentialIntegrity(); len(diags) > 0 {
		doc.Diagnostics = append(doc.Diagnostics, diags...)
	}

	return doc, nil
}

// applyExternalHints batches one InferTypes call per file across every node
// id the file declares, merging any returned hints into each node's Attrs.
// NoopAnalyzer (the default) turns this into a no-op, so it's always safe
// to call unconditionally.
func (b *Builder) applyExternalHints(ctx context.Context, doc *ir.IRDocument) {
	if b.external == nil || len(doc.Nodes) == 0 {
		return
	}

	nodeIDs := make([]string, len(doc.Nodes))
	attrsByID := make(map[string]map[string]any, len(doc.Nodes))
	for i := range doc.Nodes {
		nodeIDs[i] = doc.Nodes[i].ID
		if doc.Nodes[i].Attrs == nil {
			doc.Nodes[i].Attrs = make(map[string]any)
		}
		attrsByID[doc.Nodes[i].ID] = doc.Nodes[i].Attrs
	}

	hints, err := b.external.InferTypes(ctx, doc.FilePath, nodeIDs)
	if err != nil {
		b.logger.Warn("build.external_analyzer.failed", "path", doc.FilePath, "err", err)
		return
	}
	irgen.ApplyTypeHints(attrsByID, hints)
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// snapshotIDFor derives a deterministic snapshot id from the repo id and
// the sorted set of file content hashes, so the same input set always
// yields the same snapshot id.
func snapshotIDFor(repoID string, docs []*ir.IRDocument) string {
	h := sha256.New()
	h.Write([]byte(repoID))
	for _, d := range docs {
		h.Write([]byte(d.FilePath))
		h.Write([]byte(d.ContentHash))
	}
	return "snap:" + hex.EncodeToString(h.Sum(nil))[:32]
}
