// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/pkg/cache"
)

// compilerVersion is folded into every cache key (and bumped whenever
// compilation semantics change), mirroring the parser's ParserVersion
// pattern in pkg/parser/plugin.go.
const compilerVersion = "taint-rule-compiler-v1"

// Normalizer applies a language plugin's FQN conventions (case,
// nested-type separators) to a raw pattern half.
type Normalizer interface {
	NormalizeFQN(parts ...string) string
}

// CompileResult is one catalog file's compiled output: the rules kept in
// the active index plus those discarded for being subsumed, retained here
// for audit.
type CompileResult struct {
	Active        []*CompiledRule
	SubsumedRules []*CompiledRule
	SourceFile    string
	ContentHash   string
}

// CompileCatalog parses and compiles one YAML rule catalog's bytes into
// CompiledRules, running subsumption detection within this file only
// (cross-file subsumption is the Compiler's job since it sees every file).
func CompileCatalog(content []byte, sourceFile string, normalize Normalizer) (*CompileResult, error) {
	var cat catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return nil, fmt.Errorf("rules: parsing catalog %s: %w", sourceFile, err)
	}

	compiled := make([]*CompiledRule, 0, len(cat.Rules))
	for _, raw := range cat.Rules {
		cr, err := compileOne(raw, sourceFile, normalize)
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, cr)
	}

	active, subsumed := detectSubsumption(compiled)
	sum := sha256.Sum256(content)
	return &CompileResult{
		Active:        active,
		SubsumedRules: subsumed,
		SourceFile:    sourceFile,
		ContentHash:   hex.EncodeToString(sum[:]),
	}, nil
}

func compileOne(raw catalogRule, sourceFile string, normalize Normalizer) (*CompiledRule, error) {
	pat, err := parsePattern(raw.Pattern)
	if err != nil {
		return nil, fmt.Errorf("rules: rule %s: %w", raw.ID, err)
	}
	if normalize != nil {
		pat.BaseType = normalize.NormalizeFQN(pat.BaseType)
		pat.Member = normalize.NormalizeFQN(pat.Member)
	}

	args := make([]ArgConstraint, 0, len(raw.Args))
	for _, a := range raw.Args {
		args = append(args, ArgConstraint{Position: a.Position, Tainted: a.Tainted, Regex: a.Regex, Const: a.Const})
	}

	tier := Tier(raw.Tier)
	if tier == 0 {
		tier = Tier3
	}

	return &CompiledRule{
		ID:         raw.ID,
		Kind:       Kind(raw.Kind),
		Pattern:    pat,
		Args:       args,
		Tier:       tier,
		CWE:        raw.CWE,
		Severity:   raw.Severity,
		Language:   raw.Language,
		Framework:  raw.Framework,
		SourceFile: sourceFile,
	}, nil
}

// detectSubsumption partitions compiled into (active, subsumed): for every
// pair A,B where A strictly subsumes B (A is broader, B narrower), A is
// dropped. Ties are broken by id for determinism.
func detectSubsumption(compiled []*CompiledRule) (active, subsumed []*CompiledRule) {
	sorted := make([]*CompiledRule, len(compiled))
	copy(sorted, compiled)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	dropped := make(map[string]bool)
	for i, a := range sorted {
		for j, b := range sorted {
			if i == j {
				continue
			}
			if subsumes(a.Pattern, b.Pattern) && !subsumes(b.Pattern, a.Pattern) {
				dropped[a.ID] = true
			}
		}
	}

	for _, r := range sorted {
		if dropped[r.ID] {
			subsumed = append(subsumed, r)
		} else {
			active = append(active, r)
		}
	}
	return active, subsumed
}

// Compiler incrementally compiles a directory of YAML rule catalogs into a
// single MultiIndex, reusing pkg/cache so only files whose content hash
// changed are recompiled.
type Compiler struct {
	cache     *cache.Cache
	normalize Normalizer
	logger    log.Logger
}

// NewCompiler constructs a Compiler. cache may be nil to disable reuse.
func NewCompiler(c *cache.Cache, normalize Normalizer, logger log.Logger) *Compiler {
	if logger == nil {
		logger = log.Nop
	}
	return &Compiler{cache: c, normalize: normalize, logger: logger}
}

// FileSource pairs one catalog file's path with its raw bytes.
type FileSource struct {
	Path    string
	Content []byte
}

// ReadCatalogDir reads every .yaml/.yml file under dir (non-recursive),
// sorted by path so compilation order is deterministic.
func ReadCatalogDir(dir string) ([]FileSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rules: reading catalog dir %s: %w", dir, err)
	}
	var sources []FileSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("rules: reading catalog %s: %w", path, err)
		}
		sources = append(sources, FileSource{Path: path, Content: content})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Path < sources[j].Path })
	return sources, nil
}

// SourcesHash is the ruleset hash over a catalog set: a digest of every
// file's path and content, in ReadCatalogDir's sorted order. It keys
// taint-proof result caching.
func SourcesHash(sources []FileSource) string {
	h := sha256.New()
	for _, s := range sources {
		h.Write([]byte(s.Path))
		h.Write(s.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// CompileDir compiles every catalog file readDir returns for dir, via per-file cache
// reuse, merges each file's active rules into one MultiIndex, then runs
// cross-file subsumption over the merged set (a rule discarded within its
// own file never reaches this pass; a rule surviving its file can still be
// subsumed by a rule from another file).
func (c *Compiler) CompileDir(readDir func(dir string) ([]FileSource, error), dir string) (*MultiIndex, []*CompiledRule, error) {
	sources, err := readDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var allActive []*CompiledRule
	var allSubsumed []*CompiledRule
	for _, src := range sources {
		res, err := c.compileFileCached(src)
		if err != nil {
			return nil, nil, fmt.Errorf("rules: %s: %w", src.Path, err)
		}
		allActive = append(allActive, res.Active...)
		allSubsumed = append(allSubsumed, res.SubsumedRules...)
	}

	active, crossSubsumed := detectSubsumption(allActive)
	allSubsumed = append(allSubsumed, crossSubsumed...)

	idx := NewMultiIndex()
	for _, r := range active {
		idx.Add(r)
	}
	return idx, allSubsumed, nil
}

func (c *Compiler) compileFileCached(src FileSource) (*CompileResult, error) {
	if c.cache == nil {
		return CompileCatalog(src.Content, src.Path, c.normalize)
	}

	sum := sha256.Sum256(src.Content)
	key := cache.Key{
		FilePath:      src.Path,
		ContentHash:   hex.EncodeToString(sum[:]),
		ParserVersion: compilerVersion,
	}
	if raw, ok := c.cache.Get(key); ok {
		var res CompileResult
		if err := json.Unmarshal(raw, &res); err == nil {
			return &res, nil
		}
		c.logger.Warn("rules.compiler.cache_decode_failed", "path", src.Path)
	}

	res, err := CompileCatalog(src.Content, src.Path, c.normalize)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(res); err == nil {
		if err := c.cache.Put(key, raw, filepath.Dir(src.Path)); err != nil {
			c.logger.Warn("rules.compiler.cache_put_failed", "path", src.Path, "err", err)
		}
	}
	return res, nil
}
