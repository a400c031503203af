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
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/pkg/build"
	"github.com/kragraph/kragraph/pkg/cache"
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/parser"
	"github.com/kragraph/kragraph/pkg/parser/goplugin"
	"github.com/kragraph/kragraph/pkg/parser/protoplugin"
	"github.com/kragraph/kragraph/pkg/parser/pyplugin"
	"github.com/kragraph/kragraph/pkg/resolver"
	"github.com/kragraph/kragraph/pkg/storage"
	"github.com/kragraph/kragraph/pkg/store"
)

// newRegistry registers every language plugin kragraph ships, matching the
// extension table pkg/build/build_test.go exercises for pyplugin alone.
func newRegistry() *parser.Registry {
	reg := parser.NewRegistry()
	reg.Register(pyplugin.New(), ".py")
	reg.Register(goplugin.New(), ".go")
	reg.Register(protoplugin.New(), ".proto")
	return reg
}

// newBuilder wires a Builder over a disk-backed L1/L2 cache and a
// worker-parallel resolver, with the default no-op ExternalAnalyzer.
func newBuilder(globals GlobalFlags, logger log.Logger) (*build.Builder, *cache.Cache, error) {
	c, err := cache.New(cache.Config{
		L1MaxEntries: 10000,
		L2Dir:        filepath.Join(globals.DataDir, "cache"),
		L2Compress:   true,
	}, logger)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to open cache", err.Error(), "", err)
	}
	res := resolver.New(logger, 8)
	reg := newRegistry()
	return build.New(reg, c, res, logger), c, nil
}

// newBackend opens the embedded persistence backend under globals.DataDir,
// scoped by RepoID.
func newBackend(globals GlobalFlags) (*storage.EmbeddedBackend, error) {
	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
		DataDir:   filepath.Join(globals.DataDir, "store"),
		ProjectID: globals.RepoID,
	})
	if err != nil {
		return nil, errors.NewInternalError("failed to open snapshot store", err.Error(), "", err)
	}
	return backend, nil
}

// supportedExt is the set of file extensions kragraph's registered plugins
// can parse; walkSource skips everything else rather than erroring.
var supportedExt = map[string]bool{".py": true, ".go": true, ".proto": true}

// walkSource collects every parseable file under root, skipping the data
// directory and any dotfile-prefixed directory (.git, .kragraph, etc.).
func walkSource(root string, dataDir string) ([]build.FileInput, error) {
	absData, _ := filepath.Abs(dataDir)
	var files []build.FileInput
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if abs, _ := filepath.Abs(path); abs == absData {
				return filepath.SkipDir
			}
			base := d.Name()
			if base != "." && strings.HasPrefix(base, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !supportedExt[filepath.Ext(path)] {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return rerr
		}
		rel, rerr := filepath.Rel(root, path)
		if rerr != nil {
			rel = path
		}
		files = append(files, build.FileInput{Path: rel, Content: content})
		return nil
	})
	if err != nil {
		return nil, errors.NewInputError("failed to walk source tree", err.Error(), "check the path exists and is readable")
	}
	return files, nil
}

// runBuildOnce executes one build and returns the successfully-parsed
// documents plus the global context, logging (not failing on) per-file
// diagnostics: one broken file never aborts the build.
func runBuildOnce(ctx context.Context, b *build.Builder, files []build.FileInput, cfg build.Config, logger log.Logger) ([]*ir.IRDocument, *ir.GlobalContext, error) {
	result, err := b.Build(ctx, files, cfg)
	if err != nil {
		return nil, nil, errors.NewInternalError("build failed", err.Error(), "", err)
	}
	var docs []*ir.IRDocument
	for path, outcome := range result.IRDocuments {
		if outcome.Err != nil {
			logger.Warn("file failed to parse", "path", path, "error", outcome.Err)
			continue
		}
		docs = append(docs, outcome.Doc)
	}
	return docs, result.GlobalContext, nil
}

// persistSnapshot replaces the stored snapshot for (repoID, snapshotID)
// with docs: delete-by-(repo,snapshot), then bulk-insert, in one transaction.
func persistSnapshot(ctx context.Context, backend *storage.EmbeddedBackend, repoID, snapshotID string, docs []*ir.IRDocument) error {
	s := store.New(backend)
	if err := s.ReplaceSnapshot(ctx, repoID, snapshotID, docs); err != nil {
		return errors.NewDatabaseError("failed to persist snapshot", err.Error(), "", err)
	}
	return nil
}

const defaultSnapshotID = "HEAD"
