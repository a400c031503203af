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
	"fmt"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/internal/output"
	"github.com/kragraph/kragraph/internal/ui"
	"github.com/kragraph/kragraph/pkg/build"
	"github.com/kragraph/kragraph/pkg/ssa"
)

type buildSummary struct {
	FilesParsed    int    `json:"files_parsed"`
	FilesFailed    int    `json:"files_failed"`
	Nodes          int    `json:"nodes"`
	Edges          int    `json:"edges"`
	SnapshotID     string `json:"snapshot_id"`
	IndexDocuments int    `json:"index_documents"`
}

func runBuild(args []string, globals GlobalFlags) error {
	fs := pflag.NewFlagSet("build", pflag.ContinueOnError)
	mode := fs.String("mode", "quick", "semantic IR mode: quick|full")
	workers := fs.Int("workers", 4, "parallel parse workers")
	crossCheck := fs.Bool("cross-check-go", false, "debug: compare this build's CFGs against go/ssa block counts (Go sources only)")
	if err := fs.Parse(args); err != nil {
		return errors.NewInputError("invalid build flags", err.Error(), "run 'kragraph build --help'")
	}
	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	logger := log.New(globals.JSON, zapcore.InfoLevel)
	files, err := walkSource(root, globals.DataDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.NewNotFoundError("no parseable files found", root, "check the path and that it contains .py or .go files")
	}

	builder, _, err := newBuilder(globals, logger)
	if err != nil {
		return err
	}

	cfg := build.Config{
		RepoID:          globals.RepoID,
		ParallelWorkers: *workers,
		Diagnostics:     true,
		SemanticIRMode:  build.ParseMode(*mode),
	}

	bar := newProgressBar(progressConfig(globals), int64(len(files)), "parsing")
	if bar != nil {
		defer bar.Close()
	}

	ctx := context.Background()
	docs, _, err := runBuildOnce(ctx, builder, files, cfg, logger)
	if err != nil {
		return err
	}
	if bar != nil {
		_ = bar.Set(len(files))
	}

	backend, err := newBackend(globals)
	if err != nil {
		return err
	}
	defer backend.Close()

	if err := persistSnapshot(ctx, backend, globals.RepoID, defaultSnapshotID, docs); err != nil {
		return err
	}

	indexed, err := emitIndexDocuments(globals.DataDir, globals.RepoID, defaultSnapshotID, docs, files)
	if err != nil {
		return err
	}

	if *crossCheck {
		check, err := ssa.CrossCheckGo(root)
		if err != nil {
			logger.Warn("build.cross_check_go_failed", "err", err)
		} else {
			logger.Info("build.cross_check_go", "functions", check.FuncCount)
		}
	}

	summary := buildSummary{FilesParsed: len(docs), FilesFailed: len(files) - len(docs), SnapshotID: defaultSnapshotID, IndexDocuments: indexed}
	for _, d := range docs {
		summary.Nodes += len(d.Nodes)
		summary.Edges += len(d.Edges)
	}

	if globals.JSON {
		return output.JSON(summary)
	}
	if !globals.Quiet {
		ui.Success(fmt.Sprintf("built snapshot %s: %d files, %d nodes, %d edges (%d failed)",
			summary.SnapshotID, summary.FilesParsed, summary.Nodes, summary.Edges, summary.FilesFailed))
	}
	return nil
}
