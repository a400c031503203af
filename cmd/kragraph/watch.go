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
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/internal/ui"
	"github.com/kragraph/kragraph/pkg/build"
	"github.com/kragraph/kragraph/pkg/orchestrator"
)

func runWatch(args []string, globals GlobalFlags) error {
	fs := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	debounce := fs.Duration("debounce", 300*time.Millisecond, "quiet period before a change batch flushes")
	maxWindow := fs.Duration("max-window", 5*time.Second, "hard deadline before a busy batch force-flushes")
	queueSize := fs.Int("queue", 1024, "event queue capacity; overflow drops oldest")
	if err := fs.Parse(args); err != nil {
		return errors.NewInputError("invalid watch flags", err.Error(), "run 'kragraph watch --help'")
	}
	root := "."
	if fs.NArg() > 0 {
		root = fs.Arg(0)
	}

	logger := log.New(globals.JSON, zapcore.InfoLevel)
	builder, _, err := newBuilder(globals, logger)
	if err != nil {
		return err
	}
	backend, err := newBackend(globals)
	if err != nil {
		return err
	}
	defer backend.Close()

	cfg := build.Config{RepoID: globals.RepoID, ParallelWorkers: 4, SemanticIRMode: build.ParseMode("full")}

	rebuild := func(ctx context.Context) {
		files, err := walkSource(root, globals.DataDir)
		if err != nil {
			logger.Error("watch.rebuild.walk_failed", "err", err)
			return
		}
		docs, _, err := runBuildOnce(ctx, builder, files, cfg, logger)
		if err != nil {
			logger.Error("watch.rebuild.build_failed", "err", err)
			return
		}
		if err := persistSnapshot(ctx, backend, globals.RepoID, defaultSnapshotID, docs); err != nil {
			logger.Error("watch.rebuild.persist_failed", "err", err)
			return
		}
		logger.Info("watch.rebuild.done", "files", len(files), "docs", len(docs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial full build so the first emitted ChangeSet reconciles against
	// a populated cache instead of a cold start.
	rebuild(ctx)

	debouncer := orchestrator.NewDebouncer(*debounce, *maxWindow, *queueSize, func(cs orchestrator.ChangeSet) {
		logger.Info("watch.changeset",
			"added", len(cs.Added), "modified", len(cs.Modified), "deleted", len(cs.Deleted))
		rebuild(ctx)
	}, logger)

	watcher, err := orchestrator.NewWatcher(debouncer, logger)
	if err != nil {
		return errors.NewInternalError("failed to start filesystem watcher", err.Error(), "", err)
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, root, globals.DataDir); err != nil {
		return err
	}

	if !globals.Quiet && !globals.JSON {
		ui.Infof("watching %s (ctrl-c to stop)", root)
	}

	watcher.Run(ctx)
	debouncer.Stop()
	if n := debouncer.DroppedCount(); n > 0 {
		logger.Warn("watch.events_dropped", "count", n)
	}
	return nil
}

// addWatchDirs registers root and every non-hidden subdirectory, since the
// underlying fsnotify watcher is not recursive.
func addWatchDirs(w *orchestrator.Watcher, root, dataDir string) error {
	absData, _ := filepath.Abs(dataDir)
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if abs, _ := filepath.Abs(path); abs == absData {
			return filepath.SkipDir
		}
		if base := d.Name(); base != "." && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
	if err != nil {
		return errors.NewInputError("failed to register watch directories", err.Error(), "check the path exists and is readable")
	}
	return nil
}
