// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/kragraph/kragraph/internal/log"
)

// Watcher feeds filesystem change notifications into a Debouncer. It is
// the only component that bridges foreign watcher threads into the
// pipeline; everything downstream sees the Debouncer's single consumer.
type Watcher struct {
	fsw       *fsnotify.Watcher
	debouncer *Debouncer
	logger    log.Logger
}

// NewWatcher constructs a Watcher backed by a real fsnotify.Watcher.
func NewWatcher(debouncer *Debouncer, logger log.Logger) (*Watcher, error) {
	if logger == nil {
		logger = log.Nop
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fsw: fsw, debouncer: debouncer, logger: logger}, nil
}

// Add registers a directory (or file) for fsnotify events.
func (w *Watcher) Add(path string) error {
	return w.fsw.Add(path)
}

// Run drains fsnotify's event and error channels into the Debouncer until
// ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.debouncer.Push(fileEventFromFS(ev))
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("orchestrator.watcher.fs_error", "err", err)
		}
	}
}

// Close releases the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func fileEventFromFS(ev fsnotify.Event) FileEvent {
	switch {
	case ev.Op&fsnotify.Create != 0:
		return FileEvent{Type: EventCreated, Path: ev.Name}
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		return FileEvent{Type: EventDeleted, Path: ev.Name}
	default:
		return FileEvent{Type: EventModified, Path: ev.Name}
	}
}
