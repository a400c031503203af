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
	"sync"
	"time"

	"github.com/kragraph/kragraph/internal/log"
)

// DefaultDebounceDelay and DefaultMaxBatchWindow are the two-timer
// defaults: 300ms debounce, 5s forced-flush ceiling.
const (
	DefaultDebounceDelay  = 300 * time.Millisecond
	DefaultMaxBatchWindow = 5 * time.Second
)

// Debouncer batches filesystem events: a per-path buffer keeping only the
// latest event, a debounce timer that resets on every push and flushes
// once quiet, and a batch-window timer that force-flushes even under
// continuous churn. Timers are stdlib `time.AfterFunc`.
type Debouncer struct {
	mu             sync.Mutex
	debounceDelay  time.Duration
	maxBatchWindow time.Duration
	maxQueueSize   int
	onBatchReady   func(ChangeSet)
	logger         log.Logger

	events        map[string]FileEvent
	debounceTimer *time.Timer
	batchTimer    *time.Timer
	batchStarted  bool
	dropped       int
}

// NewDebouncer constructs a Debouncer. maxQueueSize <= 0 means unbounded.
func NewDebouncer(debounceDelay, maxBatchWindow time.Duration, maxQueueSize int, onBatchReady func(ChangeSet), logger log.Logger) *Debouncer {
	if logger == nil {
		logger = log.Nop
	}
	return &Debouncer{
		debounceDelay:  debounceDelay,
		maxBatchWindow: maxBatchWindow,
		maxQueueSize:   maxQueueSize,
		onBatchReady:   onBatchReady,
		logger:         logger,
		events:         make(map[string]FileEvent),
	}
}

// Push adds or overwrites evt in the per-path buffer (latest event wins,
// a file touched twice in one window appears once, as its most
// recent event"), starting the batch-window timer on the first event of a
// new window and resetting the debounce timer on every push.
func (d *Debouncer) Push(evt FileEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.events[evt.Path]; !exists && d.maxQueueSize > 0 && len(d.events) >= d.maxQueueSize {
		d.dropped++
		d.logger.Warn("orchestrator.debounce.queue_full", "path", evt.Path, "max_queue_size", d.maxQueueSize)
		return
	}

	d.events[evt.Path] = evt

	if !d.batchStarted {
		d.batchStarted = true
		d.batchTimer = time.AfterFunc(d.maxBatchWindow, d.forceFlush)
	}
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
	}
	d.debounceTimer = time.AfterFunc(d.debounceDelay, d.flush)
}

// flush is the debounce timer's callback: the buffer went quiet for
// debounceDelay, so emit it now.
func (d *Debouncer) flush() {
	d.mu.Lock()
	events := d.resetLocked()
	d.mu.Unlock()
	d.dispatch(events)
}

// forceFlush is the batch-window timer's callback: churn never went
// quiet, flush anyway rather than starve the rebuild pipeline.
func (d *Debouncer) forceFlush() {
	d.mu.Lock()
	events := d.resetLocked()
	d.mu.Unlock()
	if len(events) > 0 {
		d.logger.Info("orchestrator.debounce.batch_window_expired", "events", len(events))
	}
	d.dispatch(events)
}

// Stop flushes whatever remains in the buffer, for graceful shutdown
// rather than discarding whatever the queue still holds.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	events := d.resetLocked()
	d.mu.Unlock()
	d.dispatch(events)
}

func (d *Debouncer) resetLocked() map[string]FileEvent {
	if d.debounceTimer != nil {
		d.debounceTimer.Stop()
	}
	if d.batchTimer != nil {
		d.batchTimer.Stop()
	}
	d.batchStarted = false
	if len(d.events) == 0 {
		return nil
	}
	events := d.events
	d.events = make(map[string]FileEvent)
	return events
}

func (d *Debouncer) dispatch(events map[string]FileEvent) {
	if len(events) == 0 {
		return
	}
	cs := buildChangeSet(events)
	if d.onBatchReady != nil && !cs.IsEmpty() {
		d.onBatchReady(cs)
	}
}

// DroppedCount returns how many events were discarded because the buffer
// hit maxQueueSize.
func (d *Debouncer) DroppedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// PendingCount returns how many distinct paths are currently buffered.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.events)
}
