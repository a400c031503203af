// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package orchestrator_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/orchestrator"
)

// pushSynthetic feeds events directly into a Debouncer, the in-memory
// substitute for a real fsnotify source used throughout this file.
func pushSynthetic(d *orchestrator.Debouncer, events ...orchestrator.FileEvent) {
	for _, e := range events {
		d.Push(e)
	}
}

func TestDebouncer_MergesRepeatedEventsForSamePath(t *testing.T) {
	var mu sync.Mutex
	var batches []orchestrator.ChangeSet

	d := orchestrator.NewDebouncer(10*time.Millisecond, time.Second, 0, func(cs orchestrator.ChangeSet) {
		mu.Lock()
		batches = append(batches, cs)
		mu.Unlock()
	}, nil)

	pushSynthetic(d,
		orchestrator.FileEvent{Type: orchestrator.EventModified, Path: "a.py"},
		orchestrator.FileEvent{Type: orchestrator.EventModified, Path: "a.py"},
		orchestrator.FileEvent{Type: orchestrator.EventDeleted, Path: "a.py"},
	)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"a.py"}, batches[0].Deleted)
	require.Empty(t, batches[0].Modified)
}

func TestDebouncer_BatchWindowForcesFlushUnderContinuousChurn(t *testing.T) {
	var mu sync.Mutex
	flushCount := 0

	d := orchestrator.NewDebouncer(50*time.Millisecond, 120*time.Millisecond, 0, func(cs orchestrator.ChangeSet) {
		mu.Lock()
		flushCount++
		mu.Unlock()
	}, nil)

	stop := time.After(300 * time.Millisecond)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-stop:
			break loop
		case <-ticker.C:
			d.Push(orchestrator.FileEvent{Type: orchestrator.EventModified, Path: "busy.py"})
		}
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushCount >= 1
	}, time.Second, 10*time.Millisecond, "continuous churn past the batch window must still force a flush")
}

func TestDebouncer_StopFlushesPendingEvents(t *testing.T) {
	var got orchestrator.ChangeSet
	d := orchestrator.NewDebouncer(time.Hour, time.Hour, 0, func(cs orchestrator.ChangeSet) {
		got = cs
	}, nil)

	d.Push(orchestrator.FileEvent{Type: orchestrator.EventCreated, Path: "new.py"})
	require.Equal(t, 1, d.PendingCount())

	d.Stop()
	require.Equal(t, []string{"new.py"}, got.Added)
	require.Equal(t, 0, d.PendingCount())
}

func TestDebouncer_DropsEventsPastMaxQueueSize(t *testing.T) {
	d := orchestrator.NewDebouncer(time.Hour, time.Hour, 1, func(orchestrator.ChangeSet) {}, nil)

	d.Push(orchestrator.FileEvent{Type: orchestrator.EventCreated, Path: "a.py"})
	d.Push(orchestrator.FileEvent{Type: orchestrator.EventCreated, Path: "b.py"})

	require.Equal(t, 1, d.PendingCount())
	require.Equal(t, 1, d.DroppedCount())
}
