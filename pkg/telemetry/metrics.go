// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics holds Prometheus counters for the telemetry subsystem, the same
// package-level-singleton-plus-sync.Once shape as pkg/ingestion/metrics.go.
type metrics struct {
	once sync.Once

	eventsLogged    prometheus.Counter
	eventsFiltered  prometheus.Counter
	eventsDropped   prometheus.Counter
	sessionsStarted prometheus.Counter
	sessionsEvicted prometheus.Counter
	feedbackActions *prometheus.CounterVec
}

var telemetryMetrics metrics

func (m *metrics) init() {
	m.once.Do(func() {
		m.eventsLogged = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kragraph_telemetry_events_logged_total", Help: "Match events accepted into a telemetry session buffer",
		})
		m.eventsFiltered = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kragraph_telemetry_events_filtered_total", Help: "Match events dropped by the sampling/tier/confidence filter",
		})
		m.eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kragraph_telemetry_events_dropped_total", Help: "Match events dropped because a session buffer was full",
		})
		m.sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kragraph_telemetry_sessions_started_total", Help: "Telemetry sessions started",
		})
		m.sessionsEvicted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kragraph_telemetry_sessions_evicted_total", Help: "Telemetry sessions evicted to stay under max_sessions",
		})
		m.feedbackActions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kragraph_telemetry_feedback_actions_total", Help: "User feedback actions recorded, by action",
		}, []string{"action"})

		prometheus.MustRegister(
			m.eventsLogged, m.eventsFiltered, m.eventsDropped,
			m.sessionsStarted, m.sessionsEvicted, m.feedbackActions,
		)
	})
}
