// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package telemetry keeps a session buffer of rule match
// events with sampling and mandatory tier-3/low-confidence collection,
// user-feedback rollups into per-rule statistics, and the analytical
// summaries (FP rate by tier/rule, top trigger patterns, rule health)
// derivable from that buffer without any external dependency.
package telemetry

import "time"

// UserAction is feedback a user can attach to a reported match.
type UserAction string

const (
	ActionSuppress UserAction = "suppress"
	ActionConfirm  UserAction = "confirm"
	ActionIgnore   UserAction = "ignore"
)

// MatchEvent is one taint-match telemetry record: (rule_id, atom_id,
// session, base_type, call/read, confidence, tier, reported).
type MatchEvent struct {
	EventID    string
	RuleID     string
	AtomID     string
	SessionID  string
	BaseType   string
	Call       string
	Read       string
	Confidence float64
	Tier       string
	Reported   bool
	UserAction UserAction
	LoggedAt   time.Time
}

// key identifies a rule for aggregation, matching the Python collector's
// "rule_id:atom_id" composite key.
func (e MatchEvent) key() string { return e.RuleID + ":" + e.AtomID }

// Session is one telemetry session: an ordered event buffer plus running
// suppress/confirm counts.
type Session struct {
	SessionID         string
	StartTime         time.Time
	EndTime           time.Time
	Closed            bool
	Events            []MatchEvent
	SuppressedMatches int
	ConfirmedMatches  int
}

// TotalMatches is how many events this session logged.
func (s *Session) TotalMatches() int { return len(s.Events) }

// ReportedMatches is how many of this session's events were surfaced to
// the user (Reported == true).
func (s *Session) ReportedMatches() int {
	n := 0
	for _, e := range s.Events {
		if e.Reported {
			n++
		}
	}
	return n
}

// RuleStatistics aggregates feedback for one (rule_id, atom_id) pair.
type RuleStatistics struct {
	RuleID          string
	AtomID          string
	TotalMatches    int
	SuppressedCount int
	ConfirmedCount  int
	IgnoredCount    int
}

// FalsePositiveRate is suppressed/(suppressed+confirmed), or (false, 0) if
// no feedback has been recorded yet (matches Python's Optional[float]
// "no feedback" sentinel with an explicit ok flag instead).
func (s RuleStatistics) FalsePositiveRate() (float64, bool) {
	total := s.SuppressedCount + s.ConfirmedCount
	if total == 0 {
		return 0, false
	}
	return float64(s.SuppressedCount) / float64(total), true
}

// PatternStats is one row of the top-trigger-patterns report.
type PatternStats struct {
	Pattern       string
	Count         int
	AvgConfidence float64
	Suppressed    int
	Confirmed     int
}
