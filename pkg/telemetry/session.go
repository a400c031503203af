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
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kragraph/kragraph/internal/log"
)

// CollectorConfig mirrors the Python collector's CollectorConfig dataclass
// field for field, including its defaults.
type CollectorConfig struct {
	CollectTier3         bool
	CollectLowConfidence bool
	ConfidenceThreshold  float64
	SampleRate           float64
	MaxEventsPerSession  int
	MaxSessions          int
}

// DefaultCollectorConfig matches the Python dataclass's field defaults.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		CollectTier3:         true,
		CollectLowConfidence: true,
		ConfidenceThreshold:  0.7,
		SampleRate:           1.0,
		MaxEventsPerSession:  10000,
		MaxSessions:          100,
	}
}

// Collector is a mutex-guarded session buffer:
// filtering on collection, per-session event ordering, and rule-level
// rollups of user feedback.
type Collector struct {
	mu     sync.Mutex
	cfg    CollectorConfig
	logger log.Logger

	sessions  map[string]*Session
	events    map[string]*MatchEvent
	ruleStats map[string]*RuleStatistics
}

// NewCollector constructs a Collector. A zero CollectorConfig is replaced
// with DefaultCollectorConfig.
func NewCollector(cfg CollectorConfig, logger log.Logger) *Collector {
	if cfg == (CollectorConfig{}) {
		cfg = DefaultCollectorConfig()
	}
	if logger == nil {
		logger = log.Nop
	}
	return &Collector{
		cfg:       cfg,
		logger:    logger,
		sessions:  make(map[string]*Session),
		events:    make(map[string]*MatchEvent),
		ruleStats: make(map[string]*RuleStatistics),
	}
}

// StartSession opens a new session, evicting the oldest 10% of existing
// sessions first if at MaxSessions capacity.
func (c *Collector) StartSession(sessionID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if len(c.sessions) >= c.cfg.MaxSessions {
		c.evictOldestLocked()
	}

	s := &Session{SessionID: sessionID, StartTime: time.Now()}
	c.sessions[sessionID] = s
	c.logger.Debug("telemetry.session.started", "session_id", sessionID)
	telemetryMetrics.init()
	telemetryMetrics.sessionsStarted.Inc()
	return s
}

// EndSession closes a session, recording its end time.
func (c *Collector) EndSession(sessionID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.sessions[sessionID]
	if !ok {
		c.logger.Warn("telemetry.session.not_found", "session_id", sessionID)
		return nil
	}
	s.EndTime = time.Now()
	s.Closed = true
	c.logger.Info("telemetry.session.ended", "session_id", sessionID,
		"total_matches", s.TotalMatches(), "reported_matches", s.ReportedMatches())
	return s
}

// LogMatch appends a match event to sessionID's buffer (or a fresh
// default session if sessionID is empty and none is open yet), applying
// the tier-3/low-confidence/sample-rate collection filter first. It
// returns nil if the event was filtered out or the session is full.
func (c *Collector) LogMatch(evt MatchEvent, sessionID string) *MatchEvent {
	telemetryMetrics.init()
	if !c.shouldCollect(evt) {
		telemetryMetrics.eventsFiltered.Inc()
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.sessionLocked(sessionID)
	if s == nil {
		return nil
	}
	if len(s.Events) >= c.cfg.MaxEventsPerSession {
		c.logger.Warn("telemetry.session.event_limit_reached", "session_id", s.SessionID)
		telemetryMetrics.eventsDropped.Inc()
		return nil
	}

	evt.EventID = uuid.NewString()
	evt.SessionID = s.SessionID
	evt.LoggedAt = time.Now()

	s.Events = append(s.Events, evt)
	stored := &s.Events[len(s.Events)-1]
	c.events[evt.EventID] = stored
	c.updateRuleStatsLocked(stored)
	telemetryMetrics.eventsLogged.Inc()

	return stored
}

// RecordUserAction attaches suppress/confirm/ignore feedback to a
// previously logged event and rolls it into both the session's and the
// rule's aggregate counts.
func (c *Collector) RecordUserAction(eventID string, action UserAction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	evt, ok := c.events[eventID]
	if !ok {
		c.logger.Warn("telemetry.event.not_found", "event_id", eventID)
		return false
	}
	evt.UserAction = action

	if s, ok := c.sessions[evt.SessionID]; ok {
		// evt may point into an older backing array of s.Events once the
		// slice has grown, so the session's own copy is updated as well.
		for i := range s.Events {
			if s.Events[i].EventID == eventID {
				s.Events[i].UserAction = action
			}
		}
		switch action {
		case ActionSuppress:
			s.SuppressedMatches++
		case ActionConfirm:
			s.ConfirmedMatches++
		}
	}

	if stats, ok := c.ruleStats[evt.key()]; ok {
		switch action {
		case ActionSuppress:
			stats.SuppressedCount++
		case ActionConfirm:
			stats.ConfirmedCount++
		case ActionIgnore:
			stats.IgnoredCount++
		}
	}

	telemetryMetrics.init()
	telemetryMetrics.feedbackActions.WithLabelValues(string(action)).Inc()
	return true
}

// Session returns a session by id.
func (c *Collector) Session(sessionID string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[sessionID]
}

// RuleStats returns the aggregate statistics for one rule/atom pair.
func (c *Collector) RuleStats(ruleID, atomID string) (RuleStatistics, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.ruleStats[ruleID+":"+atomID]
	if !ok {
		return RuleStatistics{}, false
	}
	return *s, true
}

// AllRuleStats returns every rule's statistics, sorted by rule id then
// atom id for deterministic reporting.
func (c *Collector) AllRuleStats() []RuleStatistics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RuleStatistics, 0, len(c.ruleStats))
	for _, s := range c.ruleStats {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RuleID != out[j].RuleID {
			return out[i].RuleID < out[j].RuleID
		}
		return out[i].AtomID < out[j].AtomID
	})
	return out
}

// AllEvents returns every event across every session, in session-buffer
// (insertion) order per session, sessions in start-time order.
func (c *Collector) AllEvents() []MatchEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartTime.Before(sessions[j].StartTime) })

	var out []MatchEvent
	for _, s := range sessions {
		out = append(out, s.Events...)
	}
	return out
}

func (c *Collector) shouldCollect(evt MatchEvent) bool {
	if c.cfg.CollectTier3 && evt.Tier == "tier3" {
		return true
	}
	if c.cfg.CollectLowConfidence && evt.Confidence < c.cfg.ConfidenceThreshold {
		return true
	}
	if c.cfg.SampleRate < 1.0 && rand.Float64() > c.cfg.SampleRate {
		return false
	}
	return true
}

func (c *Collector) sessionLocked(sessionID string) *Session {
	if sessionID == "" {
		if len(c.sessions) == 0 {
			s := &Session{SessionID: uuid.NewString(), StartTime: time.Now()}
			c.sessions[s.SessionID] = s
			return s
		}
		for _, s := range c.sessions {
			return s
		}
	}
	return c.sessions[sessionID]
}

func (c *Collector) updateRuleStatsLocked(evt *MatchEvent) {
	key := evt.key()
	stats, ok := c.ruleStats[key]
	if !ok {
		stats = &RuleStatistics{RuleID: evt.RuleID, AtomID: evt.AtomID}
		c.ruleStats[key] = stats
	}
	stats.TotalMatches++
}

func (c *Collector) evictOldestLocked() {
	if len(c.sessions) < c.cfg.MaxSessions {
		return
	}
	ordered := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		ordered = append(ordered, s)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].StartTime.Before(ordered[j].StartTime) })

	toRemove := len(ordered) / 10
	if toRemove < 1 {
		toRemove = 1
	}
	for _, s := range ordered[:toRemove] {
		delete(c.sessions, s.SessionID)
	}
	c.logger.Debug("telemetry.session.evicted", "count", toRemove)
	telemetryMetrics.init()
	telemetryMetrics.sessionsEvicted.Add(float64(toRemove))
}
