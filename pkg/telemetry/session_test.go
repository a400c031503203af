// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/telemetry"
)

func TestLogMatch_Tier3AlwaysCollected(t *testing.T) {
	c := telemetry.NewCollector(telemetry.CollectorConfig{
		CollectTier3: true, ConfidenceThreshold: 0.7, SampleRate: 0, MaxEventsPerSession: 10, MaxSessions: 10,
	}, nil)

	evt := c.LogMatch(telemetry.MatchEvent{RuleID: "r1", AtomID: "a1", Tier: "tier3", Confidence: 0.95}, "")
	require.NotNil(t, evt)
	require.NotEmpty(t, evt.EventID)
}

func TestLogMatch_LowConfidenceAlwaysCollected(t *testing.T) {
	c := telemetry.NewCollector(telemetry.CollectorConfig{
		CollectLowConfidence: true, ConfidenceThreshold: 0.7, SampleRate: 0, MaxEventsPerSession: 10, MaxSessions: 10,
	}, nil)

	evt := c.LogMatch(telemetry.MatchEvent{RuleID: "r1", AtomID: "a1", Tier: "tier1", Confidence: 0.3}, "")
	require.NotNil(t, evt)
}

func TestLogMatch_SampleRateZeroFiltersHighConfidenceTier1(t *testing.T) {
	c := telemetry.NewCollector(telemetry.CollectorConfig{
		CollectTier3: false, CollectLowConfidence: false, ConfidenceThreshold: 0.7, SampleRate: 0,
		MaxEventsPerSession: 10, MaxSessions: 10,
	}, nil)

	evt := c.LogMatch(telemetry.MatchEvent{RuleID: "r1", AtomID: "a1", Tier: "tier1", Confidence: 0.95}, "")
	require.Nil(t, evt)
}

func TestLogMatch_EventLimitPerSessionIsEnforced(t *testing.T) {
	c := telemetry.NewCollector(telemetry.CollectorConfig{
		CollectTier3: true, SampleRate: 1.0, MaxEventsPerSession: 1, MaxSessions: 10,
	}, nil)

	s := c.StartSession("s1")
	require.NotNil(t, c.LogMatch(telemetry.MatchEvent{RuleID: "r1", AtomID: "a1", Tier: "tier3"}, s.SessionID))
	require.Nil(t, c.LogMatch(telemetry.MatchEvent{RuleID: "r1", AtomID: "a1", Tier: "tier3"}, s.SessionID))
}

func TestRecordUserAction_RollsUpIntoRuleStats(t *testing.T) {
	c := telemetry.NewCollector(telemetry.CollectorConfig{
		CollectTier3: true, SampleRate: 1.0, MaxEventsPerSession: 10, MaxSessions: 10,
	}, nil)

	evt := c.LogMatch(telemetry.MatchEvent{RuleID: "sqlinj", AtomID: "a1", Tier: "tier3"}, "")
	require.True(t, c.RecordUserAction(evt.EventID, telemetry.ActionSuppress))

	stats, ok := c.RuleStats("sqlinj", "a1")
	require.True(t, ok)
	require.Equal(t, 1, stats.SuppressedCount)
	require.Equal(t, 1, stats.TotalMatches)
}

func TestRecordUserAction_UnknownEventReturnsFalse(t *testing.T) {
	c := telemetry.NewCollector(telemetry.DefaultCollectorConfig(), nil)
	require.False(t, c.RecordUserAction("missing", telemetry.ActionConfirm))
}

func TestStartSession_EvictsOldestWhenAtCapacity(t *testing.T) {
	c := telemetry.NewCollector(telemetry.CollectorConfig{
		CollectTier3: true, SampleRate: 1.0, MaxEventsPerSession: 10, MaxSessions: 2,
	}, nil)

	c.StartSession("s1")
	c.StartSession("s2")
	c.StartSession("s3")

	require.Nil(t, c.Session("s1"))
}
