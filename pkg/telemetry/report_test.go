// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/telemetry"
)

func TestTopPatterns_GroupsByBaseTypeAndVerb(t *testing.T) {
	events := []telemetry.MatchEvent{
		{BaseType: "cursor", Call: "execute", Confidence: 0.9},
		{BaseType: "cursor", Call: "execute", Confidence: 0.8},
		{BaseType: "request", Read: "GET", Confidence: 0.5},
	}

	patterns := telemetry.TopPatterns(events, 1, 10)
	require.Len(t, patterns, 2)
	require.Equal(t, "cursor.execute", patterns[0].Pattern)
	require.Equal(t, 2, patterns[0].Count)
	require.InDelta(t, 0.85, patterns[0].AvgConfidence, 1e-9)
}

func TestTopPatterns_ThresholdExcludesRarePatterns(t *testing.T) {
	events := []telemetry.MatchEvent{
		{BaseType: "cursor", Call: "execute"},
	}
	require.Empty(t, telemetry.TopPatterns(events, 2, 10))
}

func TestEstimateFPRate_NoFeedbackReturnsNotOK(t *testing.T) {
	_, ok := telemetry.EstimateFPRate([]telemetry.MatchEvent{{RuleID: "r1"}})
	require.False(t, ok)
}

func TestEstimateFPRate_ComputesSuppressedOverTotal(t *testing.T) {
	events := []telemetry.MatchEvent{
		{UserAction: telemetry.ActionSuppress},
		{UserAction: telemetry.ActionSuppress},
		{UserAction: telemetry.ActionConfirm},
	}
	rate, ok := telemetry.EstimateFPRate(events)
	require.True(t, ok)
	require.InDelta(t, 2.0/3.0, rate, 1e-9)
}

func TestHealthChecker_FlagsHighFPRate(t *testing.T) {
	checker := telemetry.NewHealthChecker()
	stats := telemetry.RuleStatistics{RuleID: "r1", AtomID: "a1", SuppressedCount: 8, ConfirmedCount: 2, TotalMatches: 10}

	report := checker.Check(stats)
	require.False(t, report.IsHealthy)
	require.Contains(t, report.Recommendation, "false positive")
}

func TestHealthChecker_InsufficientFeedbackIsNotUnhealthy(t *testing.T) {
	checker := telemetry.NewHealthChecker()
	stats := telemetry.RuleStatistics{RuleID: "r1", AtomID: "a1", SuppressedCount: 1, ConfirmedCount: 1, TotalMatches: 2}

	report := checker.Check(stats)
	require.True(t, report.IsHealthy)
	require.Equal(t, "Insufficient feedback data for judgment", report.Recommendation)
}

func TestAnalyze_RecommendsReviewAboveThirtyPercentFPRate(t *testing.T) {
	events := []telemetry.MatchEvent{
		{RuleID: "r1", AtomID: "a1", UserAction: telemetry.ActionSuppress},
		{RuleID: "r1", AtomID: "a1", UserAction: telemetry.ActionSuppress},
		{RuleID: "r1", AtomID: "a1", UserAction: telemetry.ActionConfirm},
	}
	report := telemetry.Analyze(events, nil)
	require.NotEmpty(t, report.Recommendations)
	require.NotNil(t, report.OverallFPRate)
}
