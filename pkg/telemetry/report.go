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
	"fmt"
	"sort"
)

// TopPatterns groups events by "base_type.call_or_read" pattern key,
// dropping groups below threshold and sorting by descending count.
func TopPatterns(events []MatchEvent, threshold, limit int) []PatternStats {
	type acc struct {
		count             int
		totalConfidence   float64
		suppressed        int
		confirmed         int
	}
	byPattern := make(map[string]*acc)

	for _, e := range events {
		verb := e.Call
		if verb == "" {
			verb = e.Read
		}
		if verb == "" {
			verb = "*"
		}
		pattern := e.BaseType + "." + verb

		a, ok := byPattern[pattern]
		if !ok {
			a = &acc{}
			byPattern[pattern] = a
		}
		a.count++
		a.totalConfidence += e.Confidence
		switch e.UserAction {
		case ActionSuppress:
			a.suppressed++
		case ActionConfirm:
			a.confirmed++
		}
	}

	var out []PatternStats
	for pattern, a := range byPattern {
		if a.count < threshold {
			continue
		}
		out = append(out, PatternStats{
			Pattern:       pattern,
			Count:         a.count,
			AvgConfidence: a.totalConfidence / float64(a.count),
			Suppressed:    a.suppressed,
			Confirmed:     a.confirmed,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pattern < out[j].Pattern
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopPatternsByRule groups events by rule id first, then runs TopPatterns
// per rule with threshold 1 and a limit of 20 patterns, matching
// FrequencyAnalyzer.by_rule.
func TopPatternsByRule(events []MatchEvent) map[string][]PatternStats {
	byRule := make(map[string][]MatchEvent)
	for _, e := range events {
		byRule[e.RuleID] = append(byRule[e.RuleID], e)
	}
	out := make(map[string][]PatternStats, len(byRule))
	for ruleID, es := range byRule {
		out[ruleID] = TopPatterns(es, 1, 20)
	}
	return out
}

// EstimateFPRate is FPTPEstimator.estimate_fp_rate: suppressed/(suppressed
// + confirmed) over the given events, with an ok=false "no feedback yet"
// result when neither action has been recorded.
func EstimateFPRate(events []MatchEvent) (float64, bool) {
	var suppressed, confirmed int
	for _, e := range events {
		switch e.UserAction {
		case ActionSuppress:
			suppressed++
		case ActionConfirm:
			confirmed++
		}
	}
	total := suppressed + confirmed
	if total == 0 {
		return 0, false
	}
	return float64(suppressed) / float64(total), true
}

// EstimatePrecision is 1 - EstimateFPRate.
func EstimatePrecision(events []MatchEvent) (float64, bool) {
	fp, ok := EstimateFPRate(events)
	if !ok {
		return 0, false
	}
	return 1.0 - fp, true
}

// FPRateByTier buckets events by tier and runs EstimateFPRate over each
// bucket.
func FPRateByTier(events []MatchEvent) map[string]*float64 {
	byTier := make(map[string][]MatchEvent)
	for _, e := range events {
		byTier[e.Tier] = append(byTier[e.Tier], e)
	}
	out := make(map[string]*float64, len(byTier))
	for tier, es := range byTier {
		if rate, ok := EstimateFPRate(es); ok {
			r := rate
			out[tier] = &r
		} else {
			out[tier] = nil
		}
	}
	return out
}

// FPRateByRule is FPRateByTier's rule-keyed counterpart.
func FPRateByRule(events []MatchEvent) map[string]*float64 {
	byRule := make(map[string][]MatchEvent)
	for _, e := range events {
		byRule[e.RuleID] = append(byRule[e.RuleID], e)
	}
	out := make(map[string]*float64, len(byRule))
	for ruleID, es := range byRule {
		if rate, ok := EstimateFPRate(es); ok {
			r := rate
			out[ruleID] = &r
		} else {
			out[ruleID] = nil
		}
	}
	return out
}

// HealthReport is RuleHealthChecker's per-rule verdict.
type HealthReport struct {
	RuleID         string
	AtomID         string
	IsHealthy      bool
	FPRate         *float64
	TotalMatches   int
	FeedbackCount  int
	Recommendation string
}

// HealthChecker flags unhealthy rules from their aggregate statistics,
// with fixed health thresholds.
type HealthChecker struct {
	FPThreshold           float64
	MinFeedbackForJudgment int
}

// NewHealthChecker constructs a HealthChecker with the Python reference's
// default thresholds (fp_threshold=0.5, min_feedback_for_judgment=5).
func NewHealthChecker() HealthChecker {
	return HealthChecker{FPThreshold: 0.5, MinFeedbackForJudgment: 5}
}

// Check evaluates one rule's health.
func (h HealthChecker) Check(stats RuleStatistics) HealthReport {
	fpRate, hasFeedback := stats.FalsePositiveRate()
	feedbackCount := stats.SuppressedCount + stats.ConfirmedCount

	report := HealthReport{
		RuleID:         stats.RuleID,
		AtomID:         stats.AtomID,
		IsHealthy:      true,
		TotalMatches:   stats.TotalMatches,
		FeedbackCount:  feedbackCount,
		Recommendation: "Rule is healthy",
	}
	if hasFeedback {
		r := fpRate
		report.FPRate = &r
	}

	switch {
	case feedbackCount < h.MinFeedbackForJudgment:
		report.Recommendation = "Insufficient feedback data for judgment"
	case hasFeedback && fpRate > h.FPThreshold:
		report.IsHealthy = false
		report.Recommendation = fmt.Sprintf(
			"High false positive rate (%.1f%%). Consider refining pattern or increasing specificity.", fpRate*100)
	case stats.TotalMatches == 0:
		report.Recommendation = "Rule has no matches. May be dead code."
	}
	return report
}

// CheckAll checks every rule's health.
func (h HealthChecker) CheckAll(all []RuleStatistics) []HealthReport {
	out := make([]HealthReport, len(all))
	for i, s := range all {
		out[i] = h.Check(s)
	}
	return out
}

// Unhealthy filters CheckAll down to the unhealthy subset.
func (h HealthChecker) Unhealthy(all []RuleStatistics) []HealthReport {
	var out []HealthReport
	for _, r := range h.CheckAll(all) {
		if !r.IsHealthy {
			out = append(out, r)
		}
	}
	return out
}

// AnalysisReport is analyze_telemetry's complete bundle.
type AnalysisReport struct {
	TotalEvents     int
	TotalRules      int
	OverallFPRate   *float64
	FPRateByTier    map[string]*float64
	TopPatterns     []PatternStats
	UnhealthyRules  []HealthReport
	Recommendations []string
}

// Analyze runs the full FP-rate/top-pattern/health-check pipeline over a
// collector's buffered events and rule statistics, matching
// fixed recommendation thresholds
// (overall FP > 30%, any unhealthy rules, tier3 FP > 50%).
func Analyze(events []MatchEvent, ruleStats []RuleStatistics) AnalysisReport {
	checker := NewHealthChecker()

	topPatterns := TopPatterns(events, 10, 20)
	overallFP, hasOverall := EstimateFPRate(events)
	fpByTier := FPRateByTier(events)
	unhealthy := checker.Unhealthy(ruleStats)

	var recommendations []string
	if hasOverall && overallFP > 0.3 {
		recommendations = append(recommendations,
			fmt.Sprintf("Overall FP rate is %.1f%%. Consider reviewing tier3 rules.", overallFP*100))
	}
	if len(unhealthy) > 0 {
		recommendations = append(recommendations,
			fmt.Sprintf("%d unhealthy rules found. Review and refine these rules.", len(unhealthy)))
	}
	if tier3FP, ok := fpByTier["tier3"]; ok && tier3FP != nil && *tier3FP > 0.5 {
		recommendations = append(recommendations,
			fmt.Sprintf("Tier3 FP rate is %.1f%%. Consider promoting accurate tier3 rules to tier2.", *tier3FP*100))
	}

	report := AnalysisReport{
		TotalEvents:     len(events),
		TotalRules:      len(ruleStats),
		FPRateByTier:    fpByTier,
		TopPatterns:     topPatterns,
		UnhealthyRules:  unhealthy,
		Recommendations: recommendations,
	}
	if hasOverall {
		r := overallFP
		report.OverallFPRate = &r
	}
	return report
}
