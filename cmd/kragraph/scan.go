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
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/internal/output"
	"github.com/kragraph/kragraph/internal/ui"
	"github.com/kragraph/kragraph/pkg/build"
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/parser/pyplugin"
	"github.com/kragraph/kragraph/pkg/query"
	"github.com/kragraph/kragraph/pkg/taint/engine"
	"github.com/kragraph/kragraph/pkg/taint/rules"
	"github.com/kragraph/kragraph/pkg/telemetry"
)

// vulnerability is one reported source-to-sink proof, the scan command's
// externally visible result record.
type vulnerability struct {
	SourceRule string   `json:"source_rule"`
	SinkRule   string   `json:"sink_rule"`
	CWE        string   `json:"cwe,omitempty"`
	Severity   string   `json:"severity"`
	File       string   `json:"file"`
	Path       []string `json:"path"`
	Confidence float64  `json:"confidence"`
}

type scanResponse struct {
	Vulnerabilities []vulnerability         `json:"vulnerabilities"`
	AtomsMatched    int                     `json:"atoms_matched"`
	RulesSubsumed   int                     `json:"rules_subsumed"`
	Verification    ir.VerificationSnapshot `json:"verification"`
}

func runScan(args []string, globals GlobalFlags) error {
	fs := pflag.NewFlagSet("scan", pflag.ContinueOnError)
	rulesDir := fs.String("rules", "", "directory of YAML rule catalogs (required)")
	policyID := fs.String("policy", "default", "taint policy id")
	policyWeight := fs.Float64("policy-weight", 1.0, "confidence multiplier for this policy")
	root := fs.String("path", ".", "source tree to analyze")
	if err := fs.Parse(args); err != nil {
		return errors.NewInputError("invalid scan flags", err.Error(), "run 'kragraph scan --help'")
	}
	if *rulesDir == "" {
		return errors.NewInputError("missing --rules", "scan needs a rule catalog directory", "pass --rules <dir> pointing at YAML atom catalogs")
	}

	logger := log.New(globals.JSON, zapcore.WarnLevel)

	builder, ruleCache, err := newBuilder(globals, logger)
	if err != nil {
		return err
	}

	sources, err := rules.ReadCatalogDir(*rulesDir)
	if err != nil {
		return errors.NewInputError("failed to read rule catalogs", err.Error(), "check the --rules directory")
	}
	rulesetHash := rules.SourcesHash(sources)

	compiler := rules.NewCompiler(ruleCache, pyplugin.New(), logger)
	idx, subsumed, err := compiler.CompileDir(rules.ReadCatalogDir, *rulesDir)
	if err != nil {
		return errors.NewInputError("rule compilation failed", err.Error(), "fix the catalog and re-run")
	}

	files, err := walkSource(*root, globals.DataDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.NewNotFoundError("no parseable files found", *root, "check the path and that it contains .py or .go files")
	}

	ctx := context.Background()
	cfg := build.Config{RepoID: globals.RepoID, ParallelWorkers: 4, SemanticIRMode: build.ParseMode("full")}
	docs, gc, err := runBuildOnce(ctx, builder, files, cfg, logger)
	if err != nil {
		return err
	}

	graph := query.BuildGraph(docs)
	graph.AddEdges(engine.MaterializeInterprocEdges(graph, docs))

	var exprs []ir.Expression
	for _, d := range docs {
		exprs = append(exprs, d.Expressions...)
	}
	atoms := engine.MatchAll(idx, exprs)

	collector := telemetry.NewCollector(telemetry.DefaultCollectorConfig(), logger)
	sessionID := uuid.NewString()
	collector.StartSession(sessionID)
	for _, a := range atoms {
		evt := telemetry.MatchEvent{
			RuleID:     a.Rule.ID,
			AtomID:     a.Expression.ID,
			BaseType:   a.Expression.BaseType,
			Confidence: a.Score,
			Tier:       fmt.Sprintf("tier%d", a.Rule.Tier),
			Reported:   true,
		}
		if a.Expression.Kind == "read" {
			evt.Read = a.Expression.Name
		} else {
			evt.Call = a.Expression.Name
		}
		collector.LogMatch(evt, sessionID)
	}
	collector.EndSession(sessionID)

	analyzer := engine.NewFlowAnalyzer(graph, query.NewExecutor(graph, query.NewResultCache(), logger))
	proofs, err := analyzer.FindProofs(ctx, atoms, gc.SnapshotID, rulesetHash, engine.Policy{ID: *policyID, Weight: *policyWeight})
	if err != nil {
		return errors.NewInternalError("taint analysis failed", err.Error(), "", err)
	}

	resp := scanResponse{
		AtomsMatched:  len(atoms),
		RulesSubsumed: len(subsumed),
		Verification: ir.VerificationSnapshot{
			SnapshotID:           gc.SnapshotID,
			EngineVersion:        version,
			RulesetHash:          rulesetHash,
			WorkspaceFingerprint: gc.RepoID,
			ExecutedAt:           time.Now().UTC(),
		},
	}
	for _, p := range proofs {
		resp.Vulnerabilities = append(resp.Vulnerabilities, vulnerability{
			SourceRule: p.Source.Rule.ID,
			SinkRule:   p.Sink.Rule.ID,
			CWE:        p.Sink.Rule.CWE,
			Severity:   p.Sink.Rule.Severity,
			File:       fileOf(graph, p.Sink.Expression.NodeID),
			Path:       describeNodes(graph, p.Path.NodeIDs),
			Confidence: p.Confidence,
		})
	}

	if globals.JSON {
		return output.JSON(resp)
	}
	if len(resp.Vulnerabilities) == 0 {
		ui.Successf("no taint flows found (%d atoms matched)", resp.AtomsMatched)
		return nil
	}
	for i, v := range resp.Vulnerabilities {
		ui.Warningf("%d. [%s %s] %s -> %s in %s (confidence %.2f)",
			i+1, v.Severity, v.CWE, v.SourceRule, v.SinkRule, v.File, v.Confidence)
	}
	return nil
}

func fileOf(graph *query.Graph, nodeID string) string {
	if n, ok := graph.Node(nodeID); ok {
		return n.FilePath
	}
	return ""
}
