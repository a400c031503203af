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
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/log"
	"github.com/kragraph/kragraph/internal/output"
	"github.com/kragraph/kragraph/internal/ui"
	"github.com/kragraph/kragraph/pkg/build"
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/query"
	"github.com/kragraph/kragraph/pkg/taint/engine"
)

// queryResponse is the machine-readable envelope `kragraph query --json`
// emits: the execution result plus the provenance snapshot every external
// response carries.
type queryResponse struct {
	Status          string                  `json:"status"`
	PlanHash        string                  `json:"plan_hash"`
	Paths           []queryPath             `json:"paths"`
	TruncatedReason string                  `json:"truncated_reason,omitempty"`
	BudgetUsed      query.Budget            `json:"budget_used"`
	Verification    ir.VerificationSnapshot `json:"verification"`
}

type queryPath struct {
	Nodes      []string `json:"nodes"`
	EdgeKinds  []string `json:"edge_kinds"`
	Length     int      `json:"length"`
	Confidence float64  `json:"confidence"`
}

func runQuery(args []string, globals GlobalFlags) error {
	fs := pflag.NewFlagSet("query", pflag.ContinueOnError)
	kindFlag := fs.String("kind", "slice", "plan kind: slice|dataflow|call-chain|data-dependency")
	direction := fs.String("direction", "forward", "slice direction: forward|backward|both")
	budgetFlag := fs.String("budget", "default", "budget preset: light|default|heavy")
	patternType := fs.String("pattern-type", "symbol", "how patterns resolve: symbol|file|regex")
	intentFlag := fs.String("intent", "flow", "cost-model intent: flow|symbol|concept")
	root := fs.String("path", ".", "source tree to analyze")
	if err := fs.Parse(args); err != nil {
		return errors.NewInputError("invalid query flags", err.Error(), "run 'kragraph query --help'")
	}
	if fs.NArg() == 0 {
		return errors.NewInputError("missing query pattern", "query needs at least one symbol/file/regex pattern", "example: kragraph query --kind slice my_function")
	}

	kind, err := parsePlanKind(*kindFlag)
	if err != nil {
		return err
	}
	budget, err := parseBudget(*budgetFlag)
	if err != nil {
		return err
	}

	logger := log.New(globals.JSON, zapcore.WarnLevel)
	graph, gc, err := loadGraph(context.Background(), *root, globals, logger)
	if err != nil {
		return err
	}

	b := query.NewPlan(kind).
		WithBudget(budget).
		WithSliceDirection(query.SliceDirection(*direction)).
		WithIntent(query.Intent(strings.ToLower(*intentFlag)))
	for _, p := range fs.Args() {
		b = b.WithPattern(query.QueryPattern{Pattern: p, PatternType: *patternType})
	}
	plan, err := b.Build()
	if err != nil {
		return errors.NewInputError("invalid query plan", err.Error(), "check the pattern and flag combination")
	}

	executor := query.NewExecutor(graph, query.NewResultCache(), logger)
	result, err := executor.Execute(context.Background(), plan, gc.SnapshotID, "")
	if err != nil {
		return errors.NewInternalError("query execution failed", err.Error(), "", err)
	}

	resp := queryResponse{
		Status:          string(result.Status),
		PlanHash:        plan.Hash(),
		TruncatedReason: result.TruncatedReason,
		BudgetUsed:      result.BudgetUsed,
		Verification: ir.VerificationSnapshot{
			SnapshotID:           gc.SnapshotID,
			EngineVersion:        version,
			QueryPlanHash:        plan.Hash(),
			WorkspaceFingerprint: gc.RepoID,
			ExecutedAt:           time.Now().UTC(),
		},
	}
	for _, p := range result.Data {
		resp.Paths = append(resp.Paths, queryPath{
			Nodes:      describeNodes(graph, p.NodeIDs),
			EdgeKinds:  p.EdgeKinds,
			Length:     p.Length,
			Confidence: p.Confidence,
		})
	}

	if globals.JSON {
		return output.JSON(resp)
	}
	if len(resp.Paths) == 0 {
		ui.Info("no paths found")
		return nil
	}
	for i, p := range resp.Paths {
		fmt.Printf("%3d. %s  (confidence %.2f)\n", i+1, strings.Join(p.Nodes, " -> "), p.Confidence)
	}
	if resp.TruncatedReason != "" {
		ui.Warningf("partial result: %s", resp.TruncatedReason)
	}
	return nil
}

// loadGraph builds (or replays from cache) the snapshot for root and merges
// it into a single query graph with interprocedural edges attached.
func loadGraph(ctx context.Context, root string, globals GlobalFlags, logger log.Logger) (*query.Graph, *ir.GlobalContext, error) {
	files, err := walkSource(root, globals.DataDir)
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, errors.NewNotFoundError("no parseable files found", root, "check the path and that it contains .py or .go files")
	}
	builder, _, err := newBuilder(globals, logger)
	if err != nil {
		return nil, nil, err
	}
	cfg := build.Config{RepoID: globals.RepoID, ParallelWorkers: 4, SemanticIRMode: build.ParseMode("full")}
	docs, gc, err := runBuildOnce(ctx, builder, files, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	graph := query.BuildGraph(docs)
	graph.AddEdges(engine.MaterializeInterprocEdges(graph, docs))
	return graph, gc, nil
}

// describeNodes renders node ids as FQNs where the graph knows them,
// falling back to the raw id for synthetic External:* endpoints.
func describeNodes(graph *query.Graph, ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if n, ok := graph.Node(id); ok && n.FQN != "" {
			out[i] = n.FQN
		} else {
			out[i] = id
		}
	}
	return out
}

func parsePlanKind(s string) (query.PlanKind, error) {
	switch strings.ToLower(s) {
	case "slice":
		return query.PlanSlice, nil
	case "dataflow":
		return query.PlanDataflow, nil
	case "call-chain", "callchain":
		return query.PlanCallChain, nil
	case "data-dependency":
		return query.PlanDataDependency, nil
	default:
		return "", errors.NewInputError("unknown plan kind", fmt.Sprintf("%q is not a plan kind", s), "use slice, dataflow, call-chain or data-dependency")
	}
}

func parseBudget(s string) (query.Budget, error) {
	switch strings.ToLower(s) {
	case "light":
		return query.LightBudget(), nil
	case "default":
		return query.DefaultBudget(), nil
	case "heavy":
		return query.HeavyBudget(), nil
	default:
		return query.Budget{}, errors.NewInputError("unknown budget preset", fmt.Sprintf("%q is not a budget preset", s), "use light, default or heavy")
	}
}
