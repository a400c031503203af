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

	"github.com/spf13/pflag"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/output"
	"github.com/kragraph/kragraph/pkg/store"
)

type statusReport struct {
	RepoID     string `json:"repo_id"`
	SnapshotID string `json:"snapshot_id"`
	DataDir    string `json:"data_dir"`
	Symbols    int    `json:"symbols"`
	Relations  int    `json:"relations"`
}

func runStatus(args []string, globals GlobalFlags) error {
	fs := pflag.NewFlagSet("status", pflag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return errors.NewInputError("invalid status flags", err.Error(), "run 'kragraph status --help'")
	}

	backend, err := newBackend(globals)
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := context.Background()
	s := store.New(backend)
	symbols, err := s.Symbols(ctx, globals.RepoID, defaultSnapshotID)
	if err != nil {
		return errors.NewDatabaseError("failed to read symbols", err.Error(), "run 'kragraph build' first", err)
	}
	relations, err := s.Relations(ctx, globals.RepoID, defaultSnapshotID)
	if err != nil {
		return errors.NewDatabaseError("failed to read relations", err.Error(), "run 'kragraph build' first", err)
	}

	report := statusReport{
		RepoID:     globals.RepoID,
		SnapshotID: defaultSnapshotID,
		DataDir:    globals.DataDir,
		Symbols:    len(symbols),
		Relations:  len(relations),
	}
	if globals.JSON {
		return output.JSON(report)
	}
	fmt.Printf("repo:      %s\n", report.RepoID)
	fmt.Printf("snapshot:  %s\n", report.SnapshotID)
	fmt.Printf("data dir:  %s\n", report.DataDir)
	fmt.Printf("symbols:   %d\n", report.Symbols)
	fmt.Printf("relations: %d\n", report.Relations)
	return nil
}
