// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package main implements the kragraph CLI: the command-line front end for
// the code analysis engine's build/query/scan/watch pipeline.
//
// Usage:
//
//	kragraph build <path>                 Parse, resolve and persist a snapshot
//	kragraph query <pattern> [--kind k]   Run a query plan against a fresh build
//	kragraph scan --rules <dir> [--path p] Run taint detection over a repository
//	kragraph watch <path>                  Rebuild incrementally on file changes
//	kragraph status                        Show the persisted snapshot's stats
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kragraph/kragraph/internal/errors"
	"github.com/kragraph/kragraph/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
)

// GlobalFlags are the flags every subcommand accepts, parsed once in main
// before command dispatch.
type GlobalFlags struct {
	JSON     bool
	Quiet    bool
	NoColor  bool
	DataDir  string
	RepoID   string
}

func main() {
	root := pflag.NewFlagSet("kragraph", pflag.ContinueOnError)
	showVersion := root.Bool("version", false, "show version and exit")
	globals := GlobalFlags{}
	root.BoolVar(&globals.JSON, "json", false, "emit machine-readable JSON instead of text")
	root.BoolVarP(&globals.Quiet, "quiet", "q", false, "suppress progress output")
	root.BoolVar(&globals.NoColor, "no-color", false, "disable colored output")
	root.StringVar(&globals.DataDir, "data-dir", defaultDataDir(), "directory for persisted snapshots and cache")
	root.StringVar(&globals.RepoID, "repo-id", "default", "repository identifier the snapshot is scoped to")
	root.Usage = usage

	// Subcommand flags are parsed by each runX function against the
	// remaining argv, so only global flags are consumed here; unknown
	// flags are tolerated until the subcommand's own parse.
	root.ParseErrorsWhitelist.UnknownFlags = true
	if err := root.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errors.ExitInput)
	}

	ui.InitColors(globals.NoColor)

	if *showVersion {
		fmt.Printf("kragraph version %s (%s)\n", version, commit)
		return
	}

	args := root.Args()
	if len(args) == 0 {
		usage()
		os.Exit(errors.ExitInput)
	}

	command, cmdArgs := args[0], args[1:]
	var err error
	switch command {
	case "build":
		err = runBuild(cmdArgs, globals)
	case "query":
		err = runQuery(cmdArgs, globals)
	case "scan":
		err = runScan(cmdArgs, globals)
	case "watch":
		err = runWatch(cmdArgs, globals)
	case "status":
		err = runStatus(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "kragraph: unknown command %q\n", command)
		usage()
		os.Exit(errors.ExitInput)
	}

	if err != nil {
		errors.FatalError(err, globals.JSON)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `kragraph - code analysis engine CLI

Usage:
  kragraph <command> [options]

Commands:
  build <path>             Parse, resolve and persist a snapshot
  query <pattern>          Run a query plan (--kind slice|dataflow|call-chain|data-dependency)
  scan --rules <dir>       Run taint detection over a source tree
  watch [path]             Rebuild incrementally on file changes
  status                   Show the persisted snapshot's stats

Global Options:
  --json          Emit machine-readable JSON
  -q, --quiet     Suppress progress output
  --no-color      Disable colored output
  --data-dir      Snapshot/cache directory (default: .kragraph)
  --repo-id       Repository identifier (default: "default")
`)
}

func defaultDataDir() string {
	return ".kragraph"
}
