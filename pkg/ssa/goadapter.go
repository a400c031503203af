// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package ssa

import (
	"fmt"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

// GoCrossCheck loads a Go package set with go/packages, builds the
// standard-library go/ssa form, and reports per-function block counts. It
// is wired behind a debug flag (not the default build path) to sanity-check
// this package's own dominator/phi-placement construction against a
// reference implementation when the target repo happens to be Go.
type GoCrossCheck struct {
	Prog      *ssa.Program
	FuncCount int
	Blocks    map[string]int
}

// CrossCheckGo builds go/ssa for dir and returns per-function block counts
// keyed by the function's qualified name, for comparison against this
// package's own Build output on the same source.
func CrossCheckGo(dir string) (*GoCrossCheck, error) {
	cfg := &packages.Config{
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedTypes | packages.NeedTypesSizes |
			packages.NeedSyntax | packages.NeedTypesInfo | packages.NeedDeps,
		Dir: dir,
	}
	pkgs, err := packages.Load(cfg, "./...")
	if err != nil {
		return nil, fmt.Errorf("ssa: load packages in %s: %w", dir, err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		return nil, fmt.Errorf("ssa: errors loading packages in %s", dir)
	}

	prog, ssaPkgs := ssautil.AllPackages(pkgs, ssa.InstantiateGenerics)
	prog.Build()

	out := &GoCrossCheck{Prog: prog, Blocks: make(map[string]int)}
	for _, sp := range ssaPkgs {
		if sp == nil {
			continue
		}
		for _, member := range sp.Members {
			fn, ok := member.(*ssa.Function)
			if !ok || fn.Blocks == nil {
				continue
			}
			out.FuncCount++
			out.Blocks[fn.RelString(nil)] = len(fn.Blocks)
		}
	}
	return out, nil
}
