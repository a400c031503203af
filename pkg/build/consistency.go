// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"fmt"

	"github.com/kragraph/kragraph/pkg/ir"
)

// CheckConsistency re-validates edge referential integrity, per-file FQN
// uniqueness, and SSA well-formedness over a freshly produced set of
// IRDocuments, downgrading the result to partial via diagnostics rather
// than panicking.
func CheckConsistency(docs []*ir.IRDocument) []ir.Diagnostic {
	var diags []ir.Diagnostic
	seenFQN := make(map[string]map[string]bool) // file -> fqn+kind -> seen

	for _, d := range docs {
		diags = append(diags, d.CheckReferentialIntegrity()...)

		fileSeen := seenFQN[d.FilePath]
		if fileSeen == nil {
			fileSeen = make(map[string]bool)
			seenFQN[d.FilePath] = fileSeen
		}
		for _, n := range d.Nodes {
			if n.FQN == "" {
				continue
			}
			key := fmt.Sprintf("%s|%s", n.Kind, n.FQN)
			if fileSeen[key] {
				diags = append(diags, ir.Diagnostic{
					Code:    "FQN_COLLISION",
					Message: fmt.Sprintf("duplicate fqn %q for kind %s in %s", n.FQN, n.Kind, d.FilePath),
				})
			}
			fileSeen[key] = true
		}

		for fnID, fn := range d.Functions {
			if fn.SSA == nil || fn.CFG == nil {
				continue
			}
			diags = append(diags, checkSSAWellFormed(fnID, fn)...)
		}
	}
	return diags
}

// checkSSAWellFormed verifies SSA well-formedness: every φ-node has exactly
// one incoming value per predecessor block of its owning block.
func checkSSAWellFormed(fnID string, fn *ir.FunctionIR) []ir.Diagnostic {
	var diags []ir.Diagnostic
	for _, phi := range fn.SSA.Phis {
		block, ok := fn.CFG.Blocks[phi.Block]
		if !ok {
			diags = append(diags, ir.Diagnostic{
				Code: "SSA_PHI_UNKNOWN_BLOCK", Message: phi.Block, FunctionID: fnID,
			})
			continue
		}
		if len(phi.Operands) != len(block.Predecessors) {
			diags = append(diags, ir.Diagnostic{
				Code: "SSA_PHI_OPERAND_MISMATCH",
				Message: fmt.Sprintf("phi for %s at %s has %d operands, block has %d predecessors",
					phi.Variable, phi.Block, len(phi.Operands), len(block.Predecessors)),
				FunctionID: fnID,
			})
		}
	}
	return diags
}
