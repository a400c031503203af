// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/taint/engine"
	"github.com/kragraph/kragraph/pkg/taint/rules"
)

func sinkRule(id string) *rules.CompiledRule {
	return &rules.CompiledRule{
		ID:   id,
		Kind: rules.KindSink,
		Pattern: rules.Pattern{
			Kind: rules.PatternCall, BaseType: "cursor", Member: "execute",
		},
		Args: []rules.ArgConstraint{{Position: 0, Tainted: true}},
	}
}

func TestMatchExpression_ExactMatchAboveThreshold(t *testing.T) {
	idx := rules.NewMultiIndex()
	idx.Add(sinkRule("sink.sql.execute"))

	expr := ir.Expression{
		ID: "f#expr0", NodeID: "f", Kind: "call", BaseType: "cursor", Name: "execute",
		Args: []ir.Argument{{Position: 0, Text: "query", IsConst: false}},
	}

	atoms := engine.MatchExpression(idx, expr)
	require.Len(t, atoms, 1)
	require.Equal(t, "sink.sql.execute", atoms[0].Rule.ID)
	require.Greater(t, atoms[0].Score, 0.5)
}

func TestMatchExpression_WrongKindExcluded(t *testing.T) {
	idx := rules.NewMultiIndex()
	idx.Add(sinkRule("sink.sql.execute"))

	expr := ir.Expression{ID: "f#expr0", NodeID: "f", Kind: "read", BaseType: "cursor", Name: "execute"}
	require.Empty(t, engine.MatchExpression(idx, expr))
}

func TestMatchExpression_CapsAtTopThree(t *testing.T) {
	idx := rules.NewMultiIndex()
	for i := 0; i < 5; i++ {
		r := &rules.CompiledRule{
			ID:   string(rune('a' + i)),
			Kind: rules.KindSink,
			Pattern: rules.Pattern{
				Kind: rules.PatternCall, BaseType: "*", Member: "execute",
			},
		}
		idx.Add(r)
	}
	expr := ir.Expression{ID: "f#expr0", NodeID: "f", Kind: "call", BaseType: "anything", Name: "execute"}
	atoms := engine.MatchExpression(idx, expr)
	require.LessOrEqual(t, len(atoms), 3)
}
