// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package irgen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/irgen"
)

func TestNoopAnalyzer_ReturnsNothing(t *testing.T) {
	hints, err := irgen.NoopAnalyzer{}.InferTypes(context.Background(), "a.py", []string{"a.py#f"})
	require.NoError(t, err)
	require.Nil(t, hints)
}

func TestApplyTypeHints_MergesIntoExistingAttrs(t *testing.T) {
	attrs := map[string]map[string]any{
		"a.py#f": {"other": "kept"},
	}
	hints := []irgen.TypeHint{
		{NodeID: "a.py#f", Type: "int", Confidence: 0.9},
		{NodeID: "missing", Type: "str", Confidence: 0.5},
	}

	irgen.ApplyTypeHints(attrs, hints)

	require.Equal(t, "kept", attrs["a.py#f"]["other"])
	got, ok := attrs["a.py#f"]["inferred_types"].([]irgen.TypeHint)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, "int", got[0].Type)

	_, ok = attrs["missing"]
	require.False(t, ok, "a hint for an unknown node id must be dropped, not silently create an entry")
}

func TestApplyTypeHints_AccumulatesAcrossCalls(t *testing.T) {
	attrs := map[string]map[string]any{"a.py#f": {}}
	irgen.ApplyTypeHints(attrs, []irgen.TypeHint{{NodeID: "a.py#f", Type: "int"}})
	irgen.ApplyTypeHints(attrs, []irgen.TypeHint{{NodeID: "a.py#f", Type: "str"}})

	got := attrs["a.py#f"]["inferred_types"].([]irgen.TypeHint)
	require.Len(t, got, 2)
}
