// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package irgen_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/irgen"
)

func TestNodeID_StableAcrossReparse(t *testing.T) {
	id1 := irgen.NodeID("repo1", ir.NodeFunction, "a/b.py", "a.b.foo", 0)
	id2 := irgen.NodeID("repo1", ir.NodeFunction, "./a/b.py", "a.b.foo", 0)
	require.Equal(t, id1, id2, "normalized path must not change the id")
}

func TestNodeID_DisambiguatorSeparatesLambdas(t *testing.T) {
	id1 := irgen.NodeID("repo1", ir.NodeLambda, "a/b.py", "a.b.<lambda>", 0)
	id2 := irgen.NodeID("repo1", ir.NodeLambda, "a/b.py", "a.b.<lambda>", 1)
	require.NotEqual(t, id1, id2)
}

func TestNodeID_DifferentRepoDifferentID(t *testing.T) {
	id1 := irgen.NodeID("repo1", ir.NodeFunction, "a/b.py", "a.b.foo", 0)
	id2 := irgen.NodeID("repo2", ir.NodeFunction, "a/b.py", "a.b.foo", 0)
	require.NotEqual(t, id1, id2)
}

func TestFileID_ShortPathUsesPathDirectly(t *testing.T) {
	require.Equal(t, "file:a/b.py", irgen.FileID("./a/b.py"))
}
