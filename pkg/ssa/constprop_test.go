// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package ssa_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/cfg"
	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/ssa"
)

func TestPropagateConstants_TransitiveConcat(t *testing.T) {
	lit := `"SELECT "`
	statements := map[string]*ir.Statement{
		"f#stmt1": {ID: "f#stmt1", Kind: ir.StmtPlain, Writes: []string{"x"}, Literal: &lit},
		"f#stmt2": {ID: "f#stmt2", Kind: ir.StmtPlain, Writes: []string{"y"}, Reads: []string{"x", "user_input"}, ConcatOf: [2]string{"x", "user_input"}},
	}
	order := []string{"f#stmt1", "f#stmt2"}
	c := cfg.Build("f", statements, order)
	require.False(t, c.Partial)

	facts := ssa.PropagateConstants(c, statements)
	_, ok := facts.IsConstant("y")
	require.False(t, ok, "y depends on a runtime value (user_input), must not resolve as constant")

	v, ok := facts.IsConstant("x")
	require.True(t, ok)
	require.Equal(t, "SELECT ", v)
}

func TestPropagateConstants_FullyLiteralConcat(t *testing.T) {
	a := `"SELECT "`
	b := `"* FROM users"`
	statements := map[string]*ir.Statement{
		"f#stmt1": {ID: "f#stmt1", Kind: ir.StmtPlain, Writes: []string{"a"}, Literal: &a},
		"f#stmt2": {ID: "f#stmt2", Kind: ir.StmtPlain, Writes: []string{"b"}, Literal: &b},
		"f#stmt3": {ID: "f#stmt3", Kind: ir.StmtPlain, Writes: []string{"q"}, ConcatOf: [2]string{"a", "b"}},
	}
	order := []string{"f#stmt1", "f#stmt2", "f#stmt3"}
	c := cfg.Build("f", statements, order)
	require.False(t, c.Partial)

	facts := ssa.PropagateConstants(c, statements)
	v, ok := facts.IsConstant("q")
	require.True(t, ok)
	require.Equal(t, "SELECT * FROM users", v)
}
