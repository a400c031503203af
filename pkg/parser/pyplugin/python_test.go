// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package pyplugin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/parser/pyplugin"
)

const sample = `
import os

def search_user(user_id):
    cursor = get_cursor()
    cursor.execute("SELECT * FROM users WHERE id=" + user_id)
    return cursor
`

func TestParse_ExtractsFunctionAndCalls(t *testing.T) {
	p := pyplugin.New()
	result, err := p.Parse("repo1", "app/users.py", []byte(sample))
	require.NoError(t, err)
	require.NotEmpty(t, result.Nodes)

	var foundFunc bool
	for _, n := range result.Nodes {
		if n.Kind == ir.NodeFunction && n.Name == "search_user" {
			foundFunc = true
			require.Equal(t, "app.users.search_user", n.FQN)
		}
	}
	require.True(t, foundFunc, "expected to find search_user function node")

	var foundCall bool
	for _, e := range result.Edges {
		if e.Kind == ir.EdgeCalls {
			foundCall = true
		}
	}
	require.True(t, foundCall, "expected at least one CALLS edge")
	require.Len(t, result.Functions, 1)
	require.NotEmpty(t, result.Functions[0].Statements)
}

func TestNormalizeFQN_SkipsEmptyParts(t *testing.T) {
	p := pyplugin.New()
	require.Equal(t, "a.b", p.NormalizeFQN("a", "", "b"))
}

func TestIsBuiltinType(t *testing.T) {
	p := pyplugin.New()
	require.True(t, p.IsBuiltinType("str"))
	require.False(t, p.IsBuiltinType("MyClass"))
}
