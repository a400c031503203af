// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kragraph/kragraph/pkg/ir"
)

func TestSetupTestBackend_SeedAndReadBack(t *testing.T) {
	backend := SetupTestBackend(t)

	docs := []*ir.IRDocument{FunctionDoc("a.py", "a.f", "n1")}
	s := SeedSnapshot(t, backend, "repo1", "HEAD", docs)

	symbols, err := s.Symbols(context.Background(), "repo1", "HEAD")
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	require.Equal(t, "a.f", symbols[0].FQN)
}
