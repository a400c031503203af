// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONTo_PrettyPrints(t *testing.T) {
	var buf bytes.Buffer
	err := JSONTo(&buf, map[string]any{"repo_id": "repo1", "symbols": 42})
	require.NoError(t, err)

	out := buf.String()
	require.Contains(t, out, "  \"repo_id\": \"repo1\"")
	require.Contains(t, out, "\"symbols\": 42")
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("}\n")))
}

func TestJSONCompactTo_SingleLine(t *testing.T) {
	var buf bytes.Buffer
	err := JSONCompactTo(&buf, map[string]any{"repo_id": "repo1"})
	require.NoError(t, err)
	require.NotContains(t, buf.String(), "  ")
	require.Contains(t, buf.String(), `"repo_id":"repo1"`)
}

func TestJSONErrorTo_WrapsError(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONErrorTo(&buf, errors.New("snapshot not found")))
	require.Contains(t, buf.String(), `"error": "snapshot not found"`)
}

func TestJSONTo_EscapesSpecialCharacters(t *testing.T) {
	var buf bytes.Buffer
	err := JSONTo(&buf, map[string]string{"message": "a \"quoted\"\tpath"})
	require.NoError(t, err)
	require.Contains(t, buf.String(), `\"quoted\"`)
	require.Contains(t, buf.String(), `\t`)
}

func TestJSONTo_RejectsUnencodableValue(t *testing.T) {
	var buf bytes.Buffer
	err := JSONTo(&buf, map[string]any{"ch": make(chan int)})
	require.Error(t, err)
}
