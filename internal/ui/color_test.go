// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: Apache-2.0

package ui

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

// withColorsDisabled runs fn with global color output off, restoring the
// prior state afterwards so tests stay order-independent.
func withColorsDisabled(t *testing.T, fn func()) {
	t.Helper()
	original := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = original })
	fn()
}

func TestInitColors_TogglesGlobalState(t *testing.T) {
	original := color.NoColor
	defer func() { color.NoColor = original }()

	InitColors(false)
	require.False(t, color.NoColor)
	InitColors(true)
	require.True(t, color.NoColor)
}

func TestTextHelpers_PassThroughWhenDisabled(t *testing.T) {
	withColorsDisabled(t, func() {
		require.Equal(t, "Project ID:", Label("Project ID:"))
		require.Equal(t, "/path/to/data", DimText("/path/to/data"))
		require.Equal(t, "42", CountText(42))
		require.Equal(t, "-1", CountText(-1))
		require.Equal(t, "", Label(""))
	})
}

func TestColorVariablesInitialized(t *testing.T) {
	for name, c := range map[string]*color.Color{
		"Red": Red, "Yellow": Yellow, "Green": Green,
		"Cyan": Cyan, "Bold": Bold, "Dim": Dim,
	} {
		require.NotNil(t, c, name)
	}
}

func TestMessageFunctions_DoNotPanic(t *testing.T) {
	withColorsDisabled(t, func() {
		Success("built")
		Successf("built %d files", 3)
		Warning("slow parse")
		Warningf("slow parse of %s", "a.py")
		Error("broken")
		Errorf("broken: %v", "detail")
		Info("status")
		Infof("status: %d", 1)
		Header("Snapshot")
		SubHeader("Symbols")
	})
}
