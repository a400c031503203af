// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package storage

import "testing"

func TestBackendInterface(t *testing.T) {
	var _ Backend = &EmbeddedBackend{}
}

func TestMatchAll(t *testing.T) {
	if !MatchAll(Row{"a": 1}) {
		t.Fatal("MatchAll should accept every row")
	}
}
