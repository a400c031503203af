// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package ir

import "time"

// VerificationSnapshot is the provenance object attached to every externally
// returned result. SnapshotID is copied from the GlobalContext the result
// was computed over; ExecutedAt is stamped by the caller since
// this package must stay deterministic and side-effect free.
type VerificationSnapshot struct {
	SnapshotID           string
	EngineVersion        string
	RulesetHash          string
	QueryPlanHash        string
	WorkspaceFingerprint string
	ExecutedAt           time.Time
}
