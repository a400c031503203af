// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the hierarchical content-addressed cache: an
// L1 process-wide LRU map fronting an L2 directory of atomically
// written envelope files, with hierarchical per-project/global quotas.
// Equality of a Key implies semantic equivalence of the inputs that
// produced the cached value: no time-based keys.
package cache

import (
	"encoding/hex"

	"github.com/minio/highwayhash"
)

// Key is the cache key shape: (file_path, content_hash,
// parser_version[, extra-salt]). ExtraSalt lets callers key compiled taint
// rules or query-plan results through the same cache without colliding
// with IRDocument entries for the same file.
type Key struct {
	FilePath      string
	ContentHash   string
	ParserVersion string
	ExtraSalt     string
}

// String renders a stable textual form used as the L1 map key and as the
// input to the L2 on-disk path.
func (k Key) String() string {
	return k.FilePath + "|" + k.ContentHash + "|" + k.ParserVersion + "|" + k.ExtraSalt
}

// pathHashKey is the fixed HighwayHash key for deriving on-disk paths. Path
// naming only needs stability and a bounded length; the cryptographic
// guarantee lives in ContentHash itself.
var pathHashKey = []byte("kragraph-cache-l2-path-hash-key!")

// digest returns a hex-encoded HighwayHash digest of the key's string form,
// used to derive a bounded-length, filesystem-safe L2 path regardless of
// how long FilePath is.
func (k Key) digest() string {
	sum := highwayhash.Sum([]byte(k.String()), pathHashKey)
	return hex.EncodeToString(sum[:])
}
