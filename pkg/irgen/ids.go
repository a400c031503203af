// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package irgen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/kragraph/kragraph/pkg/ir"
)

// NodeID generates a deterministic node id from (repo_id, kind, file_path,
// fqn), plus a disambiguating index for fqn-ambiguous constructs such as
// lambdas and comprehensions, so re-parsing the same bytes produces the
// same ids.
//
// Signature and other structural metadata are deliberately excluded from
// the hash input so parser improvements that enrich attrs never change
// existing ids.
func NodeID(repoID string, kind ir.NodeKind, filePath, fqn string, disambiguator int) string {
	normalized := normalizePath(filePath)
	idStr := fmt.Sprintf("%s|%s|%s|%s|%d", repoID, kind, normalized, fqn, disambiguator)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("%s:%s", kindPrefix(kind), hex.EncodeToString(hash[:]))
}

// FileID generates a deterministic file id from its path alone: the
// normalized path directly when it is short enough, a hash for long paths.
func FileID(filePath string) string {
	normalized := normalizePath(filePath)
	if len(normalized) <= 256 {
		return fmt.Sprintf("file:%s", normalized)
	}
	hash := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("file:%s", hex.EncodeToString(hash[:16]))
}

func kindPrefix(kind ir.NodeKind) string {
	switch kind {
	case ir.NodeFunction, ir.NodeMethod, ir.NodeLambda:
		return "func"
	case ir.NodeClass:
		return "class"
	case ir.NodeModule:
		return "module"
	case ir.NodeVariable, ir.NodeField, ir.NodeParameter:
		return "var"
	case ir.NodeImport:
		return "import"
	default:
		return "node"
	}
}

// normalizePath normalizes a file path for consistent id generation across
// platforms: strip leading "./", clean, force forward slashes, strip any
// leading slash.
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
