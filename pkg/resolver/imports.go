// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

package resolver

import (
	"regexp"
	"strings"
)

// importKind classifies how a raw import statement should be resolved.
type importKind int

const (
	importModule importKind = iota // import a.b.c [as x]
	importFrom                     // from a.b import c [as x][, d [as y]]
	importRelative                  // from . import x / from ..pkg import y
)

// parsedImport is the normalized shape the resolver needs from a raw
// import node's text.
type parsedImport struct {
	kind    importKind
	module  string   // dotted module path, e.g. "pkg.sub.mod"
	names   []string // imported names for "from" imports (empty for bare "import")
	relDots int       // leading dots for relative imports ("from . import x" -> 1)
}

var (
	reImport     = regexp.MustCompile(`^import\s+([A-Za-z0-9_.]+)`)
	reFromImport = regexp.MustCompile(`^from\s+(\.*)([A-Za-z0-9_.]*)\s+import\s+(.+)$`)
)

// parseImportText parses the raw text captured on an EdgeImports target
// node into a parsedImport, best-effort. Unrecognized forms return
// (parsedImport{}, false) and are recorded as unresolved/unknown_module by
// the caller.
func parseImportText(raw string) (parsedImport, bool) {
	raw = strings.TrimSpace(raw)

	if m := reFromImport.FindStringSubmatch(raw); m != nil {
		dots := len(m[1])
		module := m[2]
		var names []string
		for _, part := range strings.Split(m[3], ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if idx := strings.Index(part, " as "); idx >= 0 {
				part = part[:idx]
			}
			names = append(names, strings.TrimSpace(part))
		}
		if dots > 0 {
			return parsedImport{kind: importRelative, module: module, names: names, relDots: dots}, true
		}
		return parsedImport{kind: importFrom, module: module, names: names}, true
	}

	if m := reImport.FindStringSubmatch(raw); m != nil {
		return parsedImport{kind: importModule, module: m[1]}, true
	}

	return parsedImport{}, false
}
