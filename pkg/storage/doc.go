// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the Backend interface pkg/store builds the
// symbols/relations tables on top of.
//
// # Quick start
//
//	backend, err := storage.NewEmbeddedBackend(storage.EmbeddedConfig{
//	    DataDir:   "/path/to/data",
//	    ProjectID: "myproject",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	err = backend.Put(ctx, "symbols", symbolID, storage.Row{"fqn": "pkg.Foo"})
//	res, err := backend.Query(ctx, "symbols", func(r storage.Row) bool {
//	    return r["fqn"] == "pkg.Foo"
//	})
//
// # Transactional snapshot replace
//
// Backend.Transact implements the "delete-by-(repo,snapshot), then
// bulk-insert" pattern atomically: every Put/Delete issued against the Tx
// is staged and applied together, or not at all.
package storage
