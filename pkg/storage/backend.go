// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the generic key/value + tabular store
// abstraction the engine persists through: no concrete database is named
// here, only a Backend interface that a production deployment backs with a
// real store. Queries take a table name and a row filter rather than a
// query-language string, so swapping the backing store never leaks a
// dialect into callers.
package storage

import "context"

// Row is one tabular-store record: column name to value.
type Row map[string]any

// QueryResult is the generic result of a Backend.Query: Row maps rather
// than positional columns, since tables here are schema-light.
type QueryResult struct {
	Table string
	Rows  []Row
}

// Filter selects rows during a Query/Scan; returning true keeps the row.
type Filter func(Row) bool

// MatchAll is the trivial Filter that accepts every row.
func MatchAll(Row) bool { return true }

// Tx is a single atomic batch of mutations (e.g. "a snapshot is
// replaced transactionally: delete-by-(repo,snapshot), then bulk-insert").
type Tx interface {
	Delete(table, key string) error
	Put(table, key string, row Row) error
}

// Backend is the interface every storage implementation must satisfy. It
// provides key-addressed mutation and filtered tabular reads over a set of
// named tables, plus an atomic transaction boundary.
type Backend interface {
	// Query returns every row of table for which filter reports true.
	// A nil filter is treated as MatchAll.
	Query(ctx context.Context, table string, filter Filter) (*QueryResult, error)

	// Put upserts a single row under key within table.
	Put(ctx context.Context, table, key string, row Row) error

	// Delete removes a single row by key from table. Deleting a missing
	// key is not an error.
	Delete(ctx context.Context, table, key string) error

	// Transact runs fn against an isolated Tx; either every mutation in fn
	// is applied or none are.
	Transact(ctx context.Context, fn func(Tx) error) error

	// Close releases any resources held by the backend.
	Close() error
}
