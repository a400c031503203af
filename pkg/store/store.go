// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// SPDX-License-Identifier: Apache-2.0

// Package store persists the two snapshot tables — symbols and
// relations — as a thin, typed layer over pkg/storage's generic Backend
// interface.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kragraph/kragraph/pkg/ir"
	"github.com/kragraph/kragraph/pkg/storage"
)

const (
	tableSymbols   = "symbols"
	tableRelations = "relations"
)

// SymbolRow is one symbols(id, repo_id, snapshot_id, kind, fqn, name,
// span_json, parent_id, signature_id, type_id).
type SymbolRow struct {
	ID           string `json:"id"`
	RepoID       string `json:"repo_id"`
	SnapshotID   string `json:"snapshot_id"`
	Kind         string `json:"kind"`
	FQN          string `json:"fqn"`
	Name         string `json:"name"`
	SpanJSON     string `json:"span_json"`
	ParentID     string `json:"parent_id"`
	SignatureID  string `json:"signature_id"`
	TypeID       string `json:"type_id"`
}

// RelationRow is one relations(id, repo_id, snapshot_id, kind,
// source_id, target_id, span_json).
type RelationRow struct {
	ID         string `json:"id"`
	RepoID     string `json:"repo_id"`
	SnapshotID string `json:"snapshot_id"`
	Kind       string `json:"kind"`
	SourceID   string `json:"source_id"`
	TargetID   string `json:"target_id"`
	SpanJSON   string `json:"span_json"`
}

// Store persists symbols/relations for a repository's snapshots over a
// storage.Backend.
type Store struct {
	backend storage.Backend
}

// New builds a Store over backend.
func New(backend storage.Backend) *Store {
	return &Store{backend: backend}
}

// ReplaceSnapshot replaces a stored snapshot transactionally:
// delete-by-(repo,snapshot), then bulk-insert the rows flattened from
// docs.
func (s *Store) ReplaceSnapshot(ctx context.Context, repoID, snapshotID string, docs []*ir.IRDocument) error {
	symbols, relations := flatten(repoID, snapshotID, docs)

	return s.backend.Transact(ctx, func(tx storage.Tx) error {
		existingSymbols, err := s.backend.Query(ctx, tableSymbols, bySnapshot(repoID, snapshotID))
		if err != nil {
			return fmt.Errorf("store: query existing symbols: %w", err)
		}
		for _, row := range existingSymbols.Rows {
			if id, ok := row["id"].(string); ok {
				if err := tx.Delete(tableSymbols, id); err != nil {
					return err
				}
			}
		}

		existingRelations, err := s.backend.Query(ctx, tableRelations, bySnapshot(repoID, snapshotID))
		if err != nil {
			return fmt.Errorf("store: query existing relations: %w", err)
		}
		for _, row := range existingRelations.Rows {
			if id, ok := row["id"].(string); ok {
				if err := tx.Delete(tableRelations, id); err != nil {
					return err
				}
			}
		}

		for _, sym := range symbols {
			if err := tx.Put(tableSymbols, sym.ID, toRow(sym)); err != nil {
				return err
			}
		}
		for _, rel := range relations {
			if err := tx.Put(tableRelations, rel.ID, toRow(rel)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Symbols returns every persisted symbol row for (repoID, snapshotID).
func (s *Store) Symbols(ctx context.Context, repoID, snapshotID string) ([]SymbolRow, error) {
	res, err := s.backend.Query(ctx, tableSymbols, bySnapshot(repoID, snapshotID))
	if err != nil {
		return nil, err
	}
	out := make([]SymbolRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		var sym SymbolRow
		if err := fromRow(row, &sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, nil
}

// Relations returns every persisted relation row for (repoID, snapshotID).
func (s *Store) Relations(ctx context.Context, repoID, snapshotID string) ([]RelationRow, error) {
	res, err := s.backend.Query(ctx, tableRelations, bySnapshot(repoID, snapshotID))
	if err != nil {
		return nil, err
	}
	out := make([]RelationRow, 0, len(res.Rows))
	for _, row := range res.Rows {
		var rel RelationRow
		if err := fromRow(row, &rel); err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

func bySnapshot(repoID, snapshotID string) storage.Filter {
	return func(r storage.Row) bool {
		return r["repo_id"] == repoID && r["snapshot_id"] == snapshotID
	}
}

// flatten converts a set of IRDocuments into the flat symbols/relations
// rows the store persists, span-encoding each node/edge's Span as JSON.
func flatten(repoID, snapshotID string, docs []*ir.IRDocument) ([]SymbolRow, []RelationRow) {
	var symbols []SymbolRow
	var relations []RelationRow

	for _, doc := range docs {
		for _, n := range doc.Nodes {
			spanJSON, _ := json.Marshal(n.Span)
			symbols = append(symbols, SymbolRow{
				ID:         n.ID,
				RepoID:     repoID,
				SnapshotID: snapshotID,
				Kind:       string(n.Kind),
				FQN:        n.FQN,
				Name:       n.Name,
				SpanJSON:   string(spanJSON),
				ParentID:   n.ParentID,
			})
		}
		for i, e := range doc.Edges {
			var spanJSON []byte
			if e.Span != nil {
				spanJSON, _ = json.Marshal(e.Span)
			}
			relations = append(relations, RelationRow{
				ID:         fmt.Sprintf("%s:%s:%d", doc.FilePath, e.Kind, i),
				RepoID:     repoID,
				SnapshotID: snapshotID,
				Kind:       string(e.Kind),
				SourceID:   e.SourceID,
				TargetID:   e.TargetID,
				SpanJSON:   string(spanJSON),
			})
		}
	}
	return symbols, relations
}

// toRow/fromRow round-trip a typed row through JSON into/out of the
// generic storage.Row map, keeping the table schema declared once (as the
// Go struct) rather than duplicated as map literals at every call site.
func toRow(v any) storage.Row {
	raw, _ := json.Marshal(v)
	var row storage.Row
	_ = json.Unmarshal(raw, &row)
	return row
}

func fromRow(row storage.Row, out any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
