/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"menuboard/internal/domain"
)

// KeepRevisions is how many revisions per board survive pruning.
const KeepRevisions = 50

// tsLayout is fixed width so stored timestamps sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(board, ts, layout_blob, note) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT id, ts, note, layout_blob FROM revisions WHERE board = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const selectRevisionSQL = `SELECT id, ts, note, layout_blob FROM revisions WHERE board = ? AND id = ?`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE board = ? AND id NOT IN (
	SELECT id FROM revisions WHERE board = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Revision is one saved state of a board.
type Revision struct {
	ID     int64         `json:"id"`
	TS     time.Time     `json:"ts"`
	Note   string        `json:"note,omitempty"`
	Layout domain.Layout `json:"layout"`
}

// SaveRevision records layout for board and prunes the board's history to KeepRevisions.
func SaveRevision(ctx context.Context, db *sql.DB, board string, layout domain.Layout, note string, ts time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("nil database")
	}
	blob, err := json.Marshal(layout)
	if err != nil {
		return 0, fmt.Errorf("marshal revision: %w", err)
	}
	res, err := db.ExecContext(ctx, insertRevisionSQL, board, ts.UTC().Format(tsLayout), blob, note)
	if err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}
	id, _ := res.LastInsertId()
	if err := PruneRevisions(ctx, db, board, KeepRevisions); err != nil {
		return id, err
	}
	return id, nil
}

// ListRevisions returns up to limit most recent revisions of board, newest first.
func ListRevisions(ctx context.Context, db *sql.DB, board string, limit int) ([]Revision, error) {
	if db == nil {
		return nil, errors.New("nil database")
	}
	if limit <= 0 {
		limit = KeepRevisions
	}
	rows, err := db.QueryContext(ctx, listRevisionsSQL, board, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()
	var out []Revision
	for rows.Next() {
		r, err := scanRevision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRevision returns one revision of board or ErrNotFound.
func GetRevision(ctx context.Context, db *sql.DB, board string, id int64) (Revision, error) {
	if db == nil {
		return Revision{}, errors.New("nil database")
	}
	r, err := scanRevision(db.QueryRowContext(ctx, selectRevisionSQL, board, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, fmt.Errorf("revision %d: %w", id, ErrNotFound)
	}
	return r, err
}

// PruneRevisions keeps only the most recent keep revisions of board.
func PruneRevisions(ctx context.Context, db *sql.DB, board string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := db.ExecContext(ctx, pruneRevisionsSQL, board, board, keep); err != nil {
		return fmt.Errorf("prune revisions: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRevision(s scanner) (Revision, error) {
	var (
		r     Revision
		tsStr string
		blob  []byte
	)
	if err := s.Scan(&r.ID, &tsStr, &r.Note, &blob); err != nil {
		return Revision{}, err
	}
	if ts, err := time.Parse(tsLayout, tsStr); err == nil {
		r.TS = ts
	}
	if err := json.Unmarshal(blob, &r.Layout); err != nil {
		return Revision{}, fmt.Errorf("decode revision %d: %w", r.ID, err)
	}
	r.Layout.Normalize()
	return r, nil
}
