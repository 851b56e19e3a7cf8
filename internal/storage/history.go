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
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"goslidedeck/internal/serial"
)

// language=SQL
// dialect=SQLite
const insertHistorySQL = `INSERT INTO history(deck, ts, title, slides, elements, bytes, sha256) VALUES (?, ?, ?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listHistorySQL = `SELECT ts, title, slides, elements, bytes, sha256 FROM history WHERE deck = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneHistorySQL = `DELETE FROM history WHERE deck = ? AND id NOT IN (
	SELECT id FROM history WHERE deck = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// HistoryEntry summarises one save of a deck.
type HistoryEntry struct {
	TS       time.Time
	Title    string
	Slides   int
	Elements int
	Bytes    int
	SHA256   string
}

// RecordSave appends a history row for the deck as currently held by h.
func RecordSave(ctx context.Context, h *DeckHandle, ts time.Time) error {
	if h == nil {
		return errors.New("nil DeckHandle")
	}
	data, err := serial.ExportJSON(h.Presentation)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	elements := 0
	for _, sl := range h.Presentation.Slides {
		elements += len(sl.Elements)
	}
	db, err := InitOrOpenIndex(h.Dir())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertHistorySQL, h.Name(), ts.UTC().Format(tsLayout), h.Presentation.Title,
		len(h.Presentation.Slides), elements, len(data), hex.EncodeToString(sum[:]))
	return err
}

// ListHistory returns up to limit most recent saves of the deck at deckPath.
func ListHistory(ctx context.Context, deckPath string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	h := &DeckHandle{Path: deckPath}
	db, err := InitOrOpenIndex(h.Dir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listHistorySQL, h.Name(), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var tsStr string
		if err := rows.Scan(&tsStr, &e.Title, &e.Slides, &e.Elements, &e.Bytes, &e.SHA256); err != nil {
			return nil, err
		}
		e.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// PruneHistory keeps at most keepLast entries for the deck and deletes older ones.
func PruneHistory(ctx context.Context, deckPath string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	h := &DeckHandle{Path: deckPath}
	db, err := InitOrOpenIndex(h.Dir())
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneHistorySQL, h.Name(), h.Name(), keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
