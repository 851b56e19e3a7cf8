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
	"errors"
	"fmt"
	"strings"
)

// SearchQuery describes a text search over indexed decks.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Deck restricts to one deck name; empty searches every deck in the directory.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text   string
	Deck   string
	Kinds  []string // "title", "text"
	Limit  int
	Offset int
}

// SearchResult is one matching text. SlideIndex is -1 for deck titles.
// Snippet marks matches with [ ].
type SearchResult struct {
	DocID      int64
	Deck       string
	Kind       string
	SlideIndex int
	SlideID    string
	ElementID  string
	Snippet    string
}

// Search performs full-text search over the index in dir. With empty Text it
// lists documents with the filters applied.
func Search(ctx context.Context, dir string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("deck directory is required")
	}
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT d.doc_id, d.deck, d.kind, d.slide_index, d.slide_id, d.element_id, snippet(fts_documents, 0, '[', ']', '...', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.deck, d.kind, d.slide_index, d.slide_id, d.element_id, d.text\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Deck); s != "" {
		sb.WriteString(" AND d.deck = ?\n")
		args = append(args, s)
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND d.kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range q.Kinds {
			args = append(args, k)
		}
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.deck, d.slide_index NULLS FIRST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var slide sql.NullInt64
		var slideID, elementID, sn sql.NullString
		if err := rows.Scan(&r.DocID, &r.Deck, &r.Kind, &slide, &slideID, &elementID, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.SlideIndex = -1
		if slide.Valid {
			r.SlideIndex = int(slide.Int64)
		}
		r.SlideID, r.ElementID, r.Snippet = slideID.String, elementID.String, sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
