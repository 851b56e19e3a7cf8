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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema for the embedded index.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2

	// tsLayout is fixed width so stored timestamps sort lexicographically.
	tsLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// IndexPath returns the index database file for decks stored in dir.
func IndexPath(dir string) string {
	return filepath.Join(dir, StateDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the SQLite index exists at <dir>/.gsd/index.sqlite,
// opens the database, enables WAL mode, and ensures the schema is current.
// Callers close the returned *sql.DB.
func InitOrOpenIndex(dir string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("dir", dir),
	)
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("deck directory is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, StateDirName), 0o755); err != nil {
		l.Error("create .gsd dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create .gsd dir: %w", err)
	}

	path := IndexPath(dir)
	// SQLite URIs want forward slashes.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema for runMigrations.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// SchemaVersion reports the schema number stored in the index.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return cur, nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	cur, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	if cur > schemaVersion {
		// Written by a newer build; never downgrade.
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		switch next {
		case 2:
			tx, err := db.BeginTx(ctx, nil)
			if err != nil {
				return fmt.Errorf("begin migration %d: %w", next, err)
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_history_deck_ts ON history(deck, ts);`,
				`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
			}
			for _, q := range stmts {
				if _, err := tx.ExecContext(ctx, q); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("migration %d stmt failed: %w", next, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d update version: %w", next, err)
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("migration %d commit: %w", next, err)
			}
			// Best-effort FTS optimize outside the tx.
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_documents(fts_documents) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per searchable text: deck titles and text elements.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id      INTEGER PRIMARY KEY,
			deck        TEXT    NOT NULL,
			kind        TEXT    NOT NULL,
			slide_index INTEGER,
			slide_id    TEXT,
			element_id  TEXT,
			text        TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_deck ON documents(deck);`,

		// External-content FTS5 index fed from documents via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
			text,
			content='documents',
			content_rowid='doc_id',
			tokenize = 'unicode61'
		);`,

		// Thumbnail cache keyed by slide content hash and pixel size.
		`CREATE TABLE IF NOT EXISTS previews (
			id          INTEGER PRIMARY KEY,
			deck        TEXT    NOT NULL,
			slide_hash  TEXT    NOT NULL,
			w           INTEGER NOT NULL,
			h           INTEGER NOT NULL,
			thumb_blob  BLOB    NOT NULL,
			size        INTEGER NOT NULL DEFAULT 0,
			updated_at  TEXT    NOT NULL,
			last_access TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(deck, slide_hash, w, h);`,

		// Save history.
		`CREATE TABLE IF NOT EXISTS history (
			id        INTEGER PRIMARY KEY,
			deck      TEXT    NOT NULL,
			ts        TEXT    NOT NULL,
			title     TEXT    NOT NULL,
			slides    INTEGER NOT NULL,
			elements  INTEGER NOT NULL,
			bytes     INTEGER NOT NULL,
			sha256    TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_history_deck_ts ON history(deck, ts);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// UpdateIndex replaces the searchable documents of deck with the content of p.
func UpdateIndex(ctx context.Context, dir, deck string, p domain.Presentation) error {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	return replaceDocuments(ctx, db, deck, p)
}

// language=SQL
// dialect=SQLite
const insertDocumentSQL = `INSERT INTO documents(deck, kind, slide_index, slide_id, element_id, text) VALUES (?, ?, ?, ?, ?, ?)`

func replaceDocuments(ctx context.Context, db *sql.DB, deck string, p domain.Presentation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE deck=?`, deck); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear documents: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertDocumentSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	if s := strings.TrimSpace(p.Title); s != "" {
		if _, err := stmt.ExecContext(ctx, deck, "title", nil, nil, nil, s); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert title: %w", err)
		}
	}
	for i, sl := range p.Slides {
		for _, el := range sl.Elements {
			if el.Type != domain.ElementText {
				continue
			}
			s := strings.TrimSpace(el.Content)
			if s == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, deck, "text", i, sl.ID, el.ID, s); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert element text: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit documents: %w", err)
	}
	return nil
}

// DetectAndRebuildIndex checks the index for corruption and recreates it when
// needed, repopulating documents from the given decks (name -> presentation).
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, dir string, decks map[string]domain.Presentation) (bool, error) {
	path := IndexPath(dir)
	needs := false
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		needs = true
	} else {
		var chk string
		if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
			needs = true
		}
		if !needs {
			if _, err := db.ExecContext(ctx, `SELECT 1 FROM documents LIMIT 1;`); err != nil {
				needs = true
			}
		}
		_ = db.Close()
	}
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	db, err = InitOrOpenIndex(dir)
	if err != nil {
		return false, fmt.Errorf("rebuild index: %w", err)
	}
	defer db.Close()
	for name, p := range decks {
		if err := replaceDocuments(ctx, db, name, p); err != nil {
			return true, err
		}
	}
	return true, nil
}

// backupIndexFile copies the current index file into .gsd/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
