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
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"goslidedeck/internal/domain"
)

// PreviewKey identifies a cached thumbnail: one slide content at one size.
type PreviewKey struct {
	Deck      string
	SlideHash string
	W, H      int
}

// SlideHash is a stable content hash of a slide. Any edit to the slide or its
// elements changes it, so stale thumbnails are never served.
func SlideHash(sl domain.Slide) string {
	b, _ := json.Marshal(sl)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// GetPreview returns the cached PNG for k, or nil when absent, and updates last_access.
func GetPreview(ctx context.Context, dir string, k PreviewKey) ([]byte, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var blob []byte
	err = db.QueryRowContext(ctx, `SELECT thumb_blob FROM previews WHERE deck=? AND slide_hash=? AND w=? AND h=?`, k.Deck, k.SlideHash, k.W, k.H).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query preview: %w", err)
	}
	now := time.Now().UTC().Format(tsLayout)
	_, _ = db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE deck=? AND slide_hash=? AND w=? AND h=?`, now, k.Deck, k.SlideHash, k.W, k.H)
	return blob, nil
}

// PutPreview upserts a preview blob and enforces the cache size cap via LRU eviction.
func PutPreview(ctx context.Context, dir string, k PreviewKey, blob []byte) error {
	if len(blob) == 0 {
		return errors.New("empty preview blob")
	}
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return err
	}
	defer db.Close()
	now := time.Now().UTC().Format(tsLayout)
	_, err = db.ExecContext(ctx, `INSERT INTO previews(deck,slide_hash,w,h,thumb_blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(deck,slide_hash,w,h) DO UPDATE SET thumb_blob=excluded.thumb_blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		k.Deck, k.SlideHash, k.W, k.H, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if capBytes := MaxPreviewsBytesFromEnv(); capBytes > 0 {
		if err := EvictPreviewsToFit(ctx, db, capBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreatePreview fetches a preview or generates and stores it using gen.
func GetOrCreatePreview(ctx context.Context, dir string, k PreviewKey, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := GetPreview(ctx, dir, k); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if err := PutPreview(ctx, dir, k, data); err != nil {
		return nil, err
	}
	return data, nil
}

// EvictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func EvictPreviewsToFit(ctx context.Context, db *sql.DB, capBytes int64) error {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return fmt.Errorf("sum previews size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	rows, err := db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]any, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before writing; the pool holds a single connection.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM previews WHERE id IN (`+placeholders(len(toDelete))+`)`, toDelete...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	return nil
}

// DropDeckPreviews removes every cached preview of deck.
func DropDeckPreviews(ctx context.Context, dir, deck string) (int64, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	res, err := db.ExecContext(ctx, `DELETE FROM previews WHERE deck=?`, deck)
	if err != nil {
		return 0, fmt.Errorf("drop previews: %w", err)
	}
	return res.RowsAffected()
}

// TotalPreviewBytes returns total bytes tracked by previews.size.
func TotalPreviewBytes(ctx context.Context, dir string) (int64, error) {
	db, err := InitOrOpenIndex(dir)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

const defaultPreviewsMaxBytes = 64 * 1024 * 1024

// MaxPreviewsBytesFromEnv reads GSD_PREVIEWS_MAX_BYTES, defaulting to 64MB if unset.
func MaxPreviewsBytesFromEnv() int64 {
	v := strings.TrimSpace(os.Getenv("GSD_PREVIEWS_MAX_BYTES"))
	if v == "" {
		return defaultPreviewsMaxBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return defaultPreviewsMaxBytes
	}
	return n
}
