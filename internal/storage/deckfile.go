/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/serial"
)

const (
	// DeckExt is the file suffix of deck files.
	DeckExt = ".deck.json"
	// StateDirName holds backups, autosaves and the index next to the deck files.
	StateDirName   = ".gsd"
	BackupsDirName = "backups"
	AutosaveDir    = "autosave"

	backupStamp = "20060102-150405.000000"
)

// DeckHandle tracks a deck file and the presentation last loaded from or saved to it.
// Recovered is set when Open had to fall back to a backup.
type DeckHandle struct {
	Path         string
	Presentation domain.Presentation
	Recovered    bool
}

// Name is the deck file name without DeckExt.
func (h *DeckHandle) Name() string { return DeckName(h.Path) }

// Dir is the directory holding the deck file.
func (h *DeckHandle) Dir() string { return filepath.Dir(h.Path) }

// Document passes the handle's presentation back through the import gate so
// it can be handed to deck.Store.
func (h *DeckHandle) Document() (serial.Document, error) {
	b, err := serial.ExportJSON(h.Presentation)
	if err != nil {
		return serial.Document{}, err
	}
	return serial.ImportJSON(b)
}

// DeckName strips the directory and DeckExt (or any extension) from path.
func DeckName(path string) string {
	base := filepath.Base(path)
	if strings.HasSuffix(base, DeckExt) {
		return strings.TrimSuffix(base, DeckExt)
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BackupsDir returns <dir>/.gsd/backups for a deck path.
func BackupsDir(deckPath string) string {
	return filepath.Join(filepath.Dir(deckPath), StateDirName, BackupsDirName)
}

// Create writes p to path, which must not exist yet.
func Create(path string, p domain.Presentation) (*DeckHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("deck path is required")
	}
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("deck %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create deck dir: %w", err)
	}
	h := &DeckHandle{Path: path, Presentation: p.Clone()}
	if err := Save(h); err != nil {
		return nil, err
	}
	return h, nil
}

// Open loads a deck file through the import gate. If the file cannot be read
// or is malformed, the latest backup is tried.
func Open(path string) (*DeckHandle, error) {
	doc, err := readDeck(path)
	if err == nil {
		return &DeckHandle{Path: path, Presentation: doc.Presentation()}, nil
	}
	bdoc, berr := openFromLatestBackup(path)
	if berr != nil {
		return nil, fmt.Errorf("open deck: %w; backup attempt: %v", err, berr)
	}
	return &DeckHandle{Path: path, Presentation: bdoc.Presentation(), Recovered: true}, nil
}

func readDeck(path string) (serial.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return serial.Document{}, err
	}
	defer f.Close()
	return serial.ReadDocument(f)
}

// Save writes h.Presentation with transactional semantics and a timestamped
// backup of the previous file (if present).
func Save(h *DeckHandle) error {
	if h == nil {
		return errors.New("nil DeckHandle")
	}
	if h.Path == "" {
		return errors.New("invalid DeckHandle: missing path")
	}
	data, err := serial.ExportJSON(h.Presentation)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}

	if _, statErr := os.Stat(h.Path); statErr == nil {
		bdir := BackupsDir(h.Path)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		bname := fmt.Sprintf("%s.%s.bak", filepath.Base(h.Path), time.Now().Format(backupStamp))
		if cerr := copyFile(h.Path, filepath.Join(bdir, bname)); cerr != nil {
			return fmt.Errorf("backup current deck: %w", cerr)
		}
	}

	// Transactional write: temp file in the same directory, then rename over target.
	dir := filepath.Dir(h.Path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(h.Path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp deck: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(h.Path); err == nil {
		_ = os.Remove(h.Path)
	}
	if rerr := os.Rename(temp, h.Path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace deck: %w", rerr)
	}
	h.Recovered = false
	return nil
}

// SaveAs writes the deck to newPath and points the handle at it.
func SaveAs(h *DeckHandle, newPath string) error {
	if h == nil {
		return errors.New("nil DeckHandle")
	}
	if newPath == "" {
		return errors.New("new path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0o755); err != nil {
		return fmt.Errorf("create deck dir: %w", err)
	}
	h.Path = newPath
	return Save(h)
}

// ListBackups returns the backups of a deck, oldest first.
func ListBackups(deckPath string) ([]string, error) {
	ents, err := os.ReadDir(BackupsDir(deckPath))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(deckPath) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(BackupsDir(deckPath), name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// PruneBackups keeps the newest keep backups and deletes the rest.
func PruneBackups(deckPath string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	all, err := ListBackups(deckPath)
	if err != nil {
		return 0, err
	}
	removed := 0
	for len(all)-removed > keep {
		if err := os.Remove(all[removed]); err != nil {
			return removed, fmt.Errorf("remove backup: %w", err)
		}
		removed++
	}
	return removed, nil
}

// WriteAutosave writes p to <dir>/.gsd/autosave/<name>-<stamp>.deck.json
// without touching the deck file or its backups. It returns the written path.
func WriteAutosave(deckPath string, p domain.Presentation, now time.Time) (string, error) {
	data, err := serial.ExportJSON(p)
	if err != nil {
		return "", fmt.Errorf("marshal autosave: %w", err)
	}
	dir := filepath.Join(filepath.Dir(deckPath), StateDirName, AutosaveDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure autosave dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("%s-%s%s", DeckName(deckPath), now.Format("20060102-150405"), DeckExt))
	if err := writeFileSync(name, data); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return name, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup walks the backups newest first and returns the first
// that passes the import gate.
func openFromLatestBackup(deckPath string) (serial.Document, error) {
	all, err := ListBackups(deckPath)
	if err != nil {
		return serial.Document{}, err
	}
	if len(all) == 0 {
		return serial.Document{}, errors.New("no backups found")
	}
	var last error
	for i := len(all) - 1; i >= 0; i-- {
		doc, err := readDeck(all[i])
		if err == nil {
			return doc, nil
		}
		last = err
	}
	return serial.Document{}, fmt.Errorf("no usable backup: %w", last)
}
