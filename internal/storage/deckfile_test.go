/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/serial"
)

func seq(prefix string) func() string {
	n := 0
	return func() string { n++; return prefix + string(rune('a'+n)) }
}

func TestCreateWritesImportableDeck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "talks", "intro"+DeckExt)
	h, err := Create(path, domain.DefaultPresentation(seq("id-")))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.Name() != "intro" {
		t.Fatalf("Name = %q", h.Name())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read deck: %v", err)
	}
	doc, err := serial.ImportJSON(b)
	if err != nil || doc.Title() != domain.DefaultTitle {
		t.Fatalf("deck should round-trip through import: %v", err)
	}
	if _, err := Create(path, domain.DefaultPresentation(nil)); err == nil {
		t.Fatalf("Create must refuse to overwrite")
	}
}

func TestSaveCreatesTimestampedBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck"+DeckExt)
	h, err := Create(path, domain.DefaultPresentation(nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if baks, _ := ListBackups(path); len(baks) != 0 {
		t.Fatalf("first save should not back up, got %v", baks)
	}
	h.Presentation.Title = "changed"
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	baks, err := ListBackups(path)
	if err != nil || len(baks) != 1 {
		t.Fatalf("backups = %v, %v", baks, err)
	}
	if !strings.HasPrefix(filepath.Base(baks[0]), "deck"+DeckExt+".") {
		t.Fatalf("backup name = %s", baks[0])
	}
	// The backup holds the previous content.
	old, err := readDeck(baks[0])
	if err != nil || old.Title() != domain.DefaultTitle {
		t.Fatalf("backup content: %v %q", err, old.Title())
	}
	// No temp files left behind.
	ents, _ := os.ReadDir(filepath.Dir(path))
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left: %s", e.Name())
		}
	}
}

func TestOpenFallsBackToLatestBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck"+DeckExt)
	h, err := Create(path, domain.DefaultPresentation(nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	h.Presentation.Title = "second"
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	h.Presentation.Title = "third"
	if err := Save(h); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// A deck with zero slides fails the import gate like unparsable JSON would.
	if err := os.WriteFile(path, []byte(`{"title":"x","slides":[]}`), 0o644); err != nil {
		t.Fatalf("corrupt: %v", err)
	}
	got, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !got.Recovered || got.Presentation.Title != "second" {
		t.Fatalf("expected recovery from newest backup, got %+v", got)
	}

	lonely := filepath.Join(t.TempDir(), "none"+DeckExt)
	_ = os.WriteFile(lonely, []byte("{"), 0o644)
	if _, err := Open(lonely); err == nil {
		t.Fatalf("expected error without backups")
	}
}

func TestSaveAsMovesHandle(t *testing.T) {
	dir := t.TempDir()
	h, err := Create(filepath.Join(dir, "a"+DeckExt), domain.DefaultPresentation(nil))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	target := filepath.Join(dir, "sub", "b"+DeckExt)
	if err := SaveAs(h, target); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	if h.Path != target || h.Name() != "b" {
		t.Fatalf("handle not moved: %+v", h)
	}
	if _, err := Open(target); err != nil {
		t.Fatalf("Open target: %v", err)
	}
}

func TestPruneBackupsKeepsNewest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck"+DeckExt)
	h, _ := Create(path, domain.DefaultPresentation(nil))
	for i := 0; i < 4; i++ {
		time.Sleep(2 * time.Millisecond)
		if err := Save(h); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	before, _ := ListBackups(path)
	n, err := PruneBackups(path, 2)
	if err != nil || n != len(before)-2 {
		t.Fatalf("PruneBackups = %d, %v", n, err)
	}
	after, _ := ListBackups(path)
	if len(after) != 2 || after[1] != before[len(before)-1] {
		t.Fatalf("kept %v of %v", after, before)
	}
}

func TestWriteAutosave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck"+DeckExt)
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	name, err := WriteAutosave(path, domain.DefaultPresentation(nil), now)
	if err != nil {
		t.Fatalf("WriteAutosave: %v", err)
	}
	if filepath.Base(name) != "deck-20250304-050607"+DeckExt {
		t.Fatalf("autosave name = %s", name)
	}
	if _, err := Open(name); err != nil {
		t.Fatalf("autosave should open as a deck: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("autosave must not create the deck file")
	}
}

func TestHandleDocumentIsValid(t *testing.T) {
	h := &DeckHandle{Path: "x" + DeckExt, Presentation: domain.DefaultPresentation(seq("d-"))}
	doc, err := h.Document()
	if err != nil || !doc.Valid() || len(doc.Presentation().Slides) != 1 {
		t.Fatalf("Document: %v", err)
	}
	h.Presentation.Slides = nil
	if _, err := h.Document(); err == nil {
		t.Fatalf("a deck without slides must not pass the gate")
	}
}
