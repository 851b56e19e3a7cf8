/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report and an autosave of the
// open deck.
package crash

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/storage"
	"goslidedeck/internal/telemetry"
	"goslidedeck/internal/version"
)

// Deck is what Recover needs from an open editing session.
type Deck interface {
	DeckPath() string
	Snapshot() domain.Presentation
}

// exitFn and stderr are swapped in tests.
var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

// Recover captures a panic, logs it with the stack, writes a crash report and
// autosaves the deck (if one is open and has a file). It exits with code 2.
//
// Usage: defer crash.Recover(session)
func Recover(d Deck) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	deckPath := ""
	if d != nil {
		deckPath = d.DeckPath()
	}
	reportPath, err := writeReport(deckPath, r, stack)
	if err != nil {
		l.Error("write crash report", slog.Any("err", err))
	}
	if deckPath != "" {
		if path, err := autosave(d, deckPath); err != nil {
			l.Error("autosave crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("autosave crash snapshot written", slog.String("path", path))
			_, _ = fmt.Fprintf(stderr, "Unsaved changes were written to: %s\n", path)
		}
	}
	_, _ = fmt.Fprintf(stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	_, _ = fmt.Fprintf(stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	exitFn(2)
}

// autosave guards against the snapshot itself panicking on a broken store.
func autosave(d Deck, deckPath string) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("snapshot panicked: %v", r)
		}
	}()
	return storage.WriteAutosave(deckPath, d.Snapshot(), time.Now())
}

func reportDir(deckPath string) string {
	if deckPath == "" {
		return os.TempDir()
	}
	dir := filepath.Join(filepath.Dir(deckPath), storage.StateDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return os.TempDir()
	}
	return dir
}

func writeReport(deckPath string, panicVal any, stack []byte) (string, error) {
	now := time.Now()
	path := filepath.Join(reportDir(deckPath), fmt.Sprintf("crash-%s.log", now.Format("20060102-150405")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "GoSlideDeck Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if deckPath != "" {
		_, _ = fmt.Fprintf(&buf, "Deck: %s\n", deckPath)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
