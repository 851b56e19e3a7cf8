/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("GSD_LOG_LEVEL", "warn")
	t.Setenv("GSD_LOG_FORMAT", "json")
	t.Setenv("GSD_LOG_SOURCE", "true")
	// GSD_LOG_FILE intentionally unset

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	// Also verify getenv default fallback when var missing
	if err := os.Unsetenv("SOME_UNSET_VAR"); err != nil {
		t.Fatalf("Unsetenv error: %v", err)
	}
	if v := getenv("SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestConsoleOverrideReceivesPrettyLines(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Console: &buf})
	t.Cleanup(func() { Init(Options{Level: "info"}) })
	WithComponent("deck").Debug("hidden")
	WithComponent("deck").Warn("slide guard", slog.String("slide", "s1"))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line leaked at info level: %q", out)
	}
	if !strings.Contains(out, "WRN slide guard") || !strings.Contains(out, "component=deck") || !strings.Contains(out, "slide=s1") {
		t.Fatalf("unexpected console output: %q", out)
	}
}

func TestConsoleHandlerFormatsAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := newConsoleHandler(&buf, slog.LevelWarn, true)
	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	l := slog.New(h).With(slog.String("k", "v")).WithGroup("grp")
	l.Error("boom", slog.Int("n", 42), slog.Float64("pi", 3.14), slog.String("title", "Q3 review"),
		slog.Group("box", slog.Float64("w", 10)))

	out := buf.String()
	for _, want := range []string{" ERR boom", " k=v", " grp.n=42", " grp.pi=3.14", ` grp.title="Q3 review"`, " grp.box.w=10", " src=log/logger_more_test.go:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line: %q", out)
	}
}

func TestInitClosesPreviousLogFile(t *testing.T) {
	dir := t.TempDir()
	Init(Options{Level: "info", Console: io.Discard, File: filepath.Join(dir, "a.log")})
	L().Info("first")
	Init(Options{Level: "info", Console: io.Discard, File: filepath.Join(dir, "b.log")})
	t.Cleanup(func() { Init(Options{Level: "info"}) })
	L().Info("second")
	a, _ := os.ReadFile(filepath.Join(dir, "a.log"))
	b, _ := os.ReadFile(filepath.Join(dir, "b.log"))
	if !strings.Contains(string(a), "first") || strings.Contains(string(a), "second") || !strings.Contains(string(b), "second") {
		t.Fatalf("records went to the wrong file: a=%q b=%q", a, b)
	}
}
