/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zalando/go-keyring"

	"goslidedeck/internal/serial"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GSD_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("GSD_TELEMETRY_OPT_IN", "")
	t.Setenv("GSD_GENERATION_API_KEY", "")
	return dir
}

func TestVersionAndUsage(t *testing.T) {
	isolateEnv(t)
	code, out, _ := runCLI(t, "version")
	if code != 0 || !strings.Contains(out, "GoSlideDeck") {
		t.Fatalf("version: %d %q", code, out)
	}
	if code, _, errOut := runCLI(t, "bogus"); code != 2 || !strings.Contains(errOut, "Usage:") {
		t.Fatalf("unknown command: %d %q", code, errOut)
	}
	if code, _, errOut := runCLI(t, "info"); code != 2 || !strings.Contains(errOut, "info requires 1") {
		t.Fatalf("missing arg: %d %q", code, errOut)
	}
}

func TestNewInfoAndExports(t *testing.T) {
	dir := isolateEnv(t)
	deck := filepath.Join(dir, "talk")
	if code, out, errOut := runCLI(t, "new", deck, "Quarterly", "Review"); code != 0 {
		t.Fatalf("new: %d %s %s", code, out, errOut)
	}
	path := deck + ".deck.json"
	code, out, _ := runCLI(t, "info", path)
	if code != 0 || !strings.Contains(out, "Deck: Quarterly Review") || !strings.Contains(out, "Slides: 1") {
		t.Fatalf("info: %d %q", code, out)
	}
	if code, _, _ := runCLI(t, "new", deck); code != 1 {
		t.Fatalf("creating an existing deck should fail")
	}

	jsonOut := filepath.Join(dir, "out.json")
	if code, _, errOut := runCLI(t, "export-json", path, jsonOut); code != 0 {
		t.Fatalf("export-json: %s", errOut)
	}
	b, err := os.ReadFile(jsonOut)
	if err != nil {
		t.Fatal(err)
	}
	if doc, err := serial.ImportJSON(b); err != nil || doc.Title() != "Quarterly Review" {
		t.Fatalf("exported json: %v", err)
	}

	pdfOut := filepath.Join(dir, "out.pdf")
	if code, _, errOut := runCLI(t, "export-pdf", path, pdfOut); code != 0 {
		t.Fatalf("export-pdf: %s", errOut)
	}
	if b, _ := os.ReadFile(pdfOut); !bytes.HasPrefix(b, []byte("%PDF")) {
		t.Fatalf("export-pdf did not write a PDF")
	}

	thumbs := filepath.Join(dir, "thumbs")
	if code, _, errOut := runCLI(t, "thumbs", path, thumbs, "-width", "320"); code != 0 {
		t.Fatalf("thumbs: %s", errOut)
	}
	if _, err := os.Stat(filepath.Join(thumbs, "thumb-001.png")); err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}
}

func TestImportRejectsMalformedAndSavesValid(t *testing.T) {
	dir := isolateEnv(t)
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"title":"x","slides":"nope"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, _, _ := runCLI(t, "import", bad, filepath.Join(dir, "x")); code != 1 {
		t.Fatalf("malformed import should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "x.deck.json")); !os.IsNotExist(err) {
		t.Fatalf("malformed import must not write a deck")
	}

	good := filepath.Join(dir, "good.json")
	doc := `{"title":"Imported","slides":[{"id":"s1","background":"#000000","elements":[
		{"id":"e1","type":"text","x":10,"y":10,"width":300,"height":40,"content":"Roadmap","style":{}}]}]}`
	if err := os.WriteFile(good, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := runCLI(t, "import", good, filepath.Join(dir, "imported"))
	if code != 0 || !strings.Contains(out, "Imported 1 slides") {
		t.Fatalf("import: %d %q %q", code, out, errOut)
	}

	code, out, _ = runCLI(t, "search", dir, "Roadmap")
	if code != 0 || !strings.Contains(out, "imported") || !strings.Contains(out, "slide 1") {
		t.Fatalf("search: %d %q", code, out)
	}
	code, out, _ = runCLI(t, "history", filepath.Join(dir, "imported.deck.json"))
	if code != 0 || !strings.Contains(out, `"Imported"`) {
		t.Fatalf("history: %d %q", code, out)
	}
}

func TestBundleRoundTrip(t *testing.T) {
	dir := isolateEnv(t)
	deck := filepath.Join(dir, "talk")
	if code, _, _ := runCLI(t, "new", deck, "Bundled"); code != 0 {
		t.Fatal("new failed")
	}
	zipPath := filepath.Join(dir, "talk.zip")
	code, out, errOut := runCLI(t, "bundle", deck+".deck.json", zipPath)
	if code != 0 || !strings.Contains(out, "0 asset(s)") {
		t.Fatalf("bundle: %d %q %q", code, out, errOut)
	}
	dst := filepath.Join(dir, "unpacked")
	code, out, errOut = runCLI(t, "unbundle", zipPath, dst, "-name", "copy")
	if code != 0 || !strings.Contains(out, "copy.deck.json") {
		t.Fatalf("unbundle: %d %q %q", code, out, errOut)
	}
	code, out, _ = runCLI(t, "info", filepath.Join(dst, "copy.deck.json"))
	if code != 0 || !strings.Contains(out, "Deck: Bundled") {
		t.Fatalf("info of unbundled deck: %d %q", code, out)
	}
}

func TestGenerateWithoutKey(t *testing.T) {
	keyring.MockInit()
	dir := isolateEnv(t)
	deck := filepath.Join(dir, "g")
	if code, _, _ := runCLI(t, "new", deck); code != 0 {
		t.Fatal("new failed")
	}
	code, _, errOut := runCLI(t, "generate", deck+".deck.json", "Go", "generics")
	if code != 1 || !strings.Contains(errOut, "no API key") {
		t.Fatalf("generate without key: %d %q", code, errOut)
	}
	if code, _, _ := runCLI(t, "set-key", "k-123"); code != 0 {
		t.Fatalf("set-key failed")
	}
	if got, _ := keyring.Get("GoSlideDeck", "generation_api_key"); got != "k-123" {
		t.Fatalf("keychain holds %q", got)
	}
}

func TestTokenNeedsSecret(t *testing.T) {
	isolateEnv(t)
	t.Setenv(envServerSecret, "")
	if code, _, errOut := runCLI(t, "token"); code != 1 || !strings.Contains(errOut, envServerSecret) {
		t.Fatalf("token without secret: %d %q", code, errOut)
	}
	t.Setenv(envServerSecret, "s3cret")
	code, out, _ := runCLI(t, "token", "-subject", "ana", "-ttl", "1h")
	if code != 0 || strings.Count(strings.TrimSpace(out), ".") != 2 {
		t.Fatalf("token: %d %q", code, out)
	}
}

func TestParseAllowsTrailingFlags(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	n := fs.Int("n", 1, "")
	pos, err := parse(fs, []string{"a", "-n", "5", "b"}, 2, "x")
	if err != nil || *n != 5 || len(pos) != 2 || pos[1] != "b" {
		t.Fatalf("parse = %v %d %v", pos, *n, err)
	}
	if got := withDeckExt("a.deck.json"); got != "a.deck.json" {
		t.Fatalf("withDeckExt = %q", got)
	}
}
