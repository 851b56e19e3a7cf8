/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package bundle packs a deck and the local image files it references into a
// single zip, and unpacks such a zip into a directory as a new deck.
//
// Layout inside the archive:
//
//	bundle.manifest.txt
//	deck.json
//	assets/<path as referenced by the deck>
package bundle

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/serial"
	"goslidedeck/internal/storage"
)

const (
	manifestName = "bundle.manifest.txt"
	deckName     = "deck.json"
	assetsPrefix = "assets/"
)

// LocalAssets returns the image references of p that are relative file paths
// inside the deck directory. URLs, data URLs, absolute paths and paths leaving
// the directory are not bundled.
func LocalAssets(p domain.Presentation) []string {
	seen := map[string]bool{}
	var out []string
	for _, sl := range p.Slides {
		for _, el := range sl.Elements {
			if el.Type != domain.ElementImage {
				continue
			}
			ref, ok := localRef(el.Content)
			if ok && !seen[ref] {
				seen[ref] = true
				out = append(out, ref)
			}
		}
	}
	return out
}

func localRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return "", false
	}
	slashed := filepath.ToSlash(ref)
	if path.IsAbs(slashed) || filepath.IsAbs(ref) {
		return "", false
	}
	clean := path.Clean(slashed)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", false
	}
	return clean, true
}

// Export writes the deck at deckPath and its local assets to destZipPath.
// Missing asset files are skipped with a warning.
func Export(deckPath, destZipPath string) (int, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "export").With(slog.String("deck", deckPath))
	if strings.TrimSpace(deckPath) == "" {
		return 0, errors.New("deck path is required")
	}
	if strings.TrimSpace(destZipPath) == "" {
		return 0, errors.New("destination path is required")
	}
	h, err := storage.Open(deckPath)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(destZipPath), 0o755); err != nil {
		return 0, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZipPath)
	zf, err := os.Create(destZipPath)
	if err != nil {
		return 0, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	manifest := fmt.Sprintf("GoSlideDeck Bundle\nCreated: %s\nDeck: %s\nSlides: %d\n",
		time.Now().Format(time.RFC3339), h.Presentation.Title, len(h.Presentation.Slides))
	if err := writeEntry(zw, manifestName, strings.NewReader(manifest)); err != nil {
		return 0, fmt.Errorf("add manifest: %w", err)
	}
	var doc bytes.Buffer
	if err := serial.WriteJSON(&doc, h.Presentation); err != nil {
		return 0, err
	}
	if err := writeEntry(zw, deckName, &doc); err != nil {
		return 0, fmt.Errorf("add deck: %w", err)
	}

	added := 0
	for _, ref := range LocalAssets(h.Presentation) {
		f, err := os.Open(filepath.Join(h.Dir(), filepath.FromSlash(ref)))
		if err != nil {
			l.Warn("skip missing asset", slog.String("asset", ref), slog.Any("err", err))
			continue
		}
		err = writeEntry(zw, assetsPrefix+ref, f)
		_ = f.Close()
		if err != nil {
			return added, fmt.Errorf("add asset %s: %w", ref, err)
		}
		added++
	}
	if err := zw.Close(); err != nil {
		return added, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle exported", slog.Int("assets", added), slog.String("zip", destZipPath))
	return added, nil
}

func writeEntry(zw *zip.Writer, name string, r io.Reader) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, r)
	return err
}

// Result describes an unpacked bundle.
type Result struct {
	DeckPath string
	Assets   int
	Skipped  int // assets that already existed in the target directory
}

// Import unpacks the bundle at zipPath into destDir and creates the deck file
// <destDir>/<name>.deck.json. The deck goes through the import gate before
// anything is written; existing asset files are never overwritten.
func Import(zipPath, destDir, name string) (Result, error) {
	l := applog.WithOperation(applog.WithComponent("bundle"), "import").With(slog.String("zip", zipPath))
	var res Result
	if strings.TrimSpace(destDir) == "" {
		return res, errors.New("destination dir is required")
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(zipPath), filepath.Ext(zipPath))
	}
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return res, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	var deckFile *zip.File
	for _, f := range r.File {
		if f.Name == deckName {
			deckFile = f
		}
	}
	if deckFile == nil {
		return res, fmt.Errorf("bundle has no %s", deckName)
	}
	rc, err := deckFile.Open()
	if err != nil {
		return res, err
	}
	doc, err := serial.ReadDocument(rc)
	_ = rc.Close()
	if err != nil {
		return res, err
	}

	root, err := filepath.Abs(destDir)
	if err != nil {
		return res, err
	}
	deckPath := filepath.Join(root, name+storage.DeckExt)
	if _, err := os.Stat(deckPath); err == nil {
		return res, fmt.Errorf("deck %s already exists", deckPath)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return res, fmt.Errorf("ensure dest dir: %w", err)
	}
	for _, f := range r.File {
		if !strings.HasPrefix(f.Name, assetsPrefix) || f.FileInfo().IsDir() {
			continue
		}
		rel, ok := localRef(strings.TrimPrefix(f.Name, assetsPrefix))
		if !ok {
			l.Warn("skip unsafe entry", slog.String("entry", f.Name))
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			l.Warn("skip unsafe entry", slog.String("entry", f.Name))
			continue
		}
		if _, err := os.Stat(target); err == nil {
			res.Skipped++
			continue
		}
		if err := extract(f, target); err != nil {
			return res, err
		}
		res.Assets++
	}

	h, err := storage.Create(deckPath, doc.Presentation())
	if err != nil {
		return res, err
	}
	res.DeckPath = h.Path
	l.Info("bundle imported", slog.String("deck", h.Path), slog.Int("assets", res.Assets), slog.Int("skipped", res.Skipped))
	return res, nil
}

func extract(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
