/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor wires the deck store, the interaction controller, the
// generation runner and the renderers to a deck file on disk. The UI and the
// CLI both drive a Session.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
	"goslidedeck/internal/export"
	"goslidedeck/internal/generate"
	"goslidedeck/internal/interaction"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/serial"
	"goslidedeck/internal/storage"
	"goslidedeck/internal/telemetry"
)

// ErrNoPath is returned by Save for a deck that was never written to disk.
var ErrNoPath = errors.New("deck has no file yet; use SaveAs")

// Options configures a Session. The zero value is usable.
type Options struct {
	Generator generate.Generator
	Poster    generate.Poster
	Canvas    interaction.Canvas
	Images    export.ImageSource
	// ThumbnailWidth in pixels; projection.ThumbnailWidth when zero.
	ThumbnailWidth int
	// KeepBackups bounds the backups kept per deck; zero keeps all.
	KeepBackups int
	// RequireActiveSlide drops generation results for slides the user left.
	RequireActiveSlide bool
	// OnGenerated observes finished generation requests.
	OnGenerated func(generate.Result)
	Now         func() time.Time
	StoreOpts   []deck.Option
}

// Session is one open deck.
type Session struct {
	Store      *deck.Store
	Controller *interaction.Controller
	Runner     *generate.Runner

	renderer *export.Renderer
	images   export.ImageSource
	opt      Options
	log      *slog.Logger

	mu       sync.Mutex
	handle   *storage.DeckHandle
	savedRev uint64
}

// New returns a session holding the seed deck and no file.
func New(opt Options) (*Session, error) {
	return newSession(deck.New(opt.StoreOpts...), nil, opt)
}

// Open loads the deck at path. A deck recovered from a backup is reported as
// dirty so the next save rewrites the broken file.
func Open(path string, opt Options) (*Session, error) {
	h, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	doc, err := h.Document()
	if err != nil {
		return nil, fmt.Errorf("open deck %s: %w", path, err)
	}
	st, err := deck.FromDocument(doc, opt.StoreOpts...)
	if err != nil {
		return nil, err
	}
	s, err := newSession(st, h, opt)
	if err != nil {
		return nil, err
	}
	if h.Recovered {
		s.savedRev = math.MaxUint64
		s.log.Warn("deck recovered from backup", slog.String("path", path))
	}
	return s, nil
}

func newSession(st *deck.Store, h *storage.DeckHandle, opt Options) (*Session, error) {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.ThumbnailWidth <= 0 {
		opt.ThumbnailWidth = projection.ThumbnailWidth
	}
	images := opt.Images
	if images == nil {
		base := ""
		if h != nil {
			base = h.Dir()
		}
		images = export.NewLoader(base)
	}
	r, err := export.NewRenderer(images)
	if err != nil {
		return nil, err
	}
	if opt.Canvas == nil {
		opt.Canvas = interaction.CanvasFunc(func() float64 { return domain.SlideWidth })
	}
	s := &Session{
		Store:      st,
		Controller: interaction.NewController(st, opt.Canvas),
		Runner:     generate.NewRunner(opt.Generator, st, opt.Poster),
		renderer:   r,
		images:     images,
		opt:        opt,
		log:        applog.WithComponent("editor"),
		handle:     h,
		savedRev:   st.Revision(),
	}
	s.Runner.RequireActiveSlide = opt.RequireActiveSlide
	s.Runner.OnDone = s.generated
	return s, nil
}

func (s *Session) generated(res generate.Result) {
	outcome := "applied"
	switch {
	case errors.Is(res.Err, generate.ErrStale):
		outcome = "stale"
	case res.Err != nil:
		outcome = "failed"
	}
	telemetry.Event(telemetry.EventGeneration, map[string]any{"outcome": outcome, "elements": res.Elements})
	if s.opt.OnGenerated != nil {
		s.opt.OnGenerated(res)
	}
}

// DeckPath is the deck file, or "" for an unsaved deck.
func (s *Session) DeckPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ""
	}
	return s.handle.Path
}

// Snapshot returns a copy of the current presentation.
func (s *Session) Snapshot() domain.Presentation { return s.Store.Snapshot() }

// Dirty reports unsaved changes.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Revision() != s.savedRev
}

// Renderer exposes the raster renderer bound to the session's image source.
func (s *Session) Renderer() *export.Renderer { return s.renderer }

// Save writes the deck to its file. Index and history failures are logged; the
// deck file is what counts.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil {
		return ErrNoPath
	}
	return s.saveLocked(ctx)
}

// SaveAs writes the deck to path, replacing any file there, and makes that
// its file.
func (s *Session) SaveAs(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev := s.Store.Revision()
	h := s.handle
	if h == nil {
		h = &storage.DeckHandle{}
	}
	h.Presentation = s.Store.Snapshot()
	if err := storage.SaveAs(h, path); err != nil {
		return err
	}
	s.handle = h
	s.savedRev = rev
	s.afterSaveLocked(ctx)
	return nil
}

// The revision is read before the snapshot so a concurrent edit leaves the
// session dirty rather than falsely clean.
func (s *Session) saveLocked(ctx context.Context) error {
	rev := s.Store.Revision()
	s.handle.Presentation = s.Store.Snapshot()
	if err := storage.Save(s.handle); err != nil {
		return err
	}
	s.savedRev = rev
	s.handle.Recovered = false
	s.afterSaveLocked(ctx)
	return nil
}

func (s *Session) afterSaveLocked(ctx context.Context) {
	h := s.handle
	ctx = applog.ContextWithDeck(ctx, h.Path)
	l := applog.WithOperation(s.log, "save")
	if err := storage.RecordSave(ctx, h, s.opt.Now()); err != nil {
		l.WarnContext(ctx, "record save history", slog.Any("err", err))
	}
	if err := storage.UpdateIndex(ctx, h.Dir(), h.Name(), h.Presentation); err != nil {
		l.WarnContext(ctx, "update search index", slog.Any("err", err))
	}
	if s.opt.KeepBackups > 0 {
		if n, err := storage.PruneBackups(h.Path, s.opt.KeepBackups); err != nil {
			l.WarnContext(ctx, "prune backups", slog.Any("err", err))
		} else if n > 0 {
			l.DebugContext(ctx, "pruned backups", slog.Int("removed", n))
		}
	}
	l.InfoContext(ctx, "deck saved", slog.Int("slides", len(h.Presentation.Slides)))
	telemetry.Event(telemetry.EventDeckSaved, map[string]any{"slides": len(h.Presentation.Slides)})
}

// Autosave writes a timestamped copy next to the deck when there are unsaved
// changes. It returns "" when nothing was written.
func (s *Session) Autosave() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle == nil || s.Store.Revision() == s.savedRev {
		return "", nil
	}
	return storage.WriteAutosave(s.handle.Path, s.Store.Snapshot(), s.opt.Now())
}

// RunAutosave calls Autosave every interval until ctx is done.
func (s *Session) RunAutosave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if p, err := s.Autosave(); err != nil {
				s.log.Warn("autosave failed", slog.Any("err", err))
			} else if p != "" {
				s.log.Debug("autosave written", slog.String("path", p))
			}
		}
	}
}

// Import replaces the deck with the document read from r. A malformed
// document leaves the deck untouched.
func (s *Session) Import(r io.Reader) error {
	doc, err := serial.ReadDocument(r)
	if err != nil {
		return err
	}
	if err := s.Store.ReplaceAll(doc); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventImported, map[string]any{"slides": s.Store.SlideCount()})
	return nil
}

// ExportJSON writes the deck as JSON.
func (s *Session) ExportJSON(w io.Writer) error {
	if err := serial.WriteJSON(w, s.Store.Snapshot()); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"format": "json"})
	return nil
}

// ExportPDF writes the deck as PDF, one page per slide.
func (s *Session) ExportPDF(ctx context.Context, w io.Writer) error {
	p := s.Store.Snapshot()
	if err := export.ExportPDF(ctx, p, w, export.PDFOptions{Images: s.images}); err != nil {
		return err
	}
	telemetry.Event(telemetry.EventExported, map[string]any{"format": "pdf", "slides": len(p.Slides)})
	return nil
}

// GenerationAvailable reports whether Generate can succeed at all.
func (s *Session) GenerationAvailable() bool { return s.Runner.Available() }

// Generate starts a generation request for the active slide.
func (s *Session) Generate(ctx context.Context, topic string) (string, error) {
	return s.Runner.Start(ctx, s.Store.ActiveSlideID(), topic)
}

// AddText adds the default text element to the active slide and selects it.
func (s *Session) AddText() (string, error) {
	return s.addSelected(domain.NewTextElement())
}

// AddImage adds an image element to the active slide and selects it.
func (s *Session) AddImage(url string) (string, error) {
	return s.addSelected(domain.NewImageElement(url))
}

func (s *Session) addSelected(el domain.Element) (string, error) {
	id, err := s.Store.AddElement(s.Store.ActiveSlideID(), el)
	if err != nil {
		return "", err
	}
	if err := s.Store.Select(id); err != nil {
		return id, err
	}
	return id, nil
}

// Thumbnail returns the PNG rail image for slide i. Saved decks go through the
// preview cache keyed by slide content.
func (s *Session) Thumbnail(ctx context.Context, i int) ([]byte, error) {
	p := s.Store.Snapshot()
	if i < 0 || i >= len(p.Slides) {
		return nil, fmt.Errorf("slide %d out of range", i)
	}
	sl := p.Slides[i]
	pc := projection.NewContext(projection.Thumbnail, float64(s.opt.ThumbnailWidth))
	render := func(ctx context.Context) ([]byte, error) {
		img, err := s.renderer.RenderSlide(ctx, sl, pc)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := export.EncodePNG(&buf, img); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	path := s.DeckPath()
	if path == "" {
		return render(ctx)
	}
	w := s.opt.ThumbnailWidth
	key := storage.PreviewKey{
		Deck:      storage.DeckName(path),
		SlideHash: storage.SlideHash(sl),
		W:         w,
		H:         int(math.Round(float64(w) * domain.SlideHeight / domain.SlideWidth)),
	}
	return storage.GetOrCreatePreview(ctx, filepath.Dir(path), key, render)
}

// Close waits for running generation requests to be handed off.
func (s *Session) Close() {
	s.Runner.Wait()
}
