/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package generate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
	"goslidedeck/internal/serial"
)

// gatedGen blocks every call until release is closed.
type gatedGen struct {
	release chan struct{}
	cands   []serial.Candidate
	err     error
}

func (g *gatedGen) Generate(ctx context.Context, _ string) ([]serial.Candidate, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.cands, g.err
}

func newGated() *gatedGen {
	return &gatedGen{release: make(chan struct{}), cands: []serial.Candidate{
		{ID: "model-id", Type: domain.ElementText, X: 50, Y: 40, Width: 900, Height: 80, Content: "Title"},
		{Type: domain.ElementText, X: 80, Y: 160, Width: 840, Height: 50, Content: "Point"},
	}}
}

type results struct {
	mu  sync.Mutex
	all []Result
}

func (r *results) add(res Result) { r.mu.Lock(); r.all = append(r.all, res); r.mu.Unlock() }
func (r *results) last(t *testing.T) Result {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.all) == 0 {
		t.Fatalf("no result delivered")
	}
	return r.all[len(r.all)-1]
}

func TestRunnerAppliesResult(t *testing.T) {
	s := deck.New()
	sid := s.ActiveSlideID()
	g := newGated()
	r := NewRunner(g, s, nil)
	var got results
	r.OnDone = got.add

	id, err := r.Start(context.Background(), sid, "  Go  ")
	if err != nil || id == "" {
		t.Fatalf("Start: %q %v", id, err)
	}
	if !r.InFlight(sid) {
		t.Fatalf("request should be in flight")
	}
	close(g.release)
	r.Wait()

	res := got.last(t)
	if res.Err != nil || res.Elements != 2 || res.RequestID != id {
		t.Fatalf("result = %+v", res)
	}
	sl, _ := s.Slide(sid)
	if len(sl.Elements) != 2 || sl.Elements[0].Content != "Title" || sl.Elements[0].ID == "model-id" {
		t.Fatalf("slide = %+v", sl.Elements)
	}
	if sl.Elements[1].Style.Color != domain.DefaultTextColor {
		t.Fatalf("default colour missing")
	}
	if r.InFlight(sid) {
		t.Fatalf("in-flight mark not cleared")
	}
}

func TestRunnerSingleFlightPerSlide(t *testing.T) {
	s := deck.New()
	first := s.ActiveSlideID()
	second := s.AddSlide()
	g := newGated()
	r := NewRunner(g, s, nil)
	if _, err := r.Start(context.Background(), first, "a"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Start(context.Background(), first, "b"); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
	if _, err := r.Start(context.Background(), second, "c"); err != nil {
		t.Fatalf("other slide should be allowed: %v", err)
	}
	close(g.release)
	r.Wait()
	if _, err := r.Start(context.Background(), first, "d"); err != nil {
		t.Fatalf("slot should be free again: %v", err)
	}
	r.Wait()
}

func TestRunnerDiscardsAfterImport(t *testing.T) {
	s := deck.New()
	sid := s.ActiveSlideID()
	g := newGated()
	r := NewRunner(g, s, nil)
	var got results
	r.OnDone = got.add
	if _, err := r.Start(context.Background(), sid, "x"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// Re-import a deck that reuses the same slide id: only the epoch tells.
	doc, err := serial.ImportJSON([]byte(`{"title":"new","slides":[{"id":"` + sid + `","background":"#fff","elements":[]}]}`))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if err := s.ReplaceAll(doc); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	close(g.release)
	r.Wait()
	if res := got.last(t); !errors.Is(res.Err, ErrStale) {
		t.Fatalf("expected stale result, got %+v", res)
	}
	if sl, _ := s.Slide(sid); len(sl.Elements) != 0 {
		t.Fatalf("stale result was applied")
	}
}

func TestRunnerDiscardsWhenSlideDeleted(t *testing.T) {
	s := deck.New()
	sid := s.AddSlide()
	g := newGated()
	r := NewRunner(g, s, nil)
	var got results
	r.OnDone = got.add
	_, _ = r.Start(context.Background(), sid, "x")
	if err := s.DeleteSlide(sid); err != nil {
		t.Fatalf("DeleteSlide: %v", err)
	}
	close(g.release)
	r.Wait()
	if res := got.last(t); !errors.Is(res.Err, ErrStale) {
		t.Fatalf("expected stale result, got %+v", res)
	}
}

func TestRunnerRequireActiveSlide(t *testing.T) {
	s := deck.New()
	sid := s.ActiveSlideID()
	s.AddSlide() // navigates away
	s.SetActiveSlide(0)
	g := newGated()
	r := NewRunner(g, s, nil)
	r.RequireActiveSlide = true
	var got results
	r.OnDone = got.add
	_, _ = r.Start(context.Background(), sid, "x")
	s.SetActiveSlide(1)
	close(g.release)
	r.Wait()
	if res := got.last(t); !errors.Is(res.Err, ErrStale) {
		t.Fatalf("expected stale result, got %+v", res)
	}
}

func TestRunnerOverwritesConcurrentEdits(t *testing.T) {
	s := deck.New()
	sid := s.ActiveSlideID()
	g := newGated()
	r := NewRunner(g, s, nil)
	_, _ = r.Start(context.Background(), sid, "x")
	manual, _ := s.AddElement(sid, domain.NewTextElement())
	close(g.release)
	r.Wait()
	if _, ok := s.Element(sid, manual); ok {
		t.Fatalf("generation replaces the whole slide, manual element should be gone")
	}
}

func TestRunnerReportsFailures(t *testing.T) {
	s := deck.New()
	sid := s.ActiveSlideID()
	before, _ := s.Slide(sid)
	g := newGated()
	g.err = errors.New("boom")
	r := NewRunner(g, s, nil)
	var got results
	r.OnDone = got.add
	_, _ = r.Start(context.Background(), sid, "x")
	close(g.release)
	r.Wait()
	var gf *serial.GenerationFailure
	if res := got.last(t); !errors.As(res.Err, &gf) {
		t.Fatalf("expected GenerationFailure, got %+v", res)
	}
	if after, _ := s.Slide(sid); len(after.Elements) != len(before.Elements) {
		t.Fatalf("failed generation touched the slide")
	}
}

func TestRunnerStartValidation(t *testing.T) {
	s := deck.New()
	r := NewRunner(nil, s, nil)
	if r.Available() {
		t.Fatalf("nil generator should be unavailable")
	}
	if _, err := r.Start(context.Background(), s.ActiveSlideID(), "   "); !errors.Is(err, ErrEmptyTopic) {
		t.Fatalf("expected ErrEmptyTopic, got %v", err)
	}
	if _, err := r.Start(context.Background(), "ghost", "x"); !errors.Is(err, deck.ErrStaleReference) {
		t.Fatalf("expected stale reference, got %v", err)
	}
	if NewRunner(NewGemini(GeminiConfig{}), s, nil).Available() {
		t.Fatalf("unconfigured gemini should be unavailable")
	}
	if !NewRunner(newGated(), s, nil).Available() {
		t.Fatalf("plain generator should be available")
	}
}

func TestRunnerUsesPoster(t *testing.T) {
	s := deck.New()
	sid := s.ActiveSlideID()
	g := newGated()
	var queued []func()
	var mu sync.Mutex
	r := NewRunner(g, s, func(f func()) { mu.Lock(); queued = append(queued, f); mu.Unlock() })
	_, _ = r.Start(context.Background(), sid, "x")
	close(g.release)
	r.Wait()
	if sl, _ := s.Slide(sid); sl.Elements[0].Content == "Title" {
		t.Fatalf("result applied before the poster ran it")
	}
	mu.Lock()
	for _, f := range queued {
		f()
	}
	mu.Unlock()
	if sl, _ := s.Slide(sid); sl.Elements[0].Content != "Title" {
		t.Fatalf("posted completion did not apply")
	}
}
