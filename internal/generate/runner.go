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
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/serial"
)

var (
	// ErrInFlight: a request for the slide is already running.
	ErrInFlight = errors.New("generation already in progress for this slide")
	// ErrEmptyTopic: nothing to generate from.
	ErrEmptyTopic = errors.New("topic is empty")
	// ErrStale: the result arrived after the deck moved on and was dropped.
	ErrStale = errors.New("generation result is stale")
)

// Target is the part of deck.Store the runner needs.
type Target interface {
	Epoch() uint64
	HasID(id string) bool
	Slide(id string) (domain.Slide, bool)
	ActiveSlideID() string
	ReplaceSlideElements(slideID string, batch serial.GeneratedBatch) error
}

// Poster runs f on the goroutine that owns UI mutations.
type Poster func(f func())

// Direct runs f immediately; used headless and in tests.
func Direct(f func()) { f() }

// Result reports how a request ended.
type Result struct {
	RequestID string
	SlideID   string
	Elements  int
	Err       error // nil on success; ErrStale when dropped
}

// Runner launches generation requests, at most one per slide, and applies
// results only while they are still current.
type Runner struct {
	gen   Generator
	store Target
	post  Poster
	log   *slog.Logger

	// RequireActiveSlide drops results whose slide is no longer active.
	RequireActiveSlide bool
	// OnDone is called on the poster goroutine after each request.
	OnDone func(Result)

	mu       sync.Mutex
	inflight map[string]request
	wg       sync.WaitGroup
}

type request struct {
	id    string
	epoch uint64
}

// NewRunner wires a generator to a store. A nil poster means Direct.
func NewRunner(gen Generator, store Target, post Poster) *Runner {
	if post == nil {
		post = Direct
	}
	return &Runner{gen: gen, store: store, post: post, log: applog.WithComponent("generate"), inflight: map[string]request{}}
}

// Available reports whether the generator can be used at all, so a UI can
// disable the control instead of failing on click.
func (r *Runner) Available() bool {
	if r.gen == nil {
		return false
	}
	if a, ok := r.gen.(Availability); ok {
		return a.Configured()
	}
	return true
}

// InFlight reports whether a request for slideID is running.
func (r *Runner) InFlight(slideID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inflight[slideID]
	return ok
}

// Start launches a request for slideID and returns its id. It does not block.
func (r *Runner) Start(ctx context.Context, slideID, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}
	if _, ok := r.store.Slide(slideID); !ok {
		return "", deck.ErrStaleReference
	}
	req := request{id: uuid.NewString(), epoch: r.store.Epoch()}
	r.mu.Lock()
	if _, busy := r.inflight[slideID]; busy {
		r.mu.Unlock()
		return "", ErrInFlight
	}
	r.inflight[slideID] = req
	r.mu.Unlock()

	ctx = applog.ContextWithRequest(ctx, req.id)
	r.log.InfoContext(ctx, "generation started", slog.String("slide", slideID), slog.String("topic", topic))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		var (
			cands []serial.Candidate
			err   error
		)
		if r.gen == nil {
			err = &serial.GenerationFailure{Reason: "no generator", Err: ErrNotConfigured}
		} else {
			cands, err = r.gen.Generate(ctx, topic)
		}
		r.post(func() { r.complete(ctx, slideID, req, cands, err) })
	}()
	return req.id, nil
}

func (r *Runner) complete(ctx context.Context, slideID string, req request, cands []serial.Candidate, err error) {
	r.mu.Lock()
	if cur, ok := r.inflight[slideID]; ok && cur.id == req.id {
		delete(r.inflight, slideID)
	}
	r.mu.Unlock()

	res := Result{RequestID: req.id, SlideID: slideID}
	switch {
	case err != nil:
		var gf *serial.GenerationFailure
		if !errors.As(err, &gf) {
			err = &serial.GenerationFailure{Reason: "generation failed", Err: err}
		}
		res.Err = err
		r.log.WarnContext(ctx, "generation failed", slog.String("slide", slideID), slog.Any("err", err))
	case !r.current(slideID, req):
		res.Err = ErrStale
		r.log.InfoContext(ctx, "generation result discarded", slog.String("slide", slideID))
	default:
		batch := serial.NormalizeGeneratedElements(cands, r.store.HasID)
		if err := r.store.ReplaceSlideElements(slideID, batch); err != nil {
			res.Err = ErrStale
			break
		}
		res.Elements = batch.Len()
		r.log.InfoContext(ctx, "generation applied", slog.String("slide", slideID), slog.Int("elements", batch.Len()))
	}
	if r.OnDone != nil {
		r.OnDone(res)
	}
}

func (r *Runner) current(slideID string, req request) bool {
	if r.store.Epoch() != req.epoch {
		return false
	}
	if _, ok := r.store.Slide(slideID); !ok {
		return false
	}
	if r.RequireActiveSlide && r.store.ActiveSlideID() != slideID {
		return false
	}
	return true
}

// Wait blocks until every started request has been handed to the poster.
func (r *Runner) Wait() { r.wg.Wait() }
