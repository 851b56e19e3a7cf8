/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package deck owns the in-memory presentation and the only API that mutates it.
// Every operation leaves the deck consistent: at least one slide, unique ids,
// non-negative sizes. Operations that target ids which no longer exist are
// no-ops reported with ErrStaleReference; callers drop those silently.
package deck

import (
	"errors"
	"log/slog"
	"sync"

	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/serial"
)

var (
	// ErrStaleReference: the slide or element id is not (or no longer) in the deck.
	ErrStaleReference = errors.New("deck: stale reference")
	// ErrStructuralGuard: the operation would remove the last slide.
	ErrStructuralGuard = errors.New("deck: cannot delete the last slide")
	// ErrUnvalidated: content did not come out of the serial gateway.
	ErrUnvalidated = errors.New("deck: content was not validated by the gateway")
)

// IsSilent reports whether err is an expected no-op outcome that must not be
// shown to the user.
func IsSilent(err error) bool {
	return errors.Is(err, ErrStaleReference) || errors.Is(err, ErrStructuralGuard)
}

// ChangeKind says what part of the deck a Change touched.
type ChangeKind int

const (
	ChangeSlides    ChangeKind = iota + 1 // slide added or removed
	ChangeSlide                           // slide attributes (background)
	ChangeElements                        // element added, updated, removed or replaced
	ChangeTitle                           // deck title
	ChangeActive                          // active slide index
	ChangeSelection                       // selected element
	ChangeDocument                        // whole deck replaced
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeSlides:
		return "slides"
	case ChangeSlide:
		return "slide"
	case ChangeElements:
		return "elements"
	case ChangeTitle:
		return "title"
	case ChangeActive:
		return "active"
	case ChangeSelection:
		return "selection"
	case ChangeDocument:
		return "document"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after a mutation has been applied.
type Change struct {
	Kind      ChangeKind
	SlideID   string
	ElementID string
	Revision  uint64
}

// Store holds one presentation plus the editing state around it (active
// slide, selection). It is safe for concurrent use; listeners run on the
// goroutine that performed the mutation, after the lock is released.
type Store struct {
	mu       sync.RWMutex
	pres     domain.Presentation
	active   int
	selected string
	rev      uint64
	epoch    uint64
	newID    func() string
	log      *slog.Logger

	lmu       sync.Mutex
	listeners map[int]func(Change)
	nextL     int
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid generator, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger used for debug traces of silent no-ops.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// New returns a store holding the default seed deck.
func New(opts ...Option) *Store {
	s := newStore(opts)
	s.pres = domain.DefaultPresentation(s.newID)
	return s
}

// FromDocument returns a store holding a validated document.
func FromDocument(doc serial.Document, opts ...Option) (*Store, error) {
	if !doc.Valid() {
		return nil, ErrUnvalidated
	}
	p := doc.Presentation()
	if len(p.Slides) == 0 {
		return nil, ErrUnvalidated
	}
	s := newStore(opts)
	s.pres = p
	return s, nil
}

func newStore(opts []Option) *Store {
	s := &Store{newID: domain.NewID, listeners: map[int]func(Change){}}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = applog.WithComponent("deck")
	}
	return s
}

// Subscribe registers fn for change notifications and returns a function that
// removes it again.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextL
	s.nextL++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) notify(changes ...Change) {
	if len(changes) == 0 {
		return
	}
	s.lmu.Lock()
	fns := make([]func(Change), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, c := range changes {
		for _, fn := range fns {
			fn(c)
		}
	}
}

// freshIDLocked returns an id no slide or element uses. Caller holds mu.
func (s *Store) freshIDLocked() string {
	return domain.FreshID(s.pres.HasID, s.newID)
}

func (s *Store) stale(op, slideID, elementID string) error {
	s.log.Debug("stale reference ignored", slog.String("op", op), slog.String("slide", slideID), slog.String("element", elementID))
	return ErrStaleReference
}

// Snapshot returns a deep copy of the deck.
func (s *Store) Snapshot() domain.Presentation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pres.Clone()
}

// Title returns the deck title.
func (s *Store) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pres.Title
}

// SlideCount returns the number of slides (always at least one).
func (s *Store) SlideCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pres.Slides)
}

// Revision increases with every model mutation. Selection and navigation do
// not count.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rev
}

// Epoch increases whenever the whole deck is replaced. Asynchronous work
// started under an older epoch must not be applied.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// HasID reports whether any slide or element uses id.
func (s *Store) HasID(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pres.HasID(id)
}

// Slide returns a copy of the slide with the given id.
func (s *Store) Slide(id string) (domain.Slide, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.pres.SlideIndex(id)
	if i < 0 {
		return domain.Slide{}, false
	}
	return s.pres.Slides[i].Clone(), true
}

// Element returns a copy of an element.
func (s *Store) Element(slideID, elementID string) (domain.Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.pres.SlideIndex(slideID)
	if i < 0 {
		return domain.Element{}, false
	}
	j := s.pres.Slides[i].ElementIndex(elementID)
	if j < 0 {
		return domain.Element{}, false
	}
	return s.pres.Slides[i].Elements[j].Clone(), true
}

// ActiveSlide returns the active index and a copy of that slide.
func (s *Store) ActiveSlide() (int, domain.Slide) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active, s.pres.Slides[s.active].Clone()
}

// ActiveSlideID returns the id of the active slide.
func (s *Store) ActiveSlideID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pres.Slides[s.active].ID
}

// Selection returns the selected element id, or "" when nothing is selected.
func (s *Store) Selection() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// SetTitle renames the deck.
func (s *Store) SetTitle(title string) {
	s.mu.Lock()
	if s.pres.Title == title {
		s.mu.Unlock()
		return
	}
	s.pres.Title = title
	s.rev++
	c := Change{Kind: ChangeTitle, Revision: s.rev}
	s.mu.Unlock()
	s.notify(c)
}

// AddSlide appends an empty white slide, makes it active and returns its id.
func (s *Store) AddSlide() string {
	s.mu.Lock()
	id := s.freshIDLocked()
	s.pres.Slides = append(s.pres.Slides, domain.NewSlide(id))
	s.active = len(s.pres.Slides) - 1
	s.rev++
	changes := []Change{
		{Kind: ChangeSlides, SlideID: id, Revision: s.rev},
		{Kind: ChangeActive, SlideID: id, Revision: s.rev},
	}
	if s.selected != "" {
		s.selected = ""
		changes = append(changes, Change{Kind: ChangeSelection, Revision: s.rev})
	}
	s.mu.Unlock()
	s.notify(changes...)
	return id
}

// DeleteSlide removes a slide. Deleting the only slide is refused with
// ErrStructuralGuard and leaves the deck unchanged.
func (s *Store) DeleteSlide(id string) error {
	s.mu.Lock()
	i := s.pres.SlideIndex(id)
	if i < 0 {
		s.mu.Unlock()
		return s.stale("delete_slide", id, "")
	}
	if len(s.pres.Slides) == 1 {
		s.mu.Unlock()
		s.log.Debug("refusing to delete last slide", slog.String("slide", id))
		return ErrStructuralGuard
	}
	removed := s.pres.Slides[i]
	s.pres.Slides = append(s.pres.Slides[:i:i], s.pres.Slides[i+1:]...)
	s.rev++
	changes := []Change{{Kind: ChangeSlides, SlideID: id, Revision: s.rev}}
	if s.active > len(s.pres.Slides)-1 {
		s.active = len(s.pres.Slides) - 1
		changes = append(changes, Change{Kind: ChangeActive, SlideID: s.pres.Slides[s.active].ID, Revision: s.rev})
	}
	if s.selected != "" && removed.ElementIndex(s.selected) >= 0 {
		s.selected = ""
		changes = append(changes, Change{Kind: ChangeSelection, Revision: s.rev})
	}
	s.mu.Unlock()
	s.notify(changes...)
	return nil
}

// SetActiveSlide clamps index into range, activates that slide and returns the
// index actually used. A selection on another slide is cleared.
func (s *Store) SetActiveSlide(index int) int {
	s.mu.Lock()
	index = max(0, min(index, len(s.pres.Slides)-1))
	if index == s.active {
		s.mu.Unlock()
		return index
	}
	s.active = index
	slide := &s.pres.Slides[index]
	changes := []Change{{Kind: ChangeActive, SlideID: slide.ID, Revision: s.rev}}
	if s.selected != "" && slide.ElementIndex(s.selected) < 0 {
		s.selected = ""
		changes = append(changes, Change{Kind: ChangeSelection, Revision: s.rev})
	}
	s.mu.Unlock()
	s.notify(changes...)
	return index
}

// SetSlideBackground changes a slide's background colour.
func (s *Store) SetSlideBackground(slideID, color string) error {
	s.mu.Lock()
	i := s.pres.SlideIndex(slideID)
	if i < 0 {
		s.mu.Unlock()
		return s.stale("set_background", slideID, "")
	}
	s.pres.Slides[i].Background = color
	s.rev++
	c := Change{Kind: ChangeSlide, SlideID: slideID, Revision: s.rev}
	s.mu.Unlock()
	s.notify(c)
	return nil
}

// AddElement appends el on top of the slide under a fresh id and selects it.
// Any id set on el is ignored.
func (s *Store) AddElement(slideID string, el domain.Element) (string, error) {
	s.mu.Lock()
	i := s.pres.SlideIndex(slideID)
	if i < 0 {
		s.mu.Unlock()
		return "", s.stale("add_element", slideID, "")
	}
	e := el.Clone()
	e.ID = s.freshIDLocked()
	e.Width = max(e.Width, 0)
	e.Height = max(e.Height, 0)
	s.pres.Slides[i].Elements = append(s.pres.Slides[i].Elements, e)
	s.selected = e.ID
	s.rev++
	changes := []Change{
		{Kind: ChangeElements, SlideID: slideID, ElementID: e.ID, Revision: s.rev},
		{Kind: ChangeSelection, SlideID: slideID, ElementID: e.ID, Revision: s.rev},
	}
	s.mu.Unlock()
	s.notify(changes...)
	return e.ID, nil
}

// UpdateElement merges patch into an element. Missing slide or element ids
// leave the deck untouched and return ErrStaleReference.
func (s *Store) UpdateElement(slideID, elementID string, patch ElementPatch) error {
	s.mu.Lock()
	i := s.pres.SlideIndex(slideID)
	if i < 0 {
		s.mu.Unlock()
		return s.stale("update_element", slideID, elementID)
	}
	j := s.pres.Slides[i].ElementIndex(elementID)
	if j < 0 {
		s.mu.Unlock()
		return s.stale("update_element", slideID, elementID)
	}
	if patch.Empty() {
		s.mu.Unlock()
		return nil
	}
	patch.apply(&s.pres.Slides[i].Elements[j])
	s.rev++
	c := Change{Kind: ChangeElements, SlideID: slideID, ElementID: elementID, Revision: s.rev}
	s.mu.Unlock()
	s.notify(c)
	return nil
}

// DeleteElement removes an element and clears the selection if it pointed at it.
func (s *Store) DeleteElement(slideID, elementID string) error {
	s.mu.Lock()
	i := s.pres.SlideIndex(slideID)
	if i < 0 {
		s.mu.Unlock()
		return s.stale("delete_element", slideID, elementID)
	}
	els := s.pres.Slides[i].Elements
	j := s.pres.Slides[i].ElementIndex(elementID)
	if j < 0 {
		s.mu.Unlock()
		return s.stale("delete_element", slideID, elementID)
	}
	s.pres.Slides[i].Elements = append(els[:j:j], els[j+1:]...)
	s.rev++
	changes := []Change{{Kind: ChangeElements, SlideID: slideID, ElementID: elementID, Revision: s.rev}}
	if s.selected == elementID {
		s.selected = ""
		changes = append(changes, Change{Kind: ChangeSelection, SlideID: slideID, Revision: s.rev})
	}
	s.mu.Unlock()
	s.notify(changes...)
	return nil
}

// Select marks an element as selected. Selection never changes the model.
func (s *Store) Select(elementID string) error {
	if elementID == "" {
		s.ClearSelection()
		return nil
	}
	s.mu.Lock()
	if !s.pres.HasID(elementID) || s.pres.SlideIndex(elementID) >= 0 {
		s.mu.Unlock()
		return s.stale("select", "", elementID)
	}
	if s.selected == elementID {
		s.mu.Unlock()
		return nil
	}
	s.selected = elementID
	c := Change{Kind: ChangeSelection, ElementID: elementID, Revision: s.rev}
	s.mu.Unlock()
	s.notify(c)
	return nil
}

// ClearSelection deselects whatever is selected.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	if s.selected == "" {
		s.mu.Unlock()
		return
	}
	s.selected = ""
	c := Change{Kind: ChangeSelection, Revision: s.rev}
	s.mu.Unlock()
	s.notify(c)
}

// ReplaceAll swaps in a whole validated document. The first slide becomes
// active, the selection is cleared and the epoch advances.
func (s *Store) ReplaceAll(doc serial.Document) error {
	if !doc.Valid() {
		return ErrUnvalidated
	}
	p := doc.Presentation()
	if len(p.Slides) == 0 {
		return ErrUnvalidated
	}
	s.mu.Lock()
	s.pres = p
	s.active = 0
	s.selected = ""
	s.rev++
	s.epoch++
	c := Change{Kind: ChangeDocument, SlideID: p.Slides[0].ID, Revision: s.rev}
	s.mu.Unlock()
	s.log.Info("deck replaced", slog.String("title", p.Title), slog.Int("slides", len(p.Slides)))
	s.notify(c)
	return nil
}

// ReplaceSlideElements throws away every element of the slide and installs
// the batch in its place. This is destructive by contract: concurrent manual
// edits on that slide are lost. Batch ids that meanwhile collide with ids on
// other slides are re-drawn.
func (s *Store) ReplaceSlideElements(slideID string, batch serial.GeneratedBatch) error {
	if !batch.Valid() {
		return ErrUnvalidated
	}
	els := batch.Elements()
	s.mu.Lock()
	i := s.pres.SlideIndex(slideID)
	if i < 0 {
		s.mu.Unlock()
		return s.stale("replace_elements", slideID, "")
	}
	old := s.pres.Slides[i].Elements
	s.pres.Slides[i].Elements = []domain.Element{}
	seen := make(map[string]bool, len(els))
	for k := range els {
		if seen[els[k].ID] || s.pres.HasID(els[k].ID) || els[k].ID == "" {
			els[k].ID = domain.FreshID(func(id string) bool { return seen[id] || s.pres.HasID(id) }, s.newID)
		}
		seen[els[k].ID] = true
	}
	s.pres.Slides[i].Elements = els
	s.rev++
	changes := []Change{{Kind: ChangeElements, SlideID: slideID, Revision: s.rev}}
	if s.selected != "" {
		for _, e := range old {
			if e.ID == s.selected {
				s.selected = ""
				changes = append(changes, Change{Kind: ChangeSelection, SlideID: slideID, Revision: s.rev})
				break
			}
		}
	}
	s.mu.Unlock()
	s.notify(changes...)
	return nil
}
