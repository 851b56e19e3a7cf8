/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package interaction turns pointer and keyboard input on the editor canvas
// into selection changes and scale-corrected position updates.
//
// The controller has two states, Idle and Dragging. Pointer coordinates are
// canvas-local pixels; the scale factor is read from the canvas on every event
// because the canvas may be resized between any two events.
package interaction

import (
	"log/slog"
	"sync"

	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/vector"
)

// Store is the part of deck.Store the controller drives.
type Store interface {
	ActiveSlide() (int, domain.Slide)
	Select(elementID string) error
	ClearSelection()
	Selection() string
	UpdateElement(slideID, elementID string, patch deck.ElementPatch) error
	DeleteElement(slideID, elementID string) error
}

// Canvas reports its current on-screen width in pixels.
type Canvas interface {
	RenderedWidth() float64
}

// CanvasFunc adapts a function to Canvas.
type CanvasFunc func() float64

func (f CanvasFunc) RenderedWidth() float64 { return f() }

// State of the drag machine.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// Target is what a pointer press landed on. The zero value is the slide
// background.
type Target struct{ ElementID string }

// Background is the empty slide area.
func Background() Target { return Target{} }

// On targets an element.
func On(elementID string) Target { return Target{ElementID: elementID} }

// Key names; they match fyne's KeyName strings.
type Key string

const (
	KeyDelete    Key = "Delete"
	KeyBackspace Key = "BackSpace"
	KeyEscape    Key = "Escape"
	KeyLeft      Key = "Left"
	KeyRight     Key = "Right"
	KeySpace     Key = "Space"
)

// Controller is the per-canvas state machine. Safe for concurrent use.
type Controller struct {
	mu     sync.Mutex
	store  Store
	canvas Canvas
	log    *slog.Logger

	state   State
	slideID string
	elemID  string
	grab    vector.Pt // pointer minus element top-left, canonical units
}

// NewController binds a controller to a store and the canvas it serves.
func NewController(store Store, canvas Canvas) *Controller {
	return &Controller{store: store, canvas: canvas, log: applog.WithComponent("interaction")}
}

// State returns the current state and, while dragging, the element id.
func (c *Controller) State() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.elemID
}

func (c *Controller) context() (projection.Context, bool) {
	ctx := projection.NewContext(projection.Editor, c.canvas.RenderedWidth())
	return ctx, ctx.Scale > 0
}

func (c *Controller) endLocked() {
	c.state = Idle
	c.slideID, c.elemID = "", ""
	c.grab = vector.Pt{}
}

// PointerDown starts a drag on an element or clears the selection on the
// background. A press while already dragging ends the earlier drag first.
// Store calls happen outside the controller lock so change listeners may read
// the controller state.
func (c *Controller) PointerDown(t Target, px, py float64) {
	c.mu.Lock()
	c.endLocked()
	c.mu.Unlock()
	if t.ElementID == "" {
		c.store.ClearSelection()
		return
	}
	_, slide := c.store.ActiveSlide()
	i := slide.ElementIndex(t.ElementID)
	if i < 0 {
		c.log.Debug("press on unknown element", slog.String("element", t.ElementID))
		return
	}
	ctx, ok := c.context()
	if !ok {
		return
	}
	el := slide.Elements[i]
	p := ctx.ToCanonical(vector.Pt{X: px, Y: py})
	c.mu.Lock()
	c.state = Dragging
	c.slideID = slide.ID
	c.elemID = el.ID
	c.grab = vector.Pt{X: p.X - el.X, Y: p.Y - el.Y}
	c.mu.Unlock()
	if err := c.store.Select(el.ID); err != nil {
		c.mu.Lock()
		c.endLocked()
		c.mu.Unlock()
	}
}

// PointerDownAt resolves the target by hit testing and then behaves like
// PointerDown.
func (c *Controller) PointerDownAt(px, py float64) {
	c.PointerDown(c.HitTest(px, py), px, py)
}

// PointerMove moves the dragged element so the grab point stays under the
// pointer. Only x and y change; there is no clamping to the slide.
func (c *Controller) PointerMove(px, py float64) {
	c.mu.Lock()
	if c.state != Dragging {
		c.mu.Unlock()
		return
	}
	slideID, elemID, grab := c.slideID, c.elemID, c.grab
	c.mu.Unlock()
	ctx, ok := c.context()
	if !ok {
		return
	}
	p := ctx.ToCanonical(vector.Pt{X: px, Y: py})
	if err := c.store.UpdateElement(slideID, elemID, deck.MoveTo(p.X-grab.X, p.Y-grab.Y)); err != nil {
		// element or slide went away mid drag
		c.log.Debug("drag target vanished", slog.String("element", elemID))
		c.mu.Lock()
		if c.elemID == elemID {
			c.endLocked()
		}
		c.mu.Unlock()
	}
}

// PointerUp ends any drag. The UI must deliver releases that happen outside
// the canvas too.
func (c *Controller) PointerUp() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endLocked()
}

// HitTest returns the topmost element of the active slide under a canvas
// pixel, honouring rotation, or the background.
func (c *Controller) HitTest(px, py float64) Target {
	ctx, ok := c.context()
	if !ok {
		return Background()
	}
	_, slide := c.store.ActiveSlide()
	v := projection.ProjectSlide(slide, ctx)
	if i := v.HitTest(vector.Pt{X: px, Y: py}); i >= 0 {
		return On(v.Boxes[i].ElementID)
	}
	return Background()
}

// KeyDown handles editor shortcuts and reports whether the key was used.
func (c *Controller) KeyDown(k Key) bool {
	switch k {
	case KeyDelete, KeyBackspace:
		sel := c.store.Selection()
		if sel == "" {
			return false
		}
		_, slide := c.store.ActiveSlide()
		c.mu.Lock()
		if c.elemID == sel {
			c.endLocked()
		}
		c.mu.Unlock()
		_ = c.store.DeleteElement(slide.ID, sel)
		return true
	case KeyEscape:
		c.mu.Lock()
		c.endLocked()
		c.mu.Unlock()
		c.store.ClearSelection()
		return true
	}
	return false
}
