/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package interaction

import (
	"math"
	"testing"

	"goslidedeck/internal/deck"
	"goslidedeck/internal/domain"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

type fakeCanvas struct{ w float64 }

func (f *fakeCanvas) RenderedWidth() float64 { return f.w }

// setup returns a store whose active slide has a single 200x100 text box at (100,50).
func setup(t *testing.T, width float64) (*deck.Store, *Controller, *fakeCanvas, string) {
	t.Helper()
	s := deck.New()
	sid := s.AddSlide()
	el := domain.NewTextElement()
	el.X, el.Y, el.Width, el.Height = 100, 50, 200, 100
	id, err := s.AddElement(sid, el)
	if err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	s.ClearSelection()
	cv := &fakeCanvas{w: width}
	return s, NewController(s, cv), cv, id
}

func position(t *testing.T, s *deck.Store, id string) (float64, float64) {
	t.Helper()
	el, ok := s.Element(s.ActiveSlideID(), id)
	if !ok {
		t.Fatalf("element %s missing", id)
	}
	return el.X, el.Y
}

func TestDragIsScaleCorrected(t *testing.T) {
	s, c, _, id := setup(t, 800) // scale 0.8
	// element top-left (100,50) is at pixel (80,40); grab inside it
	c.PointerDown(On(id), 100, 60)
	if st, el := c.State(); st != Dragging || el != id {
		t.Fatalf("state = %v/%s", st, el)
	}
	if s.Selection() != id {
		t.Fatalf("press should select the element")
	}
	c.PointerMove(100+40, 60-16)
	x, y := position(t, s, id)
	if !near(x, 100+40/0.8) || !near(y, 50-16/0.8) {
		t.Fatalf("position = (%v,%v), want (%v,%v)", x, y, 100+40/0.8, 50-16/0.8)
	}
	c.PointerUp()
	c.PointerMove(500, 500)
	if x2, y2 := position(t, s, id); x2 != x || y2 != y {
		t.Fatalf("move after release changed position")
	}
}

func TestScaleIsReadOnEveryEvent(t *testing.T) {
	s, c, cv, id := setup(t, 1000)
	c.PointerDown(On(id), 150, 100) // grab offset (50,50)
	cv.w = 500                      // window shrank mid drag
	c.PointerMove(100, 50)          // canonical (200,100)
	x, y := position(t, s, id)
	if !near(x, 150) || !near(y, 50) {
		t.Fatalf("position = (%v,%v), want (150,50)", x, y)
	}
}

func TestDragOnlyTouchesPosition(t *testing.T) {
	s, c, _, id := setup(t, 1000)
	before, _ := s.Element(s.ActiveSlideID(), id)
	c.PointerDown(On(id), 110, 60)
	c.PointerMove(-900, -900) // far off the slide, no clamping
	after, _ := s.Element(s.ActiveSlideID(), id)
	if after.X != -910 || after.Y != -910 {
		t.Fatalf("position = (%v,%v)", after.X, after.Y)
	}
	after.X, after.Y = before.X, before.Y
	if after.Width != before.Width || after.Height != before.Height || after.Rotation != before.Rotation || after.Content != before.Content {
		t.Fatalf("drag changed more than x/y: %+v vs %+v", after, before)
	}
}

func TestBackgroundPressClearsSelection(t *testing.T) {
	s, c, _, id := setup(t, 1000)
	_ = s.Select(id)
	c.PointerDown(Background(), 900, 500)
	if s.Selection() != "" {
		t.Fatalf("selection should be cleared")
	}
	if st, _ := c.State(); st != Idle {
		t.Fatalf("background press must stay idle")
	}
}

func TestSecondPressEndsFirstDrag(t *testing.T) {
	s, c, _, id := setup(t, 1000)
	other, _ := s.AddElement(s.ActiveSlideID(), domain.NewImageElement("x.png"))
	c.PointerDown(On(id), 110, 60)
	c.PointerDown(On(other), 110, 110)
	if _, el := c.State(); el != other {
		t.Fatalf("dragging %s, want %s", el, other)
	}
	x0, y0 := position(t, s, id)
	c.PointerMove(300, 300)
	if x, y := position(t, s, id); x != x0 || y != y0 {
		t.Fatalf("first element moved after its drag ended")
	}
}

func TestDragStopsWhenElementDeleted(t *testing.T) {
	s, c, _, id := setup(t, 1000)
	c.PointerDown(On(id), 110, 60)
	if err := s.DeleteElement(s.ActiveSlideID(), id); err != nil {
		t.Fatalf("DeleteElement: %v", err)
	}
	rev := s.Revision()
	c.PointerMove(400, 400)
	if st, _ := c.State(); st != Idle {
		t.Fatalf("controller should fall back to idle")
	}
	if s.Revision() != rev {
		t.Fatalf("stale drag update changed the deck")
	}
}

func TestPressOnUnknownElementIsIgnored(t *testing.T) {
	s, c, _, _ := setup(t, 1000)
	c.PointerDown(On("ghost"), 10, 10)
	if st, _ := c.State(); st != Idle || s.Selection() != "" {
		t.Fatalf("ghost press changed state")
	}
}

func TestHitTestAndPointerDownAt(t *testing.T) {
	s, c, _, id := setup(t, 500) // box spans pixels (50,25)-(150,75)
	if got := c.HitTest(60, 30); got.ElementID != id {
		t.Fatalf("hit = %+v", got)
	}
	if got := c.HitTest(10, 10); got.ElementID != "" {
		t.Fatalf("expected background, got %+v", got)
	}
	c.PointerDownAt(60, 30)
	if s.Selection() != id {
		t.Fatalf("PointerDownAt should select the hit element")
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	s, c, _, id := setup(t, 1000)
	if c.KeyDown(KeyDelete) {
		t.Fatalf("delete without selection should be unhandled")
	}
	_ = s.Select(id)
	if !c.KeyDown(KeyEscape) || s.Selection() != "" {
		t.Fatalf("escape should clear selection")
	}
	c.PointerDown(On(id), 110, 60)
	if !c.KeyDown(KeyBackspace) {
		t.Fatalf("backspace should delete the selection")
	}
	if _, ok := s.Element(s.ActiveSlideID(), id); ok {
		t.Fatalf("element not deleted")
	}
	if st, _ := c.State(); st != Idle {
		t.Fatalf("deleting the dragged element should end the drag")
	}
}

func TestListenerMayReadControllerState(t *testing.T) {
	s, c, _, id := setup(t, 1000)
	seen := 0
	unsub := s.Subscribe(func(deck.Change) {
		c.State()
		seen++
	})
	defer unsub()
	c.PointerDown(On(id), 110, 60)
	c.PointerMove(120, 70)
	c.PointerUp()
	if seen < 2 {
		t.Fatalf("listener saw %d changes", seen)
	}
}
