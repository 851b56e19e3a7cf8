/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the deck data model. All geometry is expressed in canonical
// units: a slide is always SlideWidth x SlideHeight, whatever it is rendered at.
// The JSON tags are the persisted document format and must stay stable.

const (
	SlideWidth  = 1000.0
	SlideHeight = SlideWidth / (16.0 / 9.0) // 562.5

	DefaultBackground = "#ffffff"
	DefaultTextColor  = "#000000"
)

// ElementType discriminates what Element.Content holds.
type ElementType string

const (
	ElementText  ElementType = "text"
	ElementImage ElementType = "image"
	ElementShape ElementType = "shape" // reserved, not authored yet
)

// Presentation is the whole deck. It always holds at least one slide once it
// is owned by the store.
type Presentation struct {
	Title  string  `json:"title"`
	Slides []Slide `json:"slides"`
}

// Slide is one page of the deck. Element order is paint order.
type Slide struct {
	ID         string    `json:"id"`
	Background string    `json:"background"`
	Elements   []Element `json:"elements"`
}

// Element is a positioned text or image box.
// Rotation is stored as given; consumers normalise it for display.
type Element struct {
	ID       string      `json:"id"`
	Type     ElementType `json:"type"`
	X        float64     `json:"x"`
	Y        float64     `json:"y"`
	Width    float64     `json:"width"`
	Height   float64     `json:"height"`
	Rotation float64     `json:"rotation"`
	Content  string      `json:"content"`
	Style    Style       `json:"style"`
}

// Style holds optional visual attributes. An empty string or nil pointer means
// "not set": the render context decides, it is never read as zero.
type Style struct {
	FontSize        FontSize `json:"fontSize,omitempty"`
	FontWeight      string   `json:"fontWeight,omitempty"`     // normal | bold
	FontStyle       string   `json:"fontStyle,omitempty"`      // normal | italic
	TextDecoration  string   `json:"textDecoration,omitempty"` // none | underline
	Color           string   `json:"color,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	TextAlign       string   `json:"textAlign,omitempty"` // left | center | right
	BorderColor     string   `json:"borderColor,omitempty"`
	BorderWidth     *float64 `json:"borderWidth,omitempty"`
	BorderRadius    *float64 `json:"borderRadius,omitempty"`
}

const (
	WeightNormal = "normal"
	WeightBold   = "bold"

	FontStyleNormal = "normal"
	FontStyleItalic = "italic"

	DecorationNone      = "none"
	DecorationUnderline = "underline"

	AlignLeft   = "left"
	AlignCenter = "center"
	AlignRight  = "right"
)

// FontSize is a token of the fixed type scale.
type FontSize string

const (
	FontXS   FontSize = "xs"
	FontSM   FontSize = "sm"
	FontBase FontSize = "base"
	FontLG   FontSize = "lg"
	FontXL   FontSize = "xl"
	Font2XL  FontSize = "2xl"
	Font3XL  FontSize = "3xl"
	Font4XL  FontSize = "4xl"
	Font5XL  FontSize = "5xl"
)

// FontScale lists the tokens in ascending order.
var FontScale = []FontSize{FontXS, FontSM, FontBase, FontLG, FontXL, Font2XL, Font3XL, Font4XL, Font5XL}

var fontUnits = map[FontSize]float64{
	FontXS:   12,
	FontSM:   14,
	FontBase: 16,
	FontLG:   18,
	FontXL:   20,
	Font2XL:  24,
	Font3XL:  30,
	Font4XL:  36,
	Font5XL:  48,
}

// Units returns the font size in canonical units. ok is false for an unset or
// unknown token.
func (f FontSize) Units() (units float64, ok bool) {
	u, ok := fontUnits[f]
	return u, ok
}

// Valid reports whether f is a member of the type scale.
func (f FontSize) Valid() bool {
	_, ok := fontUnits[f]
	return ok
}

// Clone returns a deep copy of the style.
func (s Style) Clone() Style {
	out := s
	if s.BorderWidth != nil {
		v := *s.BorderWidth
		out.BorderWidth = &v
	}
	if s.BorderRadius != nil {
		v := *s.BorderRadius
		out.BorderRadius = &v
	}
	return out
}

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	out := e
	out.Style = e.Style.Clone()
	return out
}

// Clone returns a deep copy of the slide. A nil element list stays empty, not nil.
func (s Slide) Clone() Slide {
	out := s
	out.Elements = make([]Element, len(s.Elements))
	for i, e := range s.Elements {
		out.Elements[i] = e.Clone()
	}
	return out
}

// Clone returns a deep copy of the presentation.
func (p Presentation) Clone() Presentation {
	out := Presentation{Title: p.Title, Slides: make([]Slide, len(p.Slides))}
	for i, s := range p.Slides {
		out.Slides[i] = s.Clone()
	}
	return out
}

// SlideIndex returns the index of the slide with the given id, or -1.
func (p *Presentation) SlideIndex(id string) int {
	for i := range p.Slides {
		if p.Slides[i].ID == id {
			return i
		}
	}
	return -1
}

// ElementIndex returns the index of the element with the given id, or -1.
func (s *Slide) ElementIndex(id string) int {
	for i := range s.Elements {
		if s.Elements[i].ID == id {
			return i
		}
	}
	return -1
}

// HasID reports whether any slide or element of p uses id.
func (p *Presentation) HasID(id string) bool {
	for i := range p.Slides {
		if p.Slides[i].ID == id {
			return true
		}
		if p.Slides[i].ElementIndex(id) >= 0 {
			return true
		}
	}
	return false
}

// Float returns a pointer to v, for optional numeric style fields.
func Float(v float64) *float64 { return &v }
