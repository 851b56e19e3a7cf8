/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package projection maps canonical element geometry and style onto a concrete
// render target. The editor canvas, the thumbnail rail, the presenter and the
// exporters all draw from the boxes computed here and nowhere else, so what is
// exported matches what was edited up to the scale factor.
package projection

import (
	"image/color"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/vector"
)

// Target names a consumer of projected boxes.
type Target int

const (
	Editor Target = iota
	Thumbnail
	Presentation
	Export
)

func (t Target) String() string {
	switch t {
	case Editor:
		return "editor"
	case Thumbnail:
		return "thumbnail"
	case Presentation:
		return "presentation"
	case Export:
		return "export"
	default:
		return "unknown"
	}
}

const (
	// TextPadding is the inner padding of text boxes in canonical units.
	TextPadding = 10.0
	// ThumbnailFontPx is the fixed font size of the thumbnail rail, in pixels.
	ThumbnailFontPx = 10.0
	// ThumbnailWidth is the pixel width of a rail thumbnail.
	ThumbnailWidth = 160
)

// Context carries the render target and its scale factor (target pixel width
// divided by the canonical slide width).
type Context struct {
	Target Target
	Scale  float64
}

// NewContext derives the scale factor from the target's live pixel width.
// Export contexts are always 1:1 with canonical units.
func NewContext(target Target, pixelWidth float64) Context {
	if target == Export {
		return Context{Target: Export, Scale: 1}
	}
	s := pixelWidth / domain.SlideWidth
	if s <= 0 {
		s = 0
	}
	return Context{Target: target, Scale: s}
}

// ExportContext is the canonical 1:1 context used by the exporters.
func ExportContext() Context { return Context{Target: Export, Scale: 1} }

// Fit says how content is placed in the box.
type Fit int

const (
	FitNone  Fit = iota
	FitCover     // images: fill the box, crop overflow, keep aspect ratio
	FitWrap      // text: wrap lines at the inner width
)

// Font is a resolved font.
type Font struct {
	Size      float64 // pixels in the target
	Bold      bool
	Italic    bool
	Underline bool
}

// Border is a resolved border; Width 0 means none. Radius also rounds the
// background and clips images.
type Border struct {
	Width  float64
	Radius float64
	Color  color.NRGBA
}

// VisualBox is everything a consumer needs to draw one element.
type VisualBox struct {
	ElementID string
	Type      domain.ElementType
	Rect      vector.Rect // pixels in the target, before rotation
	Rotation  float64     // degrees clockwise in [0,360), around Rect's centre
	Content   string
	Fit       Fit
	// Clip is always false: text may paint past its box.
	Clip       bool
	Padding    float64
	Font       Font
	Align      string
	Color      color.NRGBA
	Background color.NRGBA // transparent when unset
	Border     Border
}

// TextRect is the box minus padding; text wraps at its width.
func (v VisualBox) TextRect() vector.Rect { return v.Rect.Inset(v.Padding, v.Padding) }

// Project computes the visual box of el under ctx.
func Project(el domain.Element, ctx Context) VisualBox {
	s := ctx.Scale
	vb := VisualBox{
		ElementID: el.ID,
		Type:      el.Type,
		Rect:      vector.R(el.X, el.Y, max(el.Width, 0), max(el.Height, 0)).Scale(s),
		Rotation:  vector.NormalizeDegrees(el.Rotation),
		Content:   el.Content,
	}
	st := el.Style
	vb.Background = ParseColor(st.BackgroundColor, Transparent)
	// Thumbnails never draw borders.
	if ctx.Target != Thumbnail {
		if st.BorderRadius != nil && *st.BorderRadius > 0 {
			vb.Border.Radius = *st.BorderRadius * s
		}
		if st.BorderWidth != nil && *st.BorderWidth > 0 {
			vb.Border.Width = *st.BorderWidth * s
			vb.Border.Color = ParseColor(st.BorderColor, Black)
		}
	}
	switch el.Type {
	case domain.ElementImage:
		vb.Fit = FitCover
	default:
		vb.Fit = FitWrap
		vb.Padding = TextPadding * s
		vb.Font = resolveFont(st, ctx)
		vb.Align = resolveAlign(st.TextAlign)
		vb.Color = ParseColor(st.Color, Black)
	}
	return vb
}

func resolveFont(st domain.Style, ctx Context) Font {
	units, ok := st.FontSize.Units()
	if !ok {
		units, _ = domain.FontBase.Units()
	}
	f := Font{
		Size:      units * ctx.Scale,
		Bold:      st.FontWeight == domain.WeightBold,
		Italic:    st.FontStyle == domain.FontStyleItalic,
		Underline: st.TextDecoration == domain.DecorationUnderline,
	}
	if ctx.Target == Thumbnail {
		f.Size = ThumbnailFontPx
	}
	return f
}

func resolveAlign(a string) string {
	switch a {
	case domain.AlignCenter, domain.AlignRight:
		return a
	default:
		return domain.AlignLeft
	}
}

// SlideView is a projected slide: its frame, background and boxes in paint order.
type SlideView struct {
	SlideID    string
	Frame      vector.Rect
	Background color.NRGBA
	Boxes      []VisualBox
}

// ProjectSlide projects every element of sl in z-order.
func ProjectSlide(sl domain.Slide, ctx Context) SlideView {
	v := SlideView{
		SlideID:    sl.ID,
		Frame:      vector.R(0, 0, domain.SlideWidth*ctx.Scale, domain.SlideHeight*ctx.Scale),
		Background: ParseColor(sl.Background, White),
		Boxes:      make([]VisualBox, 0, len(sl.Elements)),
	}
	for _, el := range sl.Elements {
		v.Boxes = append(v.Boxes, Project(el, ctx))
	}
	return v
}

// ToCanonical converts a target pixel coordinate back into canonical units.
func (c Context) ToCanonical(p vector.Pt) vector.Pt {
	if c.Scale == 0 {
		return p
	}
	return vector.Pt{X: p.X / c.Scale, Y: p.Y / c.Scale}
}

// HitTest returns the topmost box containing p (target pixels), honouring
// rotation, or -1.
func (v SlideView) HitTest(p vector.Pt) int {
	for i := len(v.Boxes) - 1; i >= 0; i-- {
		b := v.Boxes[i]
		if b.Rect.ContainsRotated(p, b.Rotation) {
			return i
		}
	}
	return -1
}
