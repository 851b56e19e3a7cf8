/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package deck

import "goslidedeck/internal/domain"

// Ptr returns a pointer to v; handy for building patches.
func Ptr[T any](v T) *T { return &v }

// ElementPatch lists the fields UpdateElement should change. Nil fields are
// left alone.
type ElementPatch struct {
	X        *float64
	Y        *float64
	Width    *float64
	Height   *float64
	Rotation *float64
	Content  *string
	Style    *StylePatch
}

// StylePatch merges into an element's style field by field. Setting a string
// field to "" unsets it.
type StylePatch struct {
	FontSize          *domain.FontSize
	FontWeight        *string
	FontStyle         *string
	TextDecoration    *string
	Color             *string
	BackgroundColor   *string
	TextAlign         *string
	BorderColor       *string
	BorderWidth       *float64
	BorderRadius      *float64
	ClearBorderWidth  bool
	ClearBorderRadius bool
}

// MoveTo is the patch a drag produces: position only.
func MoveTo(x, y float64) ElementPatch { return ElementPatch{X: &x, Y: &y} }

// ResizeTo changes width and height only.
func ResizeTo(w, h float64) ElementPatch { return ElementPatch{Width: &w, Height: &h} }

// Empty reports whether the patch would change nothing.
func (p ElementPatch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.Rotation == nil && p.Content == nil && p.Style == nil
}

func (p ElementPatch) apply(e *domain.Element) {
	if p.X != nil {
		e.X = *p.X
	}
	if p.Y != nil {
		e.Y = *p.Y
	}
	if p.Width != nil {
		e.Width = max(*p.Width, 0)
	}
	if p.Height != nil {
		e.Height = max(*p.Height, 0)
	}
	if p.Rotation != nil {
		e.Rotation = *p.Rotation
	}
	if p.Content != nil {
		e.Content = *p.Content
	}
	if p.Style != nil {
		p.Style.apply(&e.Style)
	}
}

func (p StylePatch) apply(s *domain.Style) {
	if p.FontSize != nil {
		s.FontSize = *p.FontSize
	}
	setStr(&s.FontWeight, p.FontWeight)
	setStr(&s.FontStyle, p.FontStyle)
	setStr(&s.TextDecoration, p.TextDecoration)
	setStr(&s.Color, p.Color)
	setStr(&s.BackgroundColor, p.BackgroundColor)
	setStr(&s.TextAlign, p.TextAlign)
	setStr(&s.BorderColor, p.BorderColor)
	switch {
	case p.ClearBorderWidth:
		s.BorderWidth = nil
	case p.BorderWidth != nil:
		s.BorderWidth = domain.Float(*p.BorderWidth)
	}
	switch {
	case p.ClearBorderRadius:
		s.BorderRadius = nil
	case p.BorderRadius != nil:
		s.BorderRadius = domain.Float(*p.BorderRadius)
	}
}

func setStr(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
