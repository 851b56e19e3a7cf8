//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package ui

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/editor"
	"goslidedeck/internal/interaction"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/vector"
)

var (
	canvasBackdrop = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	selectionColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
)

// SlideCanvas is the editor surface for the active slide. It letterboxes the
// slide into its own size and feeds pointer and key events to the session's
// interaction controller.
type SlideCanvas struct {
	widget.BaseWidget

	sess  *editor.Session
	frame vector.Rect // slide area in widget coordinates
	log   *slog.Logger

	// OnEdit is called on double tap over a text element.
	OnEdit func(elementID string)
}

var (
	_ desktop.Mouseable   = (*SlideCanvas)(nil)
	_ fyne.Draggable      = (*SlideCanvas)(nil)
	_ fyne.Focusable      = (*SlideCanvas)(nil)
	_ fyne.DoubleTappable = (*SlideCanvas)(nil)
)

// NewSlideCanvas returns an empty canvas; bind a session with SetSession.
func NewSlideCanvas() *SlideCanvas {
	c := &SlideCanvas{log: applog.WithComponent("ui.canvas")}
	c.ExtendBaseWidget(c)
	return c
}

// SetSession switches the canvas to another deck.
func (c *SlideCanvas) SetSession(s *editor.Session) {
	c.sess = s
	c.Refresh()
}

// RenderedWidth implements interaction.Canvas: the on-screen slide width.
func (c *SlideCanvas) RenderedWidth() float64 { return c.frame.W }

// MinSize keeps the slide legible.
func (c *SlideCanvas) MinSize() fyne.Size { return fyne.NewSize(480, 270) }

func (c *SlideCanvas) local(p fyne.Position) (float64, float64) {
	return float64(p.X) - c.frame.X, float64(p.Y) - c.frame.Y
}

func (c *SlideCanvas) MouseDown(e *desktop.MouseEvent) {
	if c.sess == nil || e.Button != desktop.MouseButtonPrimary {
		return
	}
	if cv := fyne.CurrentApp().Driver().CanvasForObject(c); cv != nil {
		cv.Focus(c)
	}
	x, y := c.local(e.Position)
	c.sess.Controller.PointerDownAt(x, y)
}

func (c *SlideCanvas) MouseUp(*desktop.MouseEvent) {
	if c.sess != nil {
		c.sess.Controller.PointerUp()
	}
}

func (c *SlideCanvas) Dragged(e *fyne.DragEvent) {
	if c.sess == nil {
		return
	}
	x, y := c.local(e.Position)
	c.sess.Controller.PointerMove(x, y)
}

func (c *SlideCanvas) DragEnd() {
	if c.sess != nil {
		c.sess.Controller.PointerUp()
	}
}

func (c *SlideCanvas) DoubleTapped(e *fyne.PointEvent) {
	if c.sess == nil || c.OnEdit == nil {
		return
	}
	t := c.sess.Controller.HitTest(c.local(e.Position))
	if t.ElementID == "" {
		return
	}
	if el, ok := c.sess.Store.Element(c.sess.Store.ActiveSlideID(), t.ElementID); ok && el.Type == domain.ElementText {
		c.OnEdit(t.ElementID)
	}
}

func (c *SlideCanvas) FocusGained()   {}
func (c *SlideCanvas) FocusLost()     {}
func (c *SlideCanvas) TypedRune(rune) {}

func (c *SlideCanvas) TypedKey(e *fyne.KeyEvent) {
	if c.sess != nil {
		c.sess.Controller.KeyDown(interaction.Key(e.Name))
	}
}

// selectionBounds is the selected element's axis-aligned box in widget
// coordinates.
func (c *SlideCanvas) selectionBounds() (vector.Rect, bool) {
	if c.sess == nil || c.frame.W <= 0 {
		return vector.Rect{}, false
	}
	st := c.sess.Store
	id := st.Selection()
	if id == "" {
		return vector.Rect{}, false
	}
	el, ok := st.Element(st.ActiveSlideID(), id)
	if !ok {
		return vector.Rect{}, false
	}
	b := projection.Project(el, projection.NewContext(projection.Editor, c.frame.W))
	r := b.Rect.RotatedBounds(b.Rotation)
	r.X += c.frame.X
	r.Y += c.frame.Y
	return r, true
}

func (c *SlideCanvas) renderSlide(w, h int) image.Image {
	if c.sess == nil || w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	_, sl := c.sess.Store.ActiveSlide()
	img, err := c.sess.Renderer().RenderSlide(context.Background(), sl, projection.NewContext(projection.Editor, float64(w)))
	if err != nil {
		c.log.Error("render slide failed", slog.String("slide", sl.ID), slog.Any("err", err))
		return image.NewRGBA(image.Rect(0, 0, w, h))
	}
	return img
}

// CreateRenderer draws the backdrop, the rendered slide and the selection box.
func (c *SlideCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(canvasBackdrop)
	slide := canvas.NewRaster(c.renderSlide)
	sel := canvas.NewRectangle(color.Transparent)
	sel.StrokeColor = selectionColor
	sel.StrokeWidth = 2
	sel.Hide()
	return &slideCanvasRenderer{c: c, bg: bg, slide: slide, sel: sel, objects: []fyne.CanvasObject{bg, slide, sel}}
}

type slideCanvasRenderer struct {
	c       *SlideCanvas
	bg      *canvas.Rectangle
	slide   *canvas.Raster
	sel     *canvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *slideCanvasRenderer) Destroy()                     {}
func (r *slideCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *slideCanvasRenderer) MinSize() fyne.Size           { return r.c.MinSize() }

func (r *slideCanvasRenderer) Refresh() {
	r.Layout(r.c.Size())
	r.slide.Refresh()
	canvas.Refresh(r.c)
}

func (r *slideCanvasRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	_, frame := interaction.Viewport(float64(size.Width), float64(size.Height))
	r.c.frame = frame
	r.slide.Move(fyne.NewPos(float32(frame.X), float32(frame.Y)))
	r.slide.Resize(fyne.NewSize(float32(frame.W), float32(frame.H)))

	if b, ok := r.c.selectionBounds(); ok {
		r.sel.Move(fyne.NewPos(float32(b.X), float32(b.Y)))
		r.sel.Resize(fyne.NewSize(float32(b.W), float32(b.H)))
		r.sel.Show()
	} else {
		r.sel.Hide()
	}
}

// presentView shows one slide letterboxed on black.
type presentView struct {
	widget.BaseWidget
	sess *editor.Session
	p    *interaction.Presenter
	maxW int // render width cap in pixels; 0 renders at full size
}

func newPresentView(s *editor.Session, p *interaction.Presenter, maxW int) *presentView {
	v := &presentView{sess: s, p: p, maxW: maxW}
	v.ExtendBaseWidget(v)
	return v
}

func (v *presentView) Tapped(*fyne.PointEvent) {
	v.p.Next()
	v.Refresh()
}

func (v *presentView) render(w, h int) image.Image {
	if v.maxW > 0 && w > v.maxW {
		h = h * v.maxW / w
		w = v.maxW
	}
	if w <= 0 || h <= 0 {
		return image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	pc, frame := interaction.Viewport(float64(w), float64(h))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	img, err := v.sess.Renderer().RenderSlide(context.Background(), v.p.Slide(), pc)
	if err != nil {
		return dst
	}
	off := image.Pt(int(frame.X), int(frame.Y))
	draw.Draw(dst, img.Bounds().Add(off), img, image.Point{}, draw.Src)
	return dst
}

func (v *presentView) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.Black)
	r := canvas.NewRaster(v.render)
	return &presentRenderer{v: v, bg: bg, r: r}
}

type presentRenderer struct {
	v  *presentView
	bg *canvas.Rectangle
	r  *canvas.Raster
}

func (r *presentRenderer) Destroy()                     {}
func (r *presentRenderer) Objects() []fyne.CanvasObject { return []fyne.CanvasObject{r.bg, r.r} }
func (r *presentRenderer) MinSize() fyne.Size           { return fyne.NewSize(320, 180) }
func (r *presentRenderer) Refresh()                     { r.r.Refresh() }

func (r *presentRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.r.Resize(size)
}
