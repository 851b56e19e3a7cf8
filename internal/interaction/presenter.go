/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package interaction

import (
	"sync"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/vector"
)

// Presenter drives full-screen presentation mode over a snapshot of the deck.
// It always starts at the first slide.
type Presenter struct {
	mu     sync.Mutex
	pres   domain.Presentation
	index  int
	onExit func()
}

// NewPresenter snapshots p. onExit runs when the user leaves the presentation.
func NewPresenter(p domain.Presentation, onExit func()) *Presenter {
	return &Presenter{pres: p.Clone(), onExit: onExit}
}

// Index is the shown slide.
func (p *Presenter) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Slide returns the shown slide.
func (p *Presenter) Slide() domain.Slide {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pres.Slides[p.index]
}

func (p *Presenter) step(d int) {
	p.mu.Lock()
	p.index = max(0, min(p.index+d, len(p.pres.Slides)-1))
	p.mu.Unlock()
}

// Next advances; it stays on the last slide.
func (p *Presenter) Next() { p.step(1) }

// Prev goes back; it stays on the first slide.
func (p *Presenter) Prev() { p.step(-1) }

// KeyDown handles Right/Space, Left and Escape.
func (p *Presenter) KeyDown(k Key) bool {
	switch k {
	case KeyRight, KeySpace:
		p.Next()
	case KeyLeft:
		p.Prev()
	case KeyEscape:
		if p.onExit != nil {
			p.onExit()
		}
	default:
		return false
	}
	return true
}

// Viewport fits the 16:9 slide into a viewW x viewH window. It returns the
// presentation context and the letterboxed frame in window pixels.
func Viewport(viewW, viewH float64) (projection.Context, vector.Rect) {
	s := min(viewW/domain.SlideWidth, viewH/domain.SlideHeight)
	if s < 0 {
		s = 0
	}
	w, h := domain.SlideWidth*s, domain.SlideHeight*s
	ctx := projection.NewContext(projection.Presentation, w)
	return ctx, vector.R((viewW-w)/2, (viewH-h)/2, w, h)
}
