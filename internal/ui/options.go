/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package ui is the desktop editor. The Fyne implementation is only built with
// -tags fyne and cgo; other builds get a stub Run that explains how to enable it.
package ui

import (
	"time"

	"goslidedeck/internal/editor"
)

// Options configures Run.
type Options struct {
	// DeckPath opens a deck at start; empty starts with the seed deck.
	DeckPath string
	Editor   editor.Options
	// Autosave interval; zero disables.
	Autosave time.Duration
	// PresentationWidth caps the render width in presentation mode.
	PresentationWidth int
}
