/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package domain

import "github.com/google/uuid"

const DefaultTitle = "Untitled Presentation"

// NewID returns a random UUID v4 string.
func NewID() string { return uuid.NewString() }

// FreshID draws ids from gen until one is not taken. gen defaults to NewID.
func FreshID(taken func(string) bool, gen func() string) string {
	if gen == nil {
		gen = NewID
	}
	for {
		id := gen()
		if id == "" {
			continue
		}
		if taken == nil || !taken(id) {
			return id
		}
	}
}

// NewSlide returns an empty white slide.
func NewSlide(id string) Slide {
	return Slide{ID: id, Background: DefaultBackground, Elements: []Element{}}
}

// NewTextElement returns the default text box used by "add text". The id is
// left empty; the store assigns it.
func NewTextElement() Element {
	return Element{
		Type:    ElementText,
		X:       50,
		Y:       50,
		Width:   300,
		Height:  50,
		Content: "New Text",
		Style:   Style{FontSize: FontLG, Color: DefaultTextColor},
	}
}

// NewImageElement returns the default image box for url.
func NewImageElement(url string) Element {
	return Element{
		Type:    ElementImage,
		X:       100,
		Y:       100,
		Width:   400,
		Height:  300,
		Content: url,
	}
}

// DefaultPresentation returns the seed deck shown when the editor starts
// without a document.
func DefaultPresentation(gen func() string) Presentation {
	if gen == nil {
		gen = NewID
	}
	return Presentation{
		Title: DefaultTitle,
		Slides: []Slide{{
			ID:         gen(),
			Background: DefaultBackground,
			Elements: []Element{
				{
					ID: gen(), Type: ElementText,
					X: 100, Y: 200, Width: 800, Height: 100,
					Content: "Welcome to ARADES PRA",
					Style:   Style{FontSize: Font5XL, FontWeight: WeightBold, TextAlign: AlignCenter, Color: DefaultTextColor},
				},
				{
					ID: gen(), Type: ElementText,
					X: 200, Y: 350, Width: 600, Height: 50,
					Content: "A new way to create presentations.",
					Style:   Style{FontSize: Font2XL, TextAlign: AlignCenter, Color: "#333333"},
				},
			},
		}},
	}
}
