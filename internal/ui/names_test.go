/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package ui

import (
	"image/color"
	"testing"

	"goslidedeck/internal/domain"
)

func TestFileNamesFromTitle(t *testing.T) {
	cases := map[string]string{
		"My Presentation":     "my-presentation",
		"  Q3 / Results!!  ":  "q3-results",
		"":                    "untitled",
		"***":                 "untitled",
		"Überblick 2025":      "überblick-2025",
	}
	for in, want := range cases {
		if got := slug(in); got != want {
			t.Errorf("slug(%q) = %q, want %q", in, got, want)
		}
	}
	if got := deckFileName("Talk"); got != "talk.deck.json" {
		t.Fatalf("deckFileName = %q", got)
	}
	if got := exportName("Talk", ".pdf"); got != "talk.pdf" {
		t.Fatalf("exportName = %q", got)
	}
}

func TestHexColorDropsAlpha(t *testing.T) {
	if got := hexColor(color.NRGBA{R: 0x12, G: 0xab, B: 0xff, A: 0x80}); got != "#12abff" {
		t.Fatalf("hexColor = %q", got)
	}
	if got := hexColor(color.White); got != "#ffffff" {
		t.Fatalf("hexColor(white) = %q", got)
	}
}

func TestFontSizeOptionsRoundTrip(t *testing.T) {
	opts := fontSizeOptions()
	if opts[0] != defaultOption || len(opts) != len(domain.FontScale)+1 {
		t.Fatalf("options = %v", opts)
	}
	for _, f := range domain.FontScale {
		if got := fontSizeFromOption(fontSizeOption(f)); got != f {
			t.Fatalf("%s round-tripped to %q", f, got)
		}
	}
	if fontSizeOption("gigantic") != defaultOption || fontSizeFromOption(defaultOption) != "" {
		t.Fatalf("unknown token should map to the default option")
	}
	if fontSizeOption(domain.Font5XL) != "5xl (48)" {
		t.Fatalf("5xl option = %q", fontSizeOption(domain.Font5XL))
	}
}

func TestParseNumber(t *testing.T) {
	for in, want := range map[string]float64{"10": 10, " 12.5 ": 12.5, "45°": 45, "3px": 3, "-20": -20} {
		if v, ok := parseNumber(in); !ok || v != want {
			t.Fatalf("parseNumber(%q) = %v %v", in, v, ok)
		}
	}
	if _, ok := parseNumber("ten"); ok {
		t.Fatalf("non-numeric input accepted")
	}
}
