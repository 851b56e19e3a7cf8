/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package ui

import (
	"strconv"
	"strings"

	"goslidedeck/internal/domain"
)

// defaultOption is the select entry that leaves a style field unset.
const defaultOption = "(default)"

// fontSizeOptions lists the font size tokens offered by the properties panel.
func fontSizeOptions() []string {
	out := []string{defaultOption}
	for _, f := range domain.FontScale {
		units, _ := f.Units()
		out = append(out, string(f)+" ("+numberText(units)+")")
	}
	return out
}

// fontSizeFromOption maps a fontSizeOptions entry back to its token.
func fontSizeFromOption(opt string) domain.FontSize {
	tok, _, _ := strings.Cut(opt, " ")
	if tok == defaultOption {
		return ""
	}
	return domain.FontSize(tok)
}

func fontSizeOption(f domain.FontSize) string {
	if units, ok := f.Units(); ok {
		return string(f) + " (" + numberText(units) + ")"
	}
	return defaultOption
}

func numberText(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// parseNumber accepts plain decimal input; a trailing "°" or "px" is ignored.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "°"), "px")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
