/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package projection

import (
	"image/color"
	"strconv"
	"strings"
)

var (
	Black       = color.NRGBA{A: 0xff}
	White       = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	Transparent = color.NRGBA{}
)

var named = map[string]color.NRGBA{
	"black":       Black,
	"white":       White,
	"transparent": Transparent,
	"red":         {R: 0xff, A: 0xff},
	"green":       {G: 0x80, A: 0xff},
	"blue":        {B: 0xff, A: 0xff},
	"gray":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"grey":        {R: 0x80, G: 0x80, B: 0x80, A: 0xff},
	"yellow":      {R: 0xff, G: 0xff, A: 0xff},
	"orange":      {R: 0xff, G: 0xa5, A: 0xff},
	"purple":      {R: 0x80, B: 0x80, A: 0xff},
}

// ParseColor resolves a CSS colour string: #rgb, #rgba, #rrggbb, #rrggbbaa,
// rgb(), rgba() and a few names. Anything else yields def.
func ParseColor(s string, def color.NRGBA) color.NRGBA {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return def
	}
	if c, ok := named[s]; ok {
		return c
	}
	if strings.HasPrefix(s, "#") {
		if c, ok := parseHex(s[1:]); ok {
			return c
		}
		return def
	}
	if c, ok := parseFunc(s); ok {
		return c
	}
	return def
}

func parseHex(h string) (color.NRGBA, bool) {
	switch len(h) {
	case 3, 4:
		var b [4]uint8
		b[3] = 0xff
		for i := 0; i < len(h); i++ {
			v, err := strconv.ParseUint(h[i:i+1], 16, 8)
			if err != nil {
				return color.NRGBA{}, false
			}
			b[i] = uint8(v * 17)
		}
		return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, true
	case 6, 8:
		var b [4]uint8
		b[3] = 0xff
		for i := 0; i < len(h)/2; i++ {
			v, err := strconv.ParseUint(h[2*i:2*i+2], 16, 8)
			if err != nil {
				return color.NRGBA{}, false
			}
			b[i] = uint8(v)
		}
		return color.NRGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, true
	}
	return color.NRGBA{}, false
}

func parseFunc(s string) (color.NRGBA, bool) {
	var body string
	switch {
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		body = s[5 : len(s)-1]
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		body = s[4 : len(s)-1]
	default:
		return color.NRGBA{}, false
	}
	parts := strings.Split(body, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.NRGBA{}, false
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		ch[i] = uint8(min(max(v, 0), 255))
	}
	a := uint8(0xff)
	if len(parts) == 4 {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, false
		}
		a = uint8(min(max(v, 0), 1)*255 + 0.5)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: a}, true
}
