/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "testing"

// fixed: every rune is 10px wide, lines are 20px high.
var fixed = FuncMeasurer{Width: func(s string) float64 { return float64(len([]rune(s))) * 10 }, Height: 20}

func TestWrapBreaksOnSpaces(t *testing.T) {
	b := Wrap(fixed, "aaa bbb ccc", 75)
	if len(b.Lines) != 2 || b.Lines[0].Text != "aaa bbb" || b.Lines[1].Text != "ccc" {
		t.Fatalf("unexpected lines: %+v", b.Lines)
	}
	if b.Width != 70 || b.Height != 40 {
		t.Fatalf("block size = %vx%v", b.Width, b.Height)
	}
}

func TestWrapKeepsLongWordsWhole(t *testing.T) {
	b := Wrap(fixed, "x supercalifragilistic y", 50)
	if len(b.Lines) != 3 || b.Lines[1].Text != "supercalifragilistic" {
		t.Fatalf("unexpected lines: %+v", b.Lines)
	}
	if b.Width <= 50 {
		t.Fatalf("long word should overflow, width = %v", b.Width)
	}
}

func TestWrapHonoursNewlines(t *testing.T) {
	b := Wrap(fixed, "one\n\ntwo", 0)
	if len(b.Lines) != 3 || b.Lines[1].Text != "" || b.Lines[2].Text != "two" {
		t.Fatalf("unexpected lines: %+v", b.Lines)
	}
}

func TestAlignOffset(t *testing.T) {
	if AlignOffset("center", 40, 100) != 30 || AlignOffset("right", 40, 100) != 60 || AlignOffset("", 40, 100) != 0 {
		t.Fatalf("unexpected offsets")
	}
}

func TestBasicMeasurerDeterministic(t *testing.T) {
	m := BasicMeasurer()
	if m.Advance("ABC") != m.Advance("A")+m.Advance("BC") {
		t.Fatalf("advances should add up for a monospace face")
	}
	if m.LineHeight() <= 0 {
		t.Fatalf("line height = %v", m.LineHeight())
	}
}

func TestGoFontsFaceCache(t *testing.T) {
	lib, err := GoFonts()
	if err != nil {
		t.Fatalf("GoFonts: %v", err)
	}
	cache := lib.NewCache()
	defer cache.Close()
	a, err := cache.Face(24, true, false)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	b, _ := cache.Face(24.1, true, false)
	if a != b {
		t.Fatalf("expected cached face for near-identical size")
	}
	if c, _ := cache.Face(24, false, false); c == a {
		t.Fatalf("regular and bold must not share a face")
	}
	small := mustFace(t, lib, 12)
	big := mustFace(t, lib, 48)
	if big.Advance("Slide") <= small.Advance("Slide") {
		t.Fatalf("larger face should measure wider")
	}
}

func mustFace(t *testing.T, lib *FontLibrary, px float64) FaceMeasurer {
	t.Helper()
	f, err := lib.Face(px, false, false)
	if err != nil {
		t.Fatalf("Face: %v", err)
	}
	return FaceMeasurer{Face: f}
}
