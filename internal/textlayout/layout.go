/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Line breaking for text boxes. Measurement sits behind Measurer so the PNG
// renderer (x/image faces) and the PDF writer (gofpdf string widths) break
// lines the same way.

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Measurer reports text advances and line height in target pixels.
type Measurer interface {
	Advance(s string) float64
	LineHeight() float64
}

// Line is a single laid out line.
type Line struct {
	Text  string
	Width float64
}

// Block is the result of wrapping text into a width.
type Block struct {
	Lines      []Line
	Width      float64 // widest line
	Height     float64
	LineHeight float64
}

// Wrap breaks text on spaces and newlines so each line fits maxWidth. A word
// wider than maxWidth gets a line of its own and overflows; nothing is cut.
// maxWidth <= 0 disables wrapping.
func Wrap(m Measurer, text string, maxWidth float64) Block {
	lh := m.LineHeight()
	blk := Block{LineHeight: lh}
	space := m.Advance(" ")
	add := func(words []string, w float64) {
		blk.Lines = append(blk.Lines, Line{Text: strings.Join(words, " "), Width: w})
		blk.Width = max(blk.Width, w)
	}
	for _, para := range strings.Split(text, "\n") {
		var cur []string
		var curW float64
		for _, word := range strings.Fields(para) {
			w := m.Advance(word)
			if len(cur) > 0 && maxWidth > 0 && curW+space+w > maxWidth {
				add(cur, curW)
				cur, curW = nil, 0
			}
			if len(cur) > 0 {
				curW += space
			}
			cur = append(cur, word)
			curW += w
		}
		add(cur, curW)
	}
	blk.Height = float64(len(blk.Lines)) * lh
	return blk
}

// AlignOffset returns the x offset of a line of width lineW inside boxW.
func AlignOffset(align string, lineW, boxW float64) float64 {
	switch align {
	case "center":
		return (boxW - lineW) / 2
	case "right":
		return boxW - lineW
	default:
		return 0
	}
}

// FaceMeasurer measures with an x/image font face.
type FaceMeasurer struct{ Face font.Face }

func (f FaceMeasurer) Advance(s string) float64 {
	d := &font.Drawer{Face: f.Face}
	return float64(d.MeasureString(s)) / 64 // fixed.Int26_6 to px
}

func (f FaceMeasurer) LineHeight() float64 {
	return float64(f.Face.Metrics().Height) / 64
}

// BasicMeasurer uses basicfont.Face7x13 for deterministic tests.
func BasicMeasurer() FaceMeasurer { return FaceMeasurer{Face: basicfont.Face7x13} }

// FuncMeasurer adapts a width function, e.g. gofpdf's GetStringWidth.
type FuncMeasurer struct {
	Width  func(string) float64
	Height float64
}

func (f FuncMeasurer) Advance(s string) float64 { return f.Width(s) }
func (f FuncMeasurer) LineHeight() float64      { return f.Height }
