/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/textlayout"
)

// svgFontFamily names the fonts text is measured with first.
const svgFontFamily = "Go, Helvetica, Arial, sans-serif"

// WriteSlideSVG writes one slide as a standalone SVG in canonical units.
// Images are referenced, not embedded; cover fit maps to
// preserveAspectRatio="xMidYMid slice".
func WriteSlideSVG(w io.Writer, sl domain.Slide, fonts *textlayout.FontLibrary) error {
	v := projection.ProjectSlide(sl, projection.ExportContext())
	var faces *textlayout.FaceCache
	if fonts != nil {
		faces = fonts.NewCache()
		defer faces.Close()
	}

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\">\n", v.Frame.W, v.Frame.H, v.Frame.W, v.Frame.H)
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", v.Frame.W, v.Frame.H, svgColor(v.Background))

	for i, b := range v.Boxes {
		r := b.Rect
		if b.Rotation != 0 {
			c := r.Center()
			wf("  <g transform=\"rotate(%g %g %g)\">\n", b.Rotation, c.X, c.Y)
		} else {
			wf("  <g>\n")
		}
		rad := min(b.Border.Radius, r.W/2, r.H/2)
		if b.Background.A > 0 {
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" fill=\"%s\"%s/>\n", r.X, r.Y, r.W, r.H, rad, svgColor(b.Background), svgOpacity("fill-opacity", b.Background))
		}
		switch b.Type {
		case domain.ElementImage:
			clip := ""
			if rad > 0 {
				id := fmt.Sprintf("clip-%d", i)
				wf("    <clipPath id=\"%s\"><rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\"/></clipPath>\n", id, r.X, r.Y, r.W, r.H, rad)
				clip = fmt.Sprintf(" clip-path=\"url(#%s)\"", id)
			}
			wf("    <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" preserveAspectRatio=\"xMidYMid slice\" href=\"%s\"%s/>\n", r.X, r.Y, r.W, r.H, xmlEscape(b.Content), clip)
		default:
			svgText(wf, b, faces)
		}
		if b.Border.Width > 0 {
			h := b.Border.Width / 2
			wf("    <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" rx=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"%g\"%s/>\n",
				r.X+h, r.Y+h, max(r.W-2*h, 0), max(r.H-2*h, 0), max(rad-h, 0), svgColor(b.Border.Color), b.Border.Width, svgOpacity("stroke-opacity", b.Border.Color))
		}
		wf("  </g>\n")
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteSlideSVGs writes slide-001.svg, slide-002.svg, ... into dir.
func WriteSlideSVGs(p domain.Presentation, dir string, fonts *textlayout.FontLibrary) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	var paths []string
	for i, sl := range p.Slides {
		var buf bytes.Buffer
		if err := WriteSlideSVG(&buf, sl, fonts); err != nil {
			return paths, fmt.Errorf("slide %d: %w", i+1, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("slide-%03d.svg", i+1))
		if err := os.WriteFile(name, buf.Bytes(), 0o644); err != nil {
			return paths, fmt.Errorf("write svg: %w", err)
		}
		paths = append(paths, name)
	}
	return paths, nil
}

func svgText(wf func(string, ...any), b projection.VisualBox, faces *textlayout.FaceCache) {
	if b.Content == "" || b.Font.Size <= 0 {
		return
	}
	var m textlayout.Measurer = textlayout.FuncMeasurer{
		// Rough average glyph width when no font is available.
		Width:  func(s string) float64 { return float64(len([]rune(s))) * b.Font.Size * 0.55 },
		Height: b.Font.Size * 1.2,
	}
	if faces != nil {
		if face, err := faces.Face(b.Font.Size, b.Font.Bold, b.Font.Italic); err == nil {
			m = textlayout.FaceMeasurer{Face: face}
		}
	}
	tr := b.TextRect()
	blk := textlayout.Wrap(m, b.Content, tr.W)
	top := tr.Y + (tr.H-blk.Height)/2

	var attrs strings.Builder
	fmt.Fprintf(&attrs, " font-family=\"%s\" font-size=\"%g\" fill=\"%s\"", svgFontFamily, b.Font.Size, svgColor(b.Color))
	attrs.WriteString(svgOpacity("fill-opacity", b.Color))
	if b.Font.Bold {
		attrs.WriteString(" font-weight=\"bold\"")
	}
	if b.Font.Italic {
		attrs.WriteString(" font-style=\"italic\"")
	}
	if b.Font.Underline {
		attrs.WriteString(" text-decoration=\"underline\"")
	}
	anchor, ax := "start", tr.X
	switch b.Align {
	case domain.AlignCenter:
		anchor, ax = "middle", tr.X+tr.W/2
	case domain.AlignRight:
		anchor, ax = "end", tr.X+tr.W
	}
	wf("    <text%s text-anchor=\"%s\">\n", attrs.String(), anchor)
	for i, ln := range blk.Lines {
		base := top + (float64(i)+0.5)*blk.LineHeight + b.Font.Size*0.35
		wf("      <tspan x=\"%g\" y=\"%g\">%s</tspan>\n", ax, base, xmlEscape(ln.Text))
	}
	wf("    </text>\n")
}

func svgColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func svgOpacity(attr string, c color.NRGBA) string {
	if c.A == 0xff {
		return ""
	}
	return fmt.Sprintf(" %s=\"%.3g\"", attr, float64(c.A)/255)
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
