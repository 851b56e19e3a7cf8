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
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/serial"
)

func box(x, y, w, h float64, bg string) domain.Element {
	return domain.Element{ID: "e", Type: domain.ElementText, X: x, Y: y, Width: w, Height: h, Style: domain.Style{BackgroundColor: bg}}
}

func near(c color.RGBA, want color.RGBA) bool {
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	return d(c.R, want.R) < 8 && d(c.G, want.G) < 8 && d(c.B, want.B) < 8
}

var (
	red   = color.RGBA{R: 0xff, A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
	green = color.RGBA{G: 0xff, A: 0xff}
)

func renderer(t *testing.T, src ImageSource) *Renderer {
	t.Helper()
	r, err := NewRenderer(src)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	return r
}

func pngDataURL(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestRenderSlideBackgroundAndBox(t *testing.T) {
	sl := domain.Slide{ID: "s", Background: "#ff0000", Elements: []domain.Element{box(100, 100, 200, 100, "#0000ff")}}
	img, err := renderer(t, nil).RenderSlide(context.Background(), sl, projection.NewContext(projection.Presentation, 1000))
	if err != nil {
		t.Fatalf("RenderSlide: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 1000 || b.Dy() != 563 {
		t.Fatalf("size = %v", b)
	}
	if c := img.RGBAAt(50, 50); !near(c, red) {
		t.Fatalf("background pixel = %v", c)
	}
	if c := img.RGBAAt(200, 150); !near(c, blue) {
		t.Fatalf("box pixel = %v", c)
	}
}

func TestRenderSlideRotatesAroundCentre(t *testing.T) {
	el := box(400, 200, 200, 20, "#0000ff")
	el.Rotation = 90
	sl := domain.Slide{ID: "s", Background: "#ff0000", Elements: []domain.Element{el}}
	img, err := renderer(t, nil).RenderSlide(context.Background(), sl, projection.ExportContext())
	if err != nil {
		t.Fatalf("RenderSlide: %v", err)
	}
	if c := img.RGBAAt(500, 150); !near(c, blue) {
		t.Fatalf("rotated box should cover (500,150), got %v", c)
	}
	if c := img.RGBAAt(420, 210); !near(c, red) {
		t.Fatalf("unrotated footprint should be background, got %v", c)
	}
}

func TestRenderImageCoverAndPlaceholder(t *testing.T) {
	img := domain.NewImageElement(pngDataURL(t, green))
	img.X, img.Y, img.Width, img.Height = 0, 0, 100, 100
	broken := domain.NewImageElement("missing.png")
	broken.X, broken.Y, broken.Width, broken.Height = 200, 0, 100, 100
	sl := domain.Slide{ID: "s", Background: "#ffffff", Elements: []domain.Element{img, broken}}

	out, err := renderer(t, NewLoader(t.TempDir())).RenderSlide(context.Background(), sl, projection.ExportContext())
	if err != nil {
		t.Fatalf("RenderSlide: %v", err)
	}
	if c := out.RGBAAt(50, 50); !near(c, green) {
		t.Fatalf("image pixel = %v", c)
	}
	ph := color.RGBA{R: placeholder.R, G: placeholder.G, B: placeholder.B, A: 0xff}
	if c := out.RGBAAt(250, 50); !near(c, ph) {
		t.Fatalf("placeholder pixel = %v", c)
	}
}

func TestRenderHugeImageElementClipsToFrame(t *testing.T) {
	doc, err := serial.ImportJSON([]byte(`{"title":"big","slides":[{"id":"s","background":"#ffffff","elements":[
		{"id":"i","type":"image","x":0,"y":0,"width":100000000,"height":100000000,"content":"` + pngDataURL(t, green) + `","style":{}}]}]}`))
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	sl := doc.Presentation().Slides[0]
	out, err := renderer(t, NewLoader(t.TempDir())).RenderSlide(context.Background(), sl, projection.ExportContext())
	if err != nil {
		t.Fatalf("RenderSlide: %v", err)
	}
	if c := out.RGBAAt(500, 280); !near(c, green) {
		t.Fatalf("huge image should cover the frame, got %v", c)
	}
	var buf bytes.Buffer
	if err := ExportPDF(context.Background(), doc.Presentation(), &buf, PDFOptions{Images: NewLoader(t.TempDir())}); err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
}

func TestRenderTextPaintsGlyphs(t *testing.T) {
	el := domain.NewTextElement()
	el.Content = "HELLO"
	el.Style.FontSize = domain.Font4XL
	sl := domain.Slide{ID: "s", Background: "#ffffff", Elements: []domain.Element{el}}
	img, err := renderer(t, nil).RenderSlide(context.Background(), sl, projection.ExportContext())
	if err != nil {
		t.Fatalf("RenderSlide: %v", err)
	}
	dark := 0
	for y := 50; y < 100; y++ {
		for x := 50; x < 350; x++ {
			if c := img.RGBAAt(x, y); c.R < 100 && c.G < 100 && c.B < 100 {
				dark++
			}
		}
	}
	if dark < 50 {
		t.Fatalf("expected glyph pixels in the text box, got %d", dark)
	}
}

func TestThumbnailSizeAndRenderAll(t *testing.T) {
	p := domain.DefaultPresentation(nil)
	p.Slides = append(p.Slides, domain.NewSlide("second"))
	r := renderer(t, nil)
	th, err := r.Thumbnail(context.Background(), p.Slides[0])
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if b := th.Bounds(); b.Dx() != 160 || b.Dy() != 90 {
		t.Fatalf("thumbnail size = %v", b)
	}
	imgs, err := r.RenderAll(context.Background(), p, projection.NewContext(projection.Thumbnail, 160), 2)
	if err != nil || len(imgs) != 2 || imgs[1] == nil {
		t.Fatalf("RenderAll: %v %d", err, len(imgs))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RenderAll(ctx, p, projection.ExportContext(), 1); err == nil {
		t.Fatalf("expected cancellation error")
	}
}

func TestWriteSlidePNGs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "png")
	p := domain.DefaultPresentation(nil)
	paths, err := renderer(t, nil).WriteSlidePNGs(context.Background(), p, dir, 320)
	if err != nil || len(paths) != 1 || filepath.Base(paths[0]) != "slide-001.png" {
		t.Fatalf("WriteSlidePNGs: %v %v", paths, err)
	}
	f, err := os.Open(paths[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil || cfg.Width != 320 || cfg.Height != 180 {
		t.Fatalf("png config = %+v %v", cfg, err)
	}
}

func TestExportPDF(t *testing.T) {
	p := domain.DefaultPresentation(nil)
	el := domain.NewTextElement()
	el.Content = "Hello PDF"
	el.Rotation = 15
	el.Style.BorderWidth = domain.Float(2)
	el.Style.BorderRadius = domain.Float(8)
	el.Style.BackgroundColor = "rgba(0,0,255,0.5)"
	img := domain.NewImageElement(pngDataURL(t, green))
	img.Style.BorderRadius = domain.Float(12)
	second := domain.NewSlide("second")
	second.Elements = []domain.Element{el, img}
	p.Slides = append(p.Slides, second)

	var buf bytes.Buffer
	if err := ExportPDF(context.Background(), p, &buf, PDFOptions{Images: NewLoader(""), Uncompressed: true}); err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	out := buf.Bytes()
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("not a pdf")
	}
	if !bytes.Contains(out, []byte("Hello PDF")) {
		t.Fatalf("text not found in uncompressed pdf")
	}
	if pages := bytes.Count(out, []byte("/Type /Page")) - bytes.Count(out, []byte("/Type /Pages")); pages != 2 {
		t.Fatalf("pages = %d", pages)
	}

	if err := ExportPDF(context.Background(), p, &bytes.Buffer{}, PDFOptions{Slides: []int{9}}); err == nil {
		t.Fatalf("expected error when no slide is selected")
	}
}

func TestExportPDFFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "nested", "deck.pdf")
	if err := ExportPDFFile(context.Background(), domain.DefaultPresentation(nil), name, PDFOptions{}); err != nil {
		t.Fatalf("ExportPDFFile: %v", err)
	}
	if st, err := os.Stat(name); err != nil || st.Size() == 0 {
		t.Fatalf("pdf missing: %v", err)
	}
}

func TestWriteSlideSVG(t *testing.T) {
	el := domain.NewTextElement()
	el.Content = "a < b & c"
	el.Rotation = 30
	el.Style.TextAlign = domain.AlignCenter
	img := domain.NewImageElement("https://example.com/x.png?a=1&b=2")
	img.Style.BorderRadius = domain.Float(6)
	sl := domain.Slide{ID: "s", Background: "#112233", Elements: []domain.Element{el, img}}

	var buf bytes.Buffer
	if err := WriteSlideSVG(&buf, sl, nil); err != nil {
		t.Fatalf("WriteSlideSVG: %v", err)
	}
	s := buf.String()
	for _, want := range []string{
		`viewBox="0 0 1000 562.5"`,
		`fill="#112233"`,
		`rotate(30 200 75)`,
		`a &lt; b &amp; c`,
		`text-anchor="middle"`,
		`preserveAspectRatio="xMidYMid slice"`,
		`clip-path="url(#clip-1)"`,
		`x.png?a=1&amp;b=2`,
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("svg missing %q:\n%s", want, s)
		}
	}
}

func TestBatchExportWebPreset(t *testing.T) {
	dir := t.TempDir()
	res, err := BatchExport(context.Background(), domain.DefaultPresentation(nil), renderer(t, nil), BatchOptions{Preset: PresetWeb, OutDir: dir, PixelWidth: 200})
	if err != nil {
		t.Fatalf("BatchExport: %v", err)
	}
	want := []string{
		filepath.Join(dir, "png", "slide-001.png"),
		filepath.Join(dir, "svg", "slide-001.svg"),
		filepath.Join(dir, "deck.json"),
	}
	if len(res.Files) != len(want) {
		t.Fatalf("files = %v", res.Files)
	}
	for i, w := range want {
		if res.Files[i] != w {
			t.Fatalf("file %d = %s, want %s", i, res.Files[i], w)
		}
		if _, err := os.Stat(w); err != nil {
			t.Fatalf("stat %s: %v", w, err)
		}
	}
	if _, err := BatchExport(context.Background(), domain.DefaultPresentation(nil), nil, BatchOptions{Formats: []string{"cbz"}, OutDir: dir}); err == nil {
		t.Fatalf("unknown format should fail")
	}
}

func TestLoaderResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	if err := os.WriteFile(filepath.Join(dir, "pic.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	l := NewLoader(dir)
	got, err := l.Load(context.Background(), "pic.png")
	if err != nil || got.Bounds().Dx() != 3 {
		t.Fatalf("Load: %v", err)
	}
	if _, err := l.Load(context.Background(), "data:image/png;base64,!!"); err == nil {
		t.Fatalf("bad data URL should fail")
	}
	if _, err := l.Load(context.Background(), "  "); err == nil {
		t.Fatalf("empty ref should fail")
	}
}
