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
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/draw"

	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/textlayout"
	"goslidedeck/internal/version"
)

// PDFOptions controls PDF export. Units are points; one canonical slide unit
// is one point, so every page is 1000 x 562.5 pt.
type PDFOptions struct {
	// Images resolves image elements. Nil renders placeholders.
	Images ImageSource
	// Slides selects zero-based slide indexes; empty exports all.
	Slides []int
	// Uncompressed disables stream compression (useful for inspection).
	Uncompressed bool
}

// ExportPDF writes p as a multi-page PDF, one page per slide.
func ExportPDF(ctx context.Context, p domain.Presentation, w io.Writer, opt PDFOptions) error {
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: domain.SlideWidth, Ht: domain.SlideHeight},
		// "P" keeps Wd and Ht as given.
		OrientationStr: "P",
	})
	pdf.SetCompression(!opt.Uncompressed)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	title := p.Title
	if title == "" {
		title = "Untitled presentation"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("GoSlideDeck "+version.Version, true)

	pw := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), images: opt.Images, log: applog.WithComponent("export")}
	pc := projection.ExportContext()
	for _, idx := range slideIndexes(len(p.Slides), opt.Slides) {
		if idx < 0 || idx >= len(p.Slides) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		pw.page(ctx, idx, projection.ProjectSlide(p.Slides[idx], pc))
	}
	if pdf.PageCount() == 0 {
		return fmt.Errorf("no slides selected for export")
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportPDFFile is ExportPDF into a file, creating parent directories.
func ExportPDFFile(ctx context.Context, p domain.Presentation, outPath string, opt PDFOptions) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	var buf bytes.Buffer
	if err := ExportPDF(ctx, p, &buf, opt); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func slideIndexes(total int, specific []int) []int {
	if len(specific) == 0 {
		out := make([]int, total)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return specific
}

type pdfWriter struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	images ImageSource
	log    *slog.Logger
	seq    int
}

func (pw *pdfWriter) page(ctx context.Context, idx int, v projection.SlideView) {
	pdf := pw.pdf
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: v.Frame.W, Ht: v.Frame.H})
	pw.fill(v.Background)
	pdf.Rect(0, 0, v.Frame.W, v.Frame.H, "F")
	pdf.SetAlpha(1, "Normal")

	for _, b := range v.Boxes {
		rotated := b.Rotation != 0
		if rotated {
			c := b.Rect.Center()
			pdf.TransformBegin()
			// gofpdf rotates counter-clockwise.
			pdf.TransformRotate(-b.Rotation, c.X, c.Y)
		}
		if b.Background.A > 0 {
			pw.fill(b.Background)
			pw.roundedRect(b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, b.Border.Radius, "F")
			pdf.SetAlpha(1, "Normal")
		}
		switch b.Type {
		case domain.ElementImage:
			pw.image(ctx, idx, b)
		default:
			pw.text(b)
		}
		if b.Border.Width > 0 {
			pw.stroke(b.Border.Color)
			pdf.SetLineWidth(b.Border.Width)
			// Stroke runs on the path centre; inset by half so it stays inside the box.
			h := b.Border.Width / 2
			pw.roundedRect(b.Rect.X+h, b.Rect.Y+h, b.Rect.W-2*h, b.Rect.H-2*h, max(b.Border.Radius-h, 0), "D")
			pdf.SetAlpha(1, "Normal")
		}
		if rotated {
			pdf.TransformEnd()
		}
	}
}

func (pw *pdfWriter) fill(c color.NRGBA) {
	pw.pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
	if c.A < 0xff {
		pw.pdf.SetAlpha(float64(c.A)/255, "Normal")
	}
}

func (pw *pdfWriter) stroke(c color.NRGBA) {
	pw.pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
	if c.A < 0xff {
		pw.pdf.SetAlpha(float64(c.A)/255, "Normal")
	}
}

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

func (pw *pdfWriter) roundedRect(x, y, w, h, r float64, style string) {
	pdf := pw.pdf
	if w <= 0 || h <= 0 {
		return
	}
	r = min(r, w/2, h/2)
	if r <= 0 {
		pdf.Rect(x, y, w, h, style)
		return
	}
	k := r * kappa
	pdf.MoveTo(x+r, y)
	pdf.LineTo(x+w-r, y)
	pdf.CurveBezierCubicTo(x+w-r+k, y, x+w, y+r-k, x+w, y+r)
	pdf.LineTo(x+w, y+h-r)
	pdf.CurveBezierCubicTo(x+w, y+h-r+k, x+w-r+k, y+h, x+w-r, y+h)
	pdf.LineTo(x+r, y+h)
	pdf.CurveBezierCubicTo(x+r-k, y+h, x, y+h-r+k, x, y+h-r)
	pdf.LineTo(x, y+r)
	pdf.CurveBezierCubicTo(x, y+r-k, x+r-k, y, x+r, y)
	pdf.ClosePath()
	pdf.DrawPath(style)
}

func (pw *pdfWriter) image(ctx context.Context, idx int, b projection.VisualBox) {
	pdf := pw.pdf
	if b.Rect.W <= 0 || b.Rect.H <= 0 {
		return
	}
	data, err := pw.coverPNG(ctx, b)
	if err != nil {
		pw.log.Debug("image placeholder", slog.Int("slide", idx+1), slog.String("element", b.ElementID), slog.Any("err", err))
		pw.fill(placeholder)
		pw.roundedRect(b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, b.Border.Radius, "F")
		return
	}
	pw.seq++
	name := fmt.Sprintf("img-%d-%d", idx, pw.seq)
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if b.Border.Radius > 0 {
		pdf.ClipRoundedRect(b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, min(b.Border.Radius, b.Rect.W/2, b.Rect.H/2), false)
		defer pdf.ClipEnd()
	}
	pdf.ImageOptions(name, b.Rect.X, b.Rect.Y, b.Rect.W, b.Rect.H, false, opts, 0, "")
}

// coverPNG crops the source to the box aspect ratio and encodes it as PNG.
// The crop is scaled so the embedded image has at most two pixels per point.
func (pw *pdfWriter) coverPNG(ctx context.Context, b projection.VisualBox) ([]byte, error) {
	if pw.images == nil {
		return nil, fmt.Errorf("no image source")
	}
	src, err := pw.images.Load(ctx, b.Content)
	if err != nil {
		return nil, err
	}
	sb := src.Bounds()
	crop := projection.CoverRect(sb.Dx(), sb.Dy(), b.Rect.W, b.Rect.H).Add(sb.Min)
	dw := min(crop.Dx(), max(int(b.Rect.W*2), 1))
	dh := max(int(float64(dw)*float64(crop.Dy())/float64(max(crop.Dx(), 1))), 1)
	dst := image.NewNRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, crop, draw.Src, nil)
	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (pw *pdfWriter) text(b projection.VisualBox) {
	pdf := pw.pdf
	if b.Content == "" || b.Font.Size <= 0 {
		return
	}
	style := ""
	if b.Font.Bold {
		style += "B"
	}
	if b.Font.Italic {
		style += "I"
	}
	if b.Font.Underline {
		style += "U"
	}
	pdf.SetFont("Helvetica", style, b.Font.Size)
	pdf.SetTextColor(int(b.Color.R), int(b.Color.G), int(b.Color.B))
	if b.Color.A < 0xff {
		pdf.SetAlpha(float64(b.Color.A)/255, "Normal")
		defer pdf.SetAlpha(1, "Normal")
	}
	m := textlayout.FuncMeasurer{Width: func(s string) float64 { return pdf.GetStringWidth(pw.tr(s)) }, Height: b.Font.Size * 1.2}
	tr := b.TextRect()
	blk := textlayout.Wrap(m, b.Content, tr.W)
	top := tr.Y + (tr.H-blk.Height)/2
	for i, ln := range blk.Lines {
		x := tr.X + textlayout.AlignOffset(b.Align, ln.Width, tr.W)
		// Baseline sits a little below the middle of the line box.
		base := top + (float64(i)+0.5)*blk.LineHeight + b.Font.Size*0.35
		pdf.Text(x, base, pw.tr(ln.Text))
	}
}
