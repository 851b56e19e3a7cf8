/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/sync/errgroup"

	"goslidedeck/internal/domain"
	applog "goslidedeck/internal/log"
	"goslidedeck/internal/projection"
	"goslidedeck/internal/textlayout"
	"goslidedeck/internal/vector"
)

// placeholder is painted where an image cannot be loaded.
var placeholder = color.NRGBA{R: 0xe5, G: 0xe7, B: 0xeb, A: 0xff}

// Renderer rasterises projected slides. It is safe for concurrent use.
type Renderer struct {
	fonts  *textlayout.FontLibrary
	images ImageSource
	log    *slog.Logger
}

// NewRenderer returns a renderer using the embedded Go fonts. images may be
// nil, in which case image elements render as placeholders.
func NewRenderer(images ImageSource) (*Renderer, error) {
	lib, err := textlayout.GoFonts()
	if err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}
	return NewRendererWithFonts(lib, images), nil
}

// NewRendererWithFonts is NewRenderer with a caller-supplied font library.
func NewRendererWithFonts(lib *textlayout.FontLibrary, images ImageSource) *Renderer {
	return &Renderer{fonts: lib, images: images, log: applog.WithComponent("export")}
}

// RenderSlide paints sl under pc into a new image the size of the projected frame.
func (r *Renderer) RenderSlide(ctx context.Context, sl domain.Slide, pc projection.Context) (*image.RGBA, error) {
	v := projection.ProjectSlide(sl, pc)
	w := max(int(math.Round(v.Frame.W)), 1)
	h := max(int(math.Round(v.Frame.H)), 1)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(v.Background), image.Point{}, draw.Src)

	faces := r.fonts.NewCache()
	defer faces.Close()
	for _, b := range v.Boxes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if b.Rotation == 0 {
			r.drawBox(ctx, dst, faces, b)
			continue
		}
		layer := image.NewRGBA(dst.Bounds())
		r.drawBox(ctx, layer, faces, b)
		m := vector.RotateAround(b.Rect.Center(), vector.Radians(b.Rotation))
		draw.BiLinear.Transform(dst, f64.Aff3{m.A, m.C, m.E, m.B, m.D, m.F}, layer, layer.Bounds(), draw.Over, nil)
	}
	return dst, nil
}

// Thumbnail renders sl at rail size.
func (r *Renderer) Thumbnail(ctx context.Context, sl domain.Slide) (*image.RGBA, error) {
	return r.RenderSlide(ctx, sl, projection.NewContext(projection.Thumbnail, projection.ThumbnailWidth))
}

// RenderAll renders every slide of p under pc in parallel, at most limit at a
// time (GOMAXPROCS when limit <= 0). The result is in slide order.
func (r *Renderer) RenderAll(ctx context.Context, p domain.Presentation, pc projection.Context, limit int) ([]*image.RGBA, error) {
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	out := make([]*image.RGBA, len(p.Slides))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, sl := range p.Slides {
		g.Go(func() error {
			img, err := r.RenderSlide(gctx, sl, pc)
			if err != nil {
				return fmt.Errorf("slide %d: %w", i+1, err)
			}
			out[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// WriteSlidePNGs renders every slide at pixelWidth and writes
// slide-001.png, slide-002.png, ... into dir. It returns the written paths.
func (r *Renderer) WriteSlidePNGs(ctx context.Context, p domain.Presentation, dir string, pixelWidth float64) ([]string, error) {
	pc := projection.NewContext(projection.Presentation, pixelWidth)
	imgs, err := r.RenderAll(ctx, p, pc, 0)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	paths := make([]string, 0, len(imgs))
	for i, img := range imgs {
		name := filepath.Join(dir, fmt.Sprintf("slide-%03d.png", i+1))
		if err := writePNGFile(name, img); err != nil {
			return paths, err
		}
		paths = append(paths, name)
	}
	r.log.Info("slides written", slog.String("dir", dir), slog.Int("count", len(paths)))
	return paths, nil
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	bw := bufio.NewWriter(w)
	if err := png.Encode(bw, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return bw.Flush()
}

func writePNGFile(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create png: %w", err)
	}
	if err := EncodePNG(f, img); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close png: %w", err)
	}
	return nil
}

func (r *Renderer) drawBox(ctx context.Context, dst *image.RGBA, faces *textlayout.FaceCache, b projection.VisualBox) {
	shape := roundMask{r: b.Rect, radius: b.Border.Radius}
	if b.Background.A > 0 {
		fillMask(dst, shape, b.Background)
	}
	switch b.Type {
	case domain.ElementImage:
		r.drawImage(ctx, dst, b, shape)
	default:
		r.drawText(dst, faces, b)
	}
	if b.Border.Width > 0 {
		fillMask(dst, roundMask{r: b.Rect, radius: b.Border.Radius, ring: b.Border.Width}, b.Border.Color)
	}
}

func (r *Renderer) drawImage(ctx context.Context, dst *image.RGBA, b projection.VisualBox, shape roundMask) {
	dr := pixelRect(b.Rect).Intersect(dst.Bounds())
	if dr.Empty() {
		return
	}
	var (
		src image.Image
		err error
	)
	if r.images != nil {
		src, err = r.images.Load(ctx, b.Content)
	} else {
		err = fmt.Errorf("no image source")
	}
	if err != nil {
		r.log.Debug("image placeholder", slog.String("element", b.ElementID), slog.Any("err", err))
		fillMask(dst, shape, placeholder)
		return
	}
	full := pixelRect(b.Rect)
	sb := src.Bounds()
	crop := projection.CoverRect(sb.Dx(), sb.Dy(), float64(full.Dx()), float64(full.Dy())).Add(sb.Min)
	if crop.Empty() {
		fillMask(dst, shape, placeholder)
		return
	}
	// Map crop onto full but only materialise the visible part.
	sx := float64(full.Dx()) / float64(crop.Dx())
	sy := float64(full.Dy()) / float64(crop.Dy())
	s2d := f64.Aff3{
		sx, 0, float64(full.Min.X) - float64(crop.Min.X)*sx,
		0, sy, float64(full.Min.Y) - float64(crop.Min.Y)*sy,
	}
	tmp := image.NewRGBA(dr)
	draw.CatmullRom.Transform(tmp, s2d, src, crop, draw.Src, nil)
	draw.DrawMask(dst, dr, tmp, dr.Min, shape, dr.Min, draw.Over)
}

func (r *Renderer) drawText(dst *image.RGBA, faces *textlayout.FaceCache, b projection.VisualBox) {
	if b.Content == "" || b.Font.Size <= 0 {
		return
	}
	face, err := faces.Face(b.Font.Size, b.Font.Bold, b.Font.Italic)
	if err != nil {
		r.log.Warn("text skipped", slog.String("element", b.ElementID), slog.Any("err", err))
		return
	}
	tr := b.TextRect()
	blk := textlayout.Wrap(textlayout.FaceMeasurer{Face: face}, b.Content, tr.W)
	top := tr.Y + (tr.H-blk.Height)/2
	ascent := float64(face.Metrics().Ascent) / 64
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(b.Color), Face: face}
	thick := max(1, b.Font.Size/16)
	for i, ln := range blk.Lines {
		x := tr.X + textlayout.AlignOffset(b.Align, ln.Width, tr.W)
		base := top + float64(i)*blk.LineHeight + ascent
		d.Dot = fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(base * 64)}
		d.DrawString(ln.Text)
		if b.Font.Underline && ln.Width > 0 {
			fillRect(dst, vector.R(x, base+thick, ln.Width, thick), b.Color)
		}
	}
}
