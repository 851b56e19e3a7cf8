/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"

	"goslidedeck/internal/vector"
)

// roundMask is an alpha mask covering r with rounded corners. With ring > 0
// only a band of that width along the edge is covered.
type roundMask struct {
	r      vector.Rect
	radius float64
	ring   float64
}

func (m roundMask) ColorModel() color.Model { return color.AlphaModel }

func (m roundMask) Bounds() image.Rectangle { return pixelRect(m.r) }

func (m roundMask) At(x, y int) color.Color {
	px, py := float64(x)+0.5, float64(y)+0.5
	if !insideRounded(m.r, m.radius, px, py) {
		return color.Alpha{}
	}
	if m.ring > 0 {
		inner := m.r.Inset(m.ring, m.ring)
		if inner.W > 0 && inner.H > 0 && insideRounded(inner, max(m.radius-m.ring, 0), px, py) {
			return color.Alpha{}
		}
	}
	return color.Alpha{A: 0xff}
}

func insideRounded(r vector.Rect, radius, px, py float64) bool {
	if px < r.X || py < r.Y || px > r.X+r.W || py > r.Y+r.H {
		return false
	}
	radius = min(radius, r.W/2, r.H/2)
	if radius <= 0 {
		return true
	}
	cx := math.Min(math.Max(px, r.X+radius), r.X+r.W-radius)
	cy := math.Min(math.Max(py, r.Y+radius), r.Y+r.H-radius)
	dx, dy := px-cx, py-cy
	return dx*dx+dy*dy <= radius*radius
}

// maxPixel bounds pixel coordinates so out-of-range geometry cannot overflow int.
const maxPixel = 1 << 30

func pixelRect(r vector.Rect) image.Rectangle {
	return image.Rect(clampPixel(math.Floor(r.X)), clampPixel(math.Floor(r.Y)), clampPixel(math.Ceil(r.X+r.W)), clampPixel(math.Ceil(r.Y+r.H)))
}

func clampPixel(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Max(-maxPixel, math.Min(maxPixel, v)))
}

func fillMask(dst draw.Image, m roundMask, c color.Color) {
	b := m.Bounds().Intersect(dst.Bounds())
	if b.Empty() {
		return
	}
	draw.DrawMask(dst, b, image.NewUniform(c), image.Point{}, m, b.Min, draw.Over)
}

func fillRect(dst draw.Image, r vector.Rect, c color.Color) {
	b := pixelRect(r).Intersect(dst.Bounds())
	draw.Draw(dst, b, image.NewUniform(c), image.Point{}, draw.Over)
}
