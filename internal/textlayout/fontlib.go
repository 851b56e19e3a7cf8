/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"fmt"
	"math"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontLibrary holds the four variants of one family. Parsed fonts are shared;
// sized faces are not, see FaceCache.
type FontLibrary struct {
	mu    sync.RWMutex
	fonts map[variant]*opentype.Font
}

type variant struct{ bold, italic bool }

type faceKey struct {
	v    variant
	half int // size * 2
}

// NewFontLibrary returns an empty library.
func NewFontLibrary() *FontLibrary {
	return &FontLibrary{fonts: map[variant]*opentype.Font{}}
}

var (
	goOnce sync.Once
	goLib  *FontLibrary
	goErr  error
)

// GoFonts returns a shared library backed by the embedded Go fonts.
func GoFonts() (*FontLibrary, error) {
	goOnce.Do(func() {
		lib := NewFontLibrary()
		for _, src := range []struct {
			v    variant
			data []byte
		}{
			{variant{}, goregular.TTF},
			{variant{bold: true}, gobold.TTF},
			{variant{italic: true}, goitalic.TTF},
			{variant{bold: true, italic: true}, gobolditalic.TTF},
		} {
			if err := lib.add(src.v, src.data); err != nil {
				goErr = err
				return
			}
		}
		goLib = lib
	})
	return goLib, goErr
}

// LoadTTF loads a font file as the given variant, replacing what was there.
func (fl *FontLibrary) LoadTTF(bold, italic bool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %s: %w", path, err)
	}
	if err := fl.add(variant{bold: bold, italic: italic}, data); err != nil {
		return fmt.Errorf("parse font %s: %w", path, err)
	}
	return nil
}

func (fl *FontLibrary) add(v variant, data []byte) error {
	f, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.fonts[v] = f
	return nil
}

// Face returns a new face of sizePx pixels (72 DPI), rounded to half pixels.
// Missing variants fall back to regular.
func (fl *FontLibrary) Face(sizePx float64, bold, italic bool) (font.Face, error) {
	key := keyFor(sizePx, bold, italic)
	fl.mu.RLock()
	f := fl.fonts[key.v]
	if f == nil {
		f = fl.fonts[variant{}]
	}
	fl.mu.RUnlock()
	if f == nil {
		return nil, fmt.Errorf("font library: no regular face loaded")
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(key.half) / 2, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	return face, nil
}

func keyFor(sizePx float64, bold, italic bool) faceKey {
	if sizePx <= 0 {
		sizePx = 12
	}
	return faceKey{v: variant{bold: bold, italic: italic}, half: max(int(math.Round(sizePx*2)), 1)}
}

// FaceCache memoises faces for a single goroutine; opentype faces must not be
// shared between concurrent renders.
type FaceCache struct {
	lib   *FontLibrary
	faces map[faceKey]font.Face
}

// NewCache returns an empty face cache over the library.
func (fl *FontLibrary) NewCache() *FaceCache {
	return &FaceCache{lib: fl, faces: map[faceKey]font.Face{}}
}

// Face returns the cached face for the size and variant, creating it once.
func (c *FaceCache) Face(sizePx float64, bold, italic bool) (font.Face, error) {
	key := keyFor(sizePx, bold, italic)
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := c.lib.Face(sizePx, bold, italic)
	if err != nil {
		return nil, err
	}
	c.faces[key] = f
	return f, nil
}

// Close releases every cached face.
func (c *FaceCache) Close() {
	for k, f := range c.faces {
		_ = f.Close()
		delete(c.faces, k)
	}
}
