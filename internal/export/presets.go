/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/serial"
	"goslidedeck/internal/textlayout"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls a multi-format export of one deck.
//
// Layout under OutDir (default "exports/<preset>"):
//   - pdf:  deck.pdf
//   - json: deck.json
//   - png:  png/slide-NNN.png
//   - svg:  svg/slide-NNN.svg
type BatchOptions struct {
	Preset     PresetName
	Formats    []string // pdf, png, svg, json; empty means preset defaults
	OutDir     string
	PixelWidth float64 // png width; 0 means preset default
	Images     ImageSource
}

// BatchResult lists the files written.
type BatchResult struct {
	Files []string
}

// BatchExport runs every requested exporter for p.
func BatchExport(ctx context.Context, p domain.Presentation, r *Renderer, opt BatchOptions) (BatchResult, error) {
	var res BatchResult
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	out := opt.OutDir
	if out == "" {
		preset := string(opt.Preset)
		if preset == "" {
			preset = "default"
		}
		out = filepath.Join("exports", preset)
	}
	width := opt.PixelWidth
	if width <= 0 {
		width = presetPixelWidth(opt.Preset)
	}

	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "pdf":
			name := filepath.Join(out, "deck.pdf")
			if err := ExportPDFFile(ctx, p, name, PDFOptions{Images: opt.Images}); err != nil {
				return res, fmt.Errorf("pdf: %w", err)
			}
			res.Files = append(res.Files, name)
		case "json":
			if err := os.MkdirAll(out, 0o755); err != nil {
				return res, fmt.Errorf("ensure out dir: %w", err)
			}
			name := filepath.Join(out, "deck.json")
			if err := writeJSONFile(name, p); err != nil {
				return res, fmt.Errorf("json: %w", err)
			}
			res.Files = append(res.Files, name)
		case "png":
			if r == nil {
				return res, fmt.Errorf("png: no renderer")
			}
			paths, err := r.WriteSlidePNGs(ctx, p, filepath.Join(out, "png"), width)
			res.Files = append(res.Files, paths...)
			if err != nil {
				return res, fmt.Errorf("png: %w", err)
			}
		case "svg":
			var fonts *textlayout.FontLibrary
			if r != nil {
				fonts = r.fonts
			}
			paths, err := WriteSlideSVGs(p, filepath.Join(out, "svg"), fonts)
			res.Files = append(res.Files, paths...)
			if err != nil {
				return res, fmt.Errorf("svg: %w", err)
			}
		default:
			return res, fmt.Errorf("unknown format: %s", f)
		}
	}
	return res, nil
}

func writeJSONFile(name string, p domain.Presentation) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := serial.WriteJSON(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg", "json"}
	case PresetPrint:
		return []string{"pdf"}
	default:
		return []string{"pdf"}
	}
}

func presetPixelWidth(p PresetName) float64 {
	switch p {
	case PresetPrint:
		return 3000
	default:
		return 1920
	}
}
