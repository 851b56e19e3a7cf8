/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageSource resolves the content of an image element to pixels.
type ImageSource interface {
	Load(ctx context.Context, ref string) (image.Image, error)
}

// Loader loads http(s) URLs, data: URLs and local paths (relative paths are
// resolved against BaseDir). Decoded images are memoised per reference.
type Loader struct {
	BaseDir  string
	Client   *http.Client
	MaxBytes int64

	mu    sync.Mutex
	cache map[string]image.Image
}

// NewLoader returns a loader with a 20s HTTP timeout and a 32 MiB size cap.
func NewLoader(baseDir string) *Loader {
	return &Loader{BaseDir: baseDir, Client: &http.Client{Timeout: 20 * time.Second}, MaxBytes: 32 << 20}
}

func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty image reference")
	}
	l.mu.Lock()
	if img, ok := l.cache[ref]; ok {
		l.mu.Unlock()
		return img, nil
	}
	l.mu.Unlock()

	data, err := l.fetch(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", shortRef(ref), err)
	}
	l.mu.Lock()
	if l.cache == nil {
		l.cache = map[string]image.Image{}
	}
	l.cache[ref] = img
	l.mu.Unlock()
	return img, nil
}

func (l *Loader) limit() int64 {
	if l.MaxBytes > 0 {
		return l.MaxBytes
	}
	return 32 << 20
}

func (l *Loader) fetch(ctx context.Context, ref string) ([]byte, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURL(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		client := l.Client
		if client == nil {
			client = http.DefaultClient
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("fetch image %s: %s", ref, resp.Status)
		}
		return io.ReadAll(io.LimitReader(resp.Body, l.limit()))
	default:
		p := ref
		if u, err := url.Parse(ref); err == nil && u.Scheme == "file" {
			p = u.Path
		}
		if !filepath.IsAbs(p) && l.BaseDir != "" {
			p = filepath.Join(l.BaseDir, p)
		}
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open image: %w", err)
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, l.limit()))
	}
}

func decodeDataURL(ref string) ([]byte, error) {
	comma := strings.IndexByte(ref, ',')
	if comma < 0 {
		return nil, fmt.Errorf("malformed data URL")
	}
	meta, payload := ref[len("data:"):comma], ref[comma+1:]
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("data URL: %w", err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URL: %w", err)
	}
	return []byte(s), nil
}

func shortRef(ref string) string {
	if len(ref) > 48 {
		return ref[:48] + "..."
	}
	return ref
}
