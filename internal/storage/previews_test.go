/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"goslidedeck/internal/domain"
)

func TestPreviewsPutGetAndEvict(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.Setenv("GSD_PREVIEWS_MAX_BYTES", "100")

	key := func(w int) PreviewKey { return PreviewKey{Deck: "d", SlideHash: "h", W: w, H: w / 2} }
	for _, w := range []int{100, 200} {
		if err := PutPreview(ctx, dir, key(w), make([]byte, 40)); err != nil {
			t.Fatalf("put %d: %v", w, err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Touch the older one so the newer becomes the LRU victim.
	if b, err := GetPreview(ctx, dir, key(100)); err != nil || len(b) != 40 {
		t.Fatalf("get: %v %d", err, len(b))
	}
	time.Sleep(5 * time.Millisecond)
	if err := PutPreview(ctx, dir, key(300), make([]byte, 40)); err != nil {
		t.Fatalf("put 300: %v", err)
	}
	total, err := TotalPreviewBytes(ctx, dir)
	if err != nil || total > 100 {
		t.Fatalf("expected eviction to <=100 bytes, got %d (%v)", total, err)
	}
	if b, _ := GetPreview(ctx, dir, key(200)); b != nil {
		t.Fatalf("least recently used preview should be evicted")
	}
	if b, _ := GetPreview(ctx, dir, key(100)); b == nil {
		t.Fatalf("recently used preview should survive")
	}
	if n, err := DropDeckPreviews(ctx, dir, "d"); err != nil || n != 2 {
		t.Fatalf("DropDeckPreviews = %d, %v", n, err)
	}
}

func TestGetOrCreatePreview(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	k := PreviewKey{Deck: "d", SlideHash: SlideHash(domain.NewSlide("s")), W: 160, H: 90}
	calls := 0
	gen := func(context.Context) ([]byte, error) { calls++; return []byte("png"), nil }
	for i := 0; i < 2; i++ {
		b, err := GetOrCreatePreview(ctx, dir, k, gen)
		if err != nil || string(b) != "png" {
			t.Fatalf("GetOrCreatePreview: %q %v", b, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator called %d times", calls)
	}
	boom := errors.New("boom")
	k.W = 320
	if _, err := GetOrCreatePreview(ctx, dir, k, func(context.Context) ([]byte, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected generator error, got %v", err)
	}
}

func TestSlideHashTracksContent(t *testing.T) {
	a := domain.NewSlide("s")
	b := domain.NewSlide("s")
	if SlideHash(a) != SlideHash(b) {
		t.Fatalf("equal slides must hash equal")
	}
	b.Elements = append(b.Elements, domain.NewTextElement())
	if SlideHash(a) == SlideHash(b) {
		t.Fatalf("edit must change the hash")
	}
}

func TestMaxPreviewsBytesFromEnv(t *testing.T) {
	t.Setenv("GSD_PREVIEWS_MAX_BYTES", "")
	if MaxPreviewsBytesFromEnv() != defaultPreviewsMaxBytes {
		t.Fatalf("default expected")
	}
	t.Setenv("GSD_PREVIEWS_MAX_BYTES", "nope")
	if MaxPreviewsBytesFromEnv() != defaultPreviewsMaxBytes {
		t.Fatalf("invalid value should fall back to default")
	}
	t.Setenv("GSD_PREVIEWS_MAX_BYTES", "123")
	if MaxPreviewsBytesFromEnv() != 123 {
		t.Fatalf("override ignored")
	}
}
