/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"goslidedeck/internal/domain"
)

func TestRecordListPruneHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck"+DeckExt)
	h, err := Create(path, sampleDeck())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		h.Presentation.Title = []string{"one", "two", "three"}[i]
		if err := RecordSave(ctx, h, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("RecordSave: %v", err)
		}
	}
	// Another deck in the same directory has its own history.
	other := &DeckHandle{Path: filepath.Join(filepath.Dir(path), "other"+DeckExt), Presentation: domain.DefaultPresentation(nil)}
	_ = RecordSave(ctx, other, base)

	got, err := ListHistory(ctx, path, 10)
	if err != nil || len(got) != 3 {
		t.Fatalf("ListHistory: %d %v", len(got), err)
	}
	if got[0].Title != "three" || !got[0].TS.Equal(base.Add(2*time.Minute)) {
		t.Fatalf("newest first expected: %+v", got[0])
	}
	if got[0].Slides != 2 || got[0].Elements != 4 || got[0].Bytes == 0 || len(got[0].SHA256) != 64 {
		t.Fatalf("summary = %+v", got[0])
	}
	n, err := PruneHistory(ctx, path, 1)
	if err != nil || n != 2 {
		t.Fatalf("PruneHistory = %d, %v", n, err)
	}
	if got, _ := ListHistory(ctx, path, 10); len(got) != 1 || got[0].Title != "three" {
		t.Fatalf("after prune: %+v", got)
	}
	if got, _ := ListHistory(ctx, other.Path, 10); len(got) != 1 {
		t.Fatalf("other deck history touched: %+v", got)
	}
}
