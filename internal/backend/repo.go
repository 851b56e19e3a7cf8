/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package backend is the deck publish server and its client. Decks are
// uploaded through the import gate, stored as JSON and served back as JSON or
// rendered PDF.
package backend

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned for unknown publication ids.
var ErrNotFound = errors.New("publication not found")

// Publication is a stored deck.
type Publication struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slides    int       `json:"slides"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"-"`
}

// Repo persists publications.
type Repo interface {
	Create(ctx context.Context, p Publication) (Publication, error)
	List(ctx context.Context, limit int) ([]Publication, error)
	Get(ctx context.Context, id string) (Publication, error)
	Ping(ctx context.Context) error
}

func newID() string { return ulid.Make().String() }

// MemoryRepo keeps publications in memory; used by tests and `serve --memory`.
type MemoryRepo struct {
	mu   sync.RWMutex
	pubs map[string]Publication
	now  func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{pubs: map[string]Publication{}, now: time.Now}
}

func (m *MemoryRepo) Create(_ context.Context, p Publication) (Publication, error) {
	p.ID = newID()
	p.CreatedAt = m.now().UTC()
	p.Data = append([]byte(nil), p.Data...)
	m.mu.Lock()
	m.pubs[p.ID] = p
	m.mu.Unlock()
	return p, nil
}

// List returns publications newest first. ULIDs sort by creation time, which
// breaks ties between equal timestamps.
func (m *MemoryRepo) List(_ context.Context, limit int) ([]Publication, error) {
	m.mu.RLock()
	out := make([]Publication, 0, len(m.pubs))
	for _, p := range m.pubs {
		p.Data = nil
		out = append(out, p)
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryRepo) Get(_ context.Context, id string) (Publication, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.pubs[id]
	if !ok {
		return Publication{}, ErrNotFound
	}
	p.Data = append([]byte(nil), p.Data...)
	return p, nil
}

func (m *MemoryRepo) Ping(context.Context) error { return nil }
