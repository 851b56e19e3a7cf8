/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package serial

import (
	"bytes"
	"encoding/json"
	"fmt"

	"goslidedeck/internal/domain"
)

// newID is swapped in tests to force collisions.
var newID = domain.NewID

// Candidate is an element proposed by an external generator. Id and rotation
// may be present in the payload but are never trusted.
type Candidate struct {
	ID       string             `json:"id,omitempty"`
	Type     domain.ElementType `json:"type"`
	X        float64            `json:"x"`
	Y        float64            `json:"y"`
	Width    float64            `json:"width"`
	Height   float64            `json:"height"`
	Rotation *float64           `json:"rotation,omitempty"`
	Content  string             `json:"content"`
	Style    domain.Style       `json:"style"`
}

// GeneratedBatch is a normalised element list ready for
// Store.ReplaceSlideElements. Only NormalizeGeneratedElements produces one.
type GeneratedBatch struct {
	elements []domain.Element
	valid    bool
}

// Valid reports whether the batch came out of NormalizeGeneratedElements.
func (b GeneratedBatch) Valid() bool { return b.valid }

// Len is the number of elements in the batch.
func (b GeneratedBatch) Len() int { return len(b.elements) }

// Elements returns a deep copy of the normalised elements.
func (b GeneratedBatch) Elements() []domain.Element {
	out := make([]domain.Element, len(b.elements))
	for i, e := range b.elements {
		out[i] = e.Clone()
	}
	return out
}

// ParseGenerated decodes a generator payload. Accepted shapes are
// {"elements":[...]} and a bare array; anything else is a GenerationFailure.
// Markdown code fences around the JSON are tolerated.
func ParseGenerated(data []byte) ([]Candidate, error) {
	data = stripFence(bytes.TrimSpace(data))
	if len(data) == 0 {
		return nil, &GenerationFailure{Reason: "empty payload"}
	}
	var cands []Candidate
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &cands); err != nil {
			return nil, &GenerationFailure{Reason: "decode element list", Err: err}
		}
	case '{':
		var env struct {
			Elements *json.RawMessage `json:"elements"`
		}
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, &GenerationFailure{Reason: "decode payload", Err: err}
		}
		if env.Elements == nil {
			return nil, &GenerationFailure{Reason: `payload has no "elements" field`}
		}
		if err := json.Unmarshal(*env.Elements, &cands); err != nil {
			return nil, &GenerationFailure{Reason: `"elements" is not a list of elements`, Err: err}
		}
	default:
		return nil, &GenerationFailure{Reason: fmt.Sprintf("unexpected payload starting with %q", data[0])}
	}
	return cands, nil
}

func stripFence(b []byte) []byte {
	if !bytes.HasPrefix(b, []byte("```")) {
		return b
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	} else {
		return nil
	}
	b = bytes.TrimSpace(b)
	b = bytes.TrimSuffix(b, []byte("```"))
	return bytes.TrimSpace(b)
}

// NormalizeGeneratedElements turns candidates into store elements: every one
// gets a fresh id that inUse does not know and that is unique in the batch,
// rotation is forced to 0 and a missing colour becomes the default text
// colour. Geometry, content and the rest of the style are kept as supplied,
// except that negative sizes are clamped to 0.
func NormalizeGeneratedElements(cands []Candidate, inUse func(string) bool) GeneratedBatch {
	local := make(map[string]bool, len(cands))
	taken := func(id string) bool {
		if local[id] {
			return true
		}
		return inUse != nil && inUse(id)
	}
	out := make([]domain.Element, 0, len(cands))
	for _, c := range cands {
		id := domain.FreshID(taken, newID)
		local[id] = true
		st := c.Style.Clone()
		if st.Color == "" {
			st.Color = domain.DefaultTextColor
		}
		out = append(out, domain.Element{
			ID:       id,
			Type:     c.Type,
			X:        c.X,
			Y:        c.Y,
			Width:    max(c.Width, 0),
			Height:   max(c.Height, 0),
			Rotation: 0,
			Content:  c.Content,
			Style:    st,
		})
	}
	return GeneratedBatch{elements: out, valid: true}
}
