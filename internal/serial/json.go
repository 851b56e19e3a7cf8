/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package serial is the gateway between the deck model and the outside world.
// Every document or generated element list enters the store through this
// package: imports are validated into a Document, generated candidates are
// normalised into a GeneratedBatch. The store accepts nothing else.
package serial

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"goslidedeck/internal/domain"
)

// maxDocumentBytes bounds ReadDocument; decks with embedded data URLs can be large.
const maxDocumentBytes = 64 << 20

// Document is a validated presentation ready for Store.ReplaceAll.
// The zero value is not valid; only ImportJSON produces usable documents.
type Document struct {
	p     domain.Presentation
	valid bool
}

// Valid reports whether the document came out of ImportJSON.
func (d Document) Valid() bool { return d.valid }

// Presentation returns a deep copy of the validated content.
func (d Document) Presentation() domain.Presentation { return d.p.Clone() }

// Title is the document title.
func (d Document) Title() string { return d.p.Title }

// ExportJSON renders the presentation as indented JSON. Nil slices are written
// as empty arrays so that the output always parses back into the same model.
func ExportJSON(p domain.Presentation) ([]byte, error) {
	c := p.Clone()
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal presentation: %w", err)
	}
	return b, nil
}

// WriteJSON writes ExportJSON output followed by a newline.
func WriteJSON(w io.Writer, p domain.Presentation) error {
	b, err := ExportJSON(p)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

// ImportJSON parses and validates a presentation document. Only the top-level
// contract is checked (title is a string, slides is a non-empty array of
// objects); element fields are accepted as they come.
func ImportJSON(data []byte) (Document, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Document{}, malformed("empty document", nil)
	}
	if !json.Valid(data) {
		return Document{}, malformed("not valid JSON", nil)
	}
	sch, err := compiledSchema()
	if err != nil {
		return Document{}, fmt.Errorf("compile document schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, malformed("schema validation", err)
	}
	if !res.Valid() {
		var reasons []string
		for _, e := range res.Errors() {
			reasons = append(reasons, e.String())
		}
		return Document{}, malformed(strings.Join(reasons, "; "), nil)
	}
	var p domain.Presentation
	if err := json.Unmarshal(data, &p); err != nil {
		return Document{}, malformed("decode presentation", err)
	}
	// Clone normalises nil element slices to empty ones.
	return Document{p: p.Clone(), valid: true}, nil
}

// ReadDocument reads r fully and passes it to ImportJSON.
func ReadDocument(r io.Reader) (Document, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxDocumentBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	if len(b) > maxDocumentBytes {
		return Document{}, malformed("document too large", nil)
	}
	return ImportJSON(b)
}
