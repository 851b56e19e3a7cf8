/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package generate produces slide content from a topic through an external
// model and feeds it back into the deck through the serial gateway.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"goslidedeck/internal/serial"
)

// ErrNotConfigured is wrapped by the GenerationFailure returned when no API
// key is available.
var ErrNotConfigured = errors.New("API key is not configured")

// Generator turns a topic into candidate elements. Implementations do no
// normalisation; the caller passes the result through the serial gateway.
type Generator interface {
	Generate(ctx context.Context, topic string) ([]serial.Candidate, error)
}

// Availability is implemented by generators that can tell up front whether a
// call could succeed.
type Availability interface {
	Configured() bool
}

const (
	DefaultModel   = "gemini-2.5-flash"
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultTimeout = 60 * time.Second
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Gemini calls the generateContent REST endpoint with a JSON response schema.
type Gemini struct {
	cfg    GeminiConfig
	client *http.Client
}

// NewGemini fills in defaults for empty fields.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gemini{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Configured reports whether an API key is set.
func (g *Gemini) Configured() bool { return strings.TrimSpace(g.cfg.APIKey) != "" }

// Prompt is the instruction sent for a topic.
func Prompt(topic string) string {
	return fmt.Sprintf("Generate content for a presentation slide about %q. "+
		"Provide a title and three key bullet points. The slide width is 1000px and height is 562.5px. "+
		"Place the title near the top and bullet points below it. "+
		`Format the response as a JSON object with a single key "elements" which is an array of objects. `+
		"Each object should have type ('text'), x, y, width, height, content, "+
		"and a style object with fontSize, fontWeight, and textAlign.", topic)
}

type schema struct {
	Type       string            `json:"type"`
	Properties map[string]schema `json:"properties,omitempty"`
	Items      *schema           `json:"items,omitempty"`
}

func responseSchema() schema {
	str := schema{Type: "STRING"}
	num := schema{Type: "NUMBER"}
	el := schema{Type: "OBJECT", Properties: map[string]schema{
		"type": str, "x": num, "y": num, "width": num, "height": num, "content": str,
		"style": {Type: "OBJECT", Properties: map[string]schema{"fontSize": str, "fontWeight": str, "textAlign": str}},
	}}
	return schema{Type: "OBJECT", Properties: map[string]schema{"elements": {Type: "ARRAY", Items: &el}}}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents         []content `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
		ResponseSchema   schema `json:"responseSchema"`
	} `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate asks the model for a title and three bullet points about topic.
// Every failure is a *serial.GenerationFailure.
func (g *Gemini) Generate(ctx context.Context, topic string) ([]serial.Candidate, error) {
	if !g.Configured() {
		return nil, &serial.GenerationFailure{Reason: "gemini", Err: ErrNotConfigured}
	}
	var body generateRequest
	body.Contents = []content{{Role: "user", Parts: []part{{Text: Prompt(topic)}}}}
	body.GenerationConfig.ResponseMimeType = "application/json"
	body.GenerationConfig.ResponseSchema = responseSchema()
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, &serial.GenerationFailure{Reason: "encode request", Err: err}
	}
	u := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.cfg.BaseURL, g.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(buf))
	if err != nil {
		return nil, &serial.GenerationFailure{Reason: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.cfg.APIKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &serial.GenerationFailure{Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &serial.GenerationFailure{Reason: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &serial.GenerationFailure{Reason: fmt.Sprintf("model returned %s", resp.Status)}
	}
	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return nil, &serial.GenerationFailure{Reason: "decode response", Err: err}
	}
	if len(gr.Candidates) == 0 {
		return nil, &serial.GenerationFailure{Reason: "model returned no candidates"}
	}
	var text strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return serial.ParseGenerated([]byte(text.String()))
}
