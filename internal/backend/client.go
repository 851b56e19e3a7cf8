/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"goslidedeck/internal/domain"
	"goslidedeck/internal/serial"
)

// Client talks to the publish server.
type Client struct {
	BaseURL string
	Token   string // bearer token
	client  *http.Client
}

// NewClient creates a new client. baseURL may include a trailing slash; it will be normalized.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Method, Path string
	Code         int
	Message      string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server %s %s: %d %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("server %s %s: %d", e.Method, e.Path, e.Code)
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	u, err := url.Parse(c.BaseURL + path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		se := &StatusError{Method: method, Path: u.Path, Code: resp.StatusCode}
		var eb struct {
			Error string `json:"error"`
		}
		if b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096)); json.Unmarshal(b, &eb) == nil {
			se.Message = eb.Error
		}
		return nil, se
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body io.Reader, dest any) error {
	ct := ""
	if body != nil {
		ct = "application/json"
	}
	resp, err := c.do(ctx, method, path, ct, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Publish uploads p and returns the stored publication.
func (c *Client) Publish(ctx context.Context, p domain.Presentation) (Publication, error) {
	data, err := serial.ExportJSON(p)
	if err != nil {
		return Publication{}, err
	}
	var pub Publication
	if err := c.doJSON(ctx, http.MethodPost, "/api/decks", bytes.NewReader(data), &pub); err != nil {
		return Publication{}, err
	}
	return pub, nil
}

// List returns recent publications, newest first.
func (c *Client) List(ctx context.Context, limit int) ([]Publication, error) {
	path := "/api/decks"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var list []Publication
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Fetch downloads a publication through the import gate.
func (c *Client) Fetch(ctx context.Context, id string) (serial.Document, error) {
	resp, err := c.do(ctx, http.MethodGet, "/api/decks/"+url.PathEscape(id), "", nil)
	if err != nil {
		return serial.Document{}, err
	}
	defer resp.Body.Close()
	return serial.ReadDocument(resp.Body)
}

// FetchPDF copies the rendered PDF of a publication to w.
func (c *Client) FetchPDF(ctx context.Context, id string, w io.Writer) error {
	resp, err := c.do(ctx, http.MethodGet, "/api/decks/"+url.PathEscape(id)+"/pdf", "", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(w, resp.Body)
	return err
}
