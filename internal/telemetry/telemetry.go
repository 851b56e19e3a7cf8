/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events (deck saved, export
// finished, generation outcome) and optional crash reports. Nothing is sent
// unless the user opted in and an endpoint is configured.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	applog "goslidedeck/internal/log"
	"goslidedeck/internal/version"
)

// Event names.
const (
	EventStarted    = "app_started"
	EventDeckSaved  = "deck_saved"
	EventImported   = "deck_imported"
	EventExported   = "deck_exported"
	EventGeneration = "generation_finished"
	EventPublished  = "deck_published"
)

// allowedProps lists the only property keys that leave the machine. Deck
// titles, text and paths are never among them.
var allowedProps = map[string]bool{
	"format":   true,
	"slides":   true,
	"elements": true,
	"outcome":  true,
	"ms":       true,
	"command":  true,
}

// Config holds runtime configuration for telemetry and crash uploads.
//
// Environment variables (read by FromEnv):
//   - GSD_TELEMETRY_OPT_IN: "1", "true", "yes" to enable events
//   - GSD_TELEMETRY_URL: URL the JSON events are POSTed to
//   - GSD_CRASH_UPLOAD_URL: URL crash reports are POSTed to
//   - GSD_TELEMETRY_TIMEOUT_MS: request timeout, default 1500ms
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

func FromEnv() Config {
	cfg := Config{
		OptIn:     parseBool(os.Getenv("GSD_TELEMETRY_OPT_IN")),
		EventsURL: strings.TrimSpace(os.Getenv("GSD_TELEMETRY_URL")),
		CrashURL:  strings.TrimSpace(os.Getenv("GSD_CRASH_UPLOAD_URL")),
		Timeout:   1500 * time.Millisecond,
	}
	if ms := strings.TrimSpace(os.Getenv("GSD_TELEMETRY_TIMEOUT_MS")); ms != "" {
		if v, err := time.ParseDuration(ms + "ms"); err == nil {
			cfg.Timeout = v
		}
	}
	return cfg
}

func parseBool(v string) bool {
	s := strings.ToLower(strings.TrimSpace(v))
	return s == "1" || s == "true" || s == "yes" || s == "on"
}

type payload struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client is an async sender with a bounded queue; it drops events when the
// queue is full and never blocks the caller.
type Client struct {
	cfg  Config
	log  *slog.Logger
	cli  *http.Client
	q    chan payload
	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// New constructs a client and starts its sender goroutine.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 1500 * time.Millisecond
	}
	c := &Client{
		cfg:  cfg,
		log:  applog.WithComponent("telemetry"),
		cli:  &http.Client{Timeout: cfg.Timeout},
		q:    make(chan payload, 64),
		done: make(chan struct{}),
	}
	c.wg.Add(1)
	go c.loop()
	return c
}

// Enabled reports whether events would be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues an event. Properties outside the allowlist are dropped.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	p := payload{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}
	for k, v := range props {
		if allowedProps[k] {
			if p.Props == nil {
				p.Props = map[string]any{}
			}
			p.Props[k] = v
		}
	}
	select {
	case c.q <- p:
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
	}
}

// Dropped returns how many events were discarded on a full queue.
func (c *Client) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Flush waits until the queue is empty, ctx is done or 500ms pass.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.q) > 0 && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(25 * time.Millisecond):
		}
	}
}

// Close stops the sender goroutine and waits for it.
func (c *Client) Close() {
	c.once.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Client) loop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case p := <-c.q:
			c.send(p)
		}
	}
}

func (c *Client) send(p payload) {
	buf, err := json.Marshal(p)
	if err != nil {
		return
	}
	c.post(c.cfg.EventsURL, "application/json", buf)
}

func (c *Client) post(url, contentType string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.log.Debug("telemetry request", slog.Any("err", err))
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		c.log.Debug("telemetry send failed", slog.Any("err", err))
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		c.log.Debug("telemetry endpoint rejected event", slog.Int("status", resp.StatusCode))
	}
}

// UploadCrash posts a crash report synchronously; the process is about to
// exit so there is no queue to drain afterwards.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// Default returns the package client, built from the environment on first use.
func Default() *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultClient == nil {
		defaultClient = New(FromEnv())
	}
	return defaultClient
}

// SetDefault installs c as the package client and returns the previous one.
func SetDefault(c *Client) *Client {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	old := defaultClient
	defaultClient = c
	return old
}

// Event sends through the default client.
func Event(name string, props map[string]any) { Default().Event(name, props) }

// UploadCrash sends through the default client.
func UploadCrash(report []byte) { Default().UploadCrash(report) }
