/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zalando/go-keyring"
)

func isolate(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("GSD_CONFIG", p)
	return p
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Generation.Model != "gemini-2.5-flash" || cfg.Editor.ThumbnailWidth != 160 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.General.Theme = "dark"
	cfg.Server.BaseURL = "https://decks.example.test"
	cfg.Editor.AutosaveSeconds = 0
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.General.Theme != "dark" || got.Server.BaseURL != "https://decks.example.test" {
		t.Fatalf("file values not loaded: %#v", got)
	}
	// zero means "unset" in the file, so the default survives
	if got.Editor.AutosaveSeconds != 60 {
		t.Fatalf("AutosaveSeconds = %d", got.Editor.AutosaveSeconds)
	}
}

func TestLoadReportsMalformedFile(t *testing.T) {
	p := isolate(t)
	if err := os.WriteFile(p, []byte("general: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	var fe *FileError
	if !errors.As(err, &fe) || fe.Path != p {
		t.Fatalf("expected FileError, got %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("defaults should still be returned")
	}
}

func TestEnvOverridesServer(t *testing.T) {
	isolate(t)
	t.Setenv(EnvServerURL, "https://example.test:8443")
	t.Setenv(EnvDatabaseURL, "postgres://u@h/db")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Server.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Server.BaseURL = %q, want %q", got, want)
	}
	if cfg.Server.DatabaseURL != "postgres://u@h/db" {
		t.Fatalf("DatabaseURL = %q", cfg.Server.DatabaseURL)
	}
	if env, ok := EnvOverrideFor("server.base_url"); !ok || env != EnvServerURL {
		t.Fatalf("EnvOverrideFor = %q %v", env, ok)
	}
	if _, ok := EnvOverrideFor("generation.model"); ok {
		t.Fatalf("generation.model is not overridden")
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	t.Setenv(EnvTelemetryOptIn, "true")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestMergeIncludesEnableServer(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.General.EnableServer = true
	mergeInto(&dst, &src)
	if !dst.General.EnableServer {
		t.Fatalf("EnableServer was not merged from file config")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/gsd.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gsd.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvLogFormat, "json")
	t.Setenv(EnvLogSource, "1")
	t.Setenv(EnvLogFile, "/var/log/gsd.log")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/log/gsd.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestDurations(t *testing.T) {
	cfg := Defaults()
	if cfg.Generation.Timeout() != time.Minute || cfg.Server.Timeout() != 15*time.Second {
		t.Fatalf("timeouts: %v %v", cfg.Generation.Timeout(), cfg.Server.Timeout())
	}
	cfg.Server.TimeoutMs = -1
	if cfg.Server.Timeout() != 15*time.Second {
		t.Fatalf("non-positive timeout should fall back to default")
	}
	cfg.Editor.AutosaveSeconds = 0
	if cfg.Editor.AutosaveInterval() != 0 {
		t.Fatalf("autosave should be off")
	}
}

func TestSecretsKeyringAndEnv(t *testing.T) {
	keyring.MockInit()
	t.Setenv(EnvGenerationAPIKey, "")

	if v, err := Secret(KeyGenerationAPI); err != nil || v != "" {
		t.Fatalf("missing secret: %q %v", v, err)
	}
	if err := SetSecret(KeyGenerationAPI, "from-keychain"); err != nil {
		t.Fatalf("SetSecret: %v", err)
	}
	if v, _ := Secret(KeyGenerationAPI); v != "from-keychain" {
		t.Fatalf("Secret = %q", v)
	}
	t.Setenv(EnvGenerationAPIKey, "from-env")
	if v, _ := Secret(KeyGenerationAPI); v != "from-env" {
		t.Fatalf("env should win, got %q", v)
	}
	if err := SetSecret(KeyGenerationAPI, ""); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := SetSecret(KeyGenerationAPI, ""); err != nil {
		t.Fatalf("deleting a missing secret should be a no-op: %v", err)
	}
	t.Setenv(EnvGenerationAPIKey, "")
	if v, _ := Secret(KeyGenerationAPI); v != "" {
		t.Fatalf("secret not deleted: %q", v)
	}
}
