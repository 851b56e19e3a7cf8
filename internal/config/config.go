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
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime. Secrets are never
// written to the file; they live in the OS keychain (see keyring.go).
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	EnableServer   bool   `yaml:"enable_server"`
}

type GenerationConfig struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	DatabaseURL string `yaml:"database_url"`
	// BaseURL is where the publish client talks to.
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type EditorConfig struct {
	ThumbnailWidth    int `yaml:"thumbnail_width"`
	PresentationWidth int `yaml:"presentation_width"`
	AutosaveSeconds   int `yaml:"autosave_seconds"`
	KeepBackups       int `yaml:"keep_backups"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	General       GeneralConfig    `yaml:"general"`
	Generation    GenerationConfig `yaml:"generation"`
	Server        ServerConfig     `yaml:"server"`
	Editor        EditorConfig     `yaml:"editor"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Generation: GenerationConfig{
			Model:     "gemini-2.5-flash",
			BaseURL:   "https://generativelanguage.googleapis.com",
			TimeoutMs: 60000,
		},
		Server:  ServerConfig{Addr: ":8080", BaseURL: "http://localhost:8080", TimeoutMs: 15000},
		Editor:  EditorConfig{ThumbnailWidth: 160, PresentationWidth: 1920, AutosaveSeconds: 60, KeepBackups: 20},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn   = "GSD_TELEMETRY_OPT_IN"
	EnvEnableServer     = "GSD_ENABLE_SERVER"
	EnvGenerationModel  = "GSD_GENERATION_MODEL"
	EnvGenerationURL    = "GSD_GENERATION_URL"
	EnvGenerationTimout = "GSD_GENERATION_TIMEOUT_MS"
	EnvServerAddr       = "GSD_SERVER_ADDR"
	EnvDatabaseURL      = "GSD_DATABASE_URL"
	EnvServerURL        = "GSD_SERVER_URL"
	EnvAutosaveSeconds  = "GSD_AUTOSAVE_SECONDS"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSD_LOG_LEVEL"
	EnvLogFormat = "GSD_LOG_FORMAT"
	EnvLogSource = "GSD_LOG_SOURCE"
	EnvLogFile   = "GSD_LOG_FILE"
)

// ConfigPath returns the per-user config file path. GSD_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("GSD_CONFIG")); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoSlideDeck")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoSlideDeck")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "goslidedeck")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. A malformed file is reported but defaults are still
// returned so the caller can continue.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	var fileErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			fileErr = &FileError{Path: path, Err: err}
		} else {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, fileErr
}

// FileError reports an unreadable config file.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return "config " + e.Path + ": " + e.Err.Error() }
func (e *FileError) Unwrap() error { return e.Err }

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableServer = src.General.EnableServer

	setString(&dst.Generation.Model, src.Generation.Model)
	setString(&dst.Generation.BaseURL, src.Generation.BaseURL)
	setInt(&dst.Generation.TimeoutMs, src.Generation.TimeoutMs)

	setString(&dst.Server.Addr, src.Server.Addr)
	setString(&dst.Server.DatabaseURL, src.Server.DatabaseURL)
	setString(&dst.Server.BaseURL, src.Server.BaseURL)
	setInt(&dst.Server.TimeoutMs, src.Server.TimeoutMs)

	setInt(&dst.Editor.ThumbnailWidth, src.Editor.ThumbnailWidth)
	setInt(&dst.Editor.PresentationWidth, src.Editor.PresentationWidth)
	setInt(&dst.Editor.AutosaveSeconds, src.Editor.AutosaveSeconds)
	setInt(&dst.Editor.KeepBackups, src.Editor.KeepBackups)

	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	setString(&dst.Logging.File, src.Logging.File)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func envBool(key string, dst *bool) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		lv := strings.ToLower(v)
		*dst = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
}

func envInt(key string, dst *int) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	envBool(EnvTelemetryOptIn, &cfg.General.TelemetryOptIn)
	envBool(EnvEnableServer, &cfg.General.EnableServer)
	envString(EnvGenerationModel, &cfg.Generation.Model)
	envString(EnvGenerationURL, &cfg.Generation.BaseURL)
	envInt(EnvGenerationTimout, &cfg.Generation.TimeoutMs)
	envString(EnvServerAddr, &cfg.Server.Addr)
	envString(EnvDatabaseURL, &cfg.Server.DatabaseURL)
	envString(EnvServerURL, &cfg.Server.BaseURL)
	envInt(EnvAutosaveSeconds, &cfg.Editor.AutosaveSeconds)
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	envBool(EnvLogSource, &cfg.Logging.Source)
	envString(EnvLogFile, &cfg.Logging.File)
}

var overrideKeys = map[string]string{
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.enable_server":    EnvEnableServer,
	"generation.model":         EnvGenerationModel,
	"generation.base_url":      EnvGenerationURL,
	"generation.timeout_ms":    EnvGenerationTimout,
	"server.addr":              EnvServerAddr,
	"server.database_url":      EnvDatabaseURL,
	"server.base_url":          EnvServerURL,
	"editor.autosave_seconds":  EnvAutosaveSeconds,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

func millis(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}

// Timeout returns the generation request timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return millis(g.TimeoutMs, Defaults().Generation.TimeoutMs)
}

// Timeout returns the publish client timeout.
func (s ServerConfig) Timeout() time.Duration {
	return millis(s.TimeoutMs, Defaults().Server.TimeoutMs)
}

// AutosaveInterval returns zero when autosave is disabled.
func (e EditorConfig) AutosaveInterval() time.Duration {
	if e.AutosaveSeconds <= 0 {
		return 0
	}
	return time.Duration(e.AutosaveSeconds) * time.Second
}
