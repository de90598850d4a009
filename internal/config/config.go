/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	applog "pickture/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type DisplayConfig struct {
	// ScaleFactor is the share of the screen the image window may occupy.
	ScaleFactor float64 `yaml:"scale_factor"`
}

type FramesConfig struct {
	DefaultSize int `yaml:"default_size"`
}

type NavigationConfig struct {
	Extension string `yaml:"extension"` // sibling filter, e.g. ".jpg"
	Sort      bool   `yaml:"sort"`      // false keeps directory order
}

type ExportConfig struct {
	DefaultFormat string `yaml:"default_format"`
	JPEGQuality   int    `yaml:"jpeg_quality"`
	WebPQuality   int    `yaml:"webp_quality"`
	WebPLossless  bool   `yaml:"webp_lossless"`
	TempDir       string `yaml:"temp_dir"` // empty means the OS temp dir
}

type CatalogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // "sqlite" | "pgx"
	DSN     string `yaml:"dsn"`
	// Path overrides the sqlite file location; empty means <image dir>/.pickture/catalog.sqlite.
	Path string `yaml:"path"`
	// Password is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int              `yaml:"config_version"`
	Display       DisplayConfig    `yaml:"display"`
	Frames        FramesConfig     `yaml:"frames"`
	Navigation    NavigationConfig `yaml:"navigation"`
	Export        ExportConfig     `yaml:"export"`
	Catalog       CatalogConfig    `yaml:"catalog"`
	Logging       LoggingConfig    `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Display:       DisplayConfig{ScaleFactor: 0.9},
		Frames:        FramesConfig{DefaultSize: 250},
		Navigation:    NavigationConfig{Extension: ".jpg", Sort: true},
		Export:        ExportConfig{DefaultFormat: "png", JPEGQuality: 95, WebPQuality: 90},
		Catalog:       CatalogConfig{Enabled: false, Driver: "sqlite"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PICKTURE_CONFIG"
	EnvScaleFactor    = "PICKTURE_SCALE_FACTOR"
	EnvFrameSize      = "PICKTURE_FRAME_SIZE"
	EnvNavExtension   = "PICKTURE_NAV_EXTENSION"
	EnvNavSort        = "PICKTURE_NAV_SORT"
	EnvExportFormat   = "PICKTURE_EXPORT_FORMAT"
	EnvJPEGQuality    = "PICKTURE_JPEG_QUALITY"
	EnvWebPQuality    = "PICKTURE_WEBP_QUALITY"
	EnvWebPLossless   = "PICKTURE_WEBP_LOSSLESS"
	EnvTempDir        = "PICKTURE_TEMP_DIR"
	EnvCatalogEnabled = "PICKTURE_CATALOG_ENABLED"
	EnvCatalogDriver  = "PICKTURE_CATALOG_DRIVER"
	EnvCatalogDSN     = "PICKTURE_CATALOG_DSN"
	EnvCatalogPath    = "PICKTURE_CATALOG_PATH"
	// Logging envs are shared with internal/log.FromEnv
	EnvLogLevel  = applog.EnvLevel
	EnvLogFormat = applog.EnvFormat
	EnvLogSource = applog.EnvSource
	EnvLogFile   = applog.EnvFile
)

// envKeys maps dotted config keys to the env var overriding them.
var envKeys = map[string]string{
	"display.scale_factor":  EnvScaleFactor,
	"frames.default_size":   EnvFrameSize,
	"navigation.extension":  EnvNavExtension,
	"navigation.sort":       EnvNavSort,
	"export.default_format": EnvExportFormat,
	"export.jpeg_quality":   EnvJPEGQuality,
	"export.webp_quality":   EnvWebPQuality,
	"export.webp_lossless":  EnvWebPLossless,
	"export.temp_dir":       EnvTempDir,
	"catalog.enabled":       EnvCatalogEnabled,
	"catalog.driver":        EnvCatalogDriver,
	"catalog.dsn":           EnvCatalogDSN,
	"catalog.path":          EnvCatalogPath,
	"logging.level":         EnvLogLevel,
	"logging.format":        EnvLogFormat,
	"logging.source":        EnvLogSource,
	"logging.file":          EnvLogFile,
}

// ConfigPath returns the per-user config file path. PICKTURE_CONFIG replaces it entirely.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Pickture")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Pickture")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "pickture")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "pickture")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
// It also returns the catalog password from the keyring (not kept inside the struct).
// A malformed file is reported in the log and otherwise ignored.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		} else {
			applog.WithComponent("config").Warn("ignoring malformed config file",
				slog.String("path", path), slog.Any("err", err))
		}
	}
	applyEnvOverrides(&cfg)
	pw, _ := CatalogPassword()
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the catalog password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
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
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := SetCatalogPassword(password); err != nil {
			return fmt.Errorf("store catalog password: %w", err)
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.Display.ScaleFactor > 0 && src.Display.ScaleFactor <= 1 {
		dst.Display.ScaleFactor = src.Display.ScaleFactor
	}
	if src.Frames.DefaultSize > 0 {
		dst.Frames.DefaultSize = src.Frames.DefaultSize
	}
	if ext := strings.TrimSpace(src.Navigation.Extension); ext != "" {
		dst.Navigation.Extension = normalizeExt(ext)
	}
	// booleans: src starts from Defaults, so absent keys keep their default
	dst.Navigation.Sort = src.Navigation.Sort
	if f := strings.TrimSpace(src.Export.DefaultFormat); f != "" {
		dst.Export.DefaultFormat = strings.ToLower(f)
	}
	if src.Export.JPEGQuality > 0 {
		dst.Export.JPEGQuality = src.Export.JPEGQuality
	}
	if src.Export.WebPQuality > 0 {
		dst.Export.WebPQuality = src.Export.WebPQuality
	}
	dst.Export.WebPLossless = src.Export.WebPLossless
	if strings.TrimSpace(src.Export.TempDir) != "" {
		dst.Export.TempDir = strings.TrimSpace(src.Export.TempDir)
	}
	// catalog
	dst.Catalog.Enabled = src.Catalog.Enabled
	if d := strings.TrimSpace(src.Catalog.Driver); d != "" {
		dst.Catalog.Driver = strings.ToLower(d)
	}
	if strings.TrimSpace(src.Catalog.DSN) != "" {
		dst.Catalog.DSN = strings.TrimSpace(src.Catalog.DSN)
	}
	if strings.TrimSpace(src.Catalog.Path) != "" {
		dst.Catalog.Path = strings.TrimSpace(src.Catalog.Path)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := env(EnvScaleFactor); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 1 {
			cfg.Display.ScaleFactor = f
		}
	}
	if v := env(EnvFrameSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Frames.DefaultSize = n
		}
	}
	if v := env(EnvNavExtension); v != "" {
		cfg.Navigation.Extension = normalizeExt(v)
	}
	if v := env(EnvNavSort); v != "" {
		cfg.Navigation.Sort = truthy(v)
	}
	if v := env(EnvExportFormat); v != "" {
		cfg.Export.DefaultFormat = strings.ToLower(v)
	}
	if v := env(EnvJPEGQuality); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Export.JPEGQuality = n
		}
	}
	if v := env(EnvWebPQuality); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Export.WebPQuality = n
		}
	}
	if v := env(EnvWebPLossless); v != "" {
		cfg.Export.WebPLossless = truthy(v)
	}
	if v := env(EnvTempDir); v != "" {
		cfg.Export.TempDir = v
	}
	if v := env(EnvCatalogEnabled); v != "" {
		cfg.Catalog.Enabled = truthy(v)
	}
	if v := env(EnvCatalogDriver); v != "" {
		cfg.Catalog.Driver = strings.ToLower(v)
	}
	if v := env(EnvCatalogDSN); v != "" {
		cfg.Catalog.DSN = v
	}
	if v := env(EnvCatalogPath); v != "" {
		cfg.Catalog.Path = v
	}
	// logging overrides
	if v := env(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := env(EnvLogFormat); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := env(EnvLogSource); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := env(EnvLogFile); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// LogOptions converts the logging section for internal/log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func truthy(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, "*")
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
