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
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"menuboard/internal/geometry"
	"menuboard/internal/pagination"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int            `yaml:"config_version"`
	General       GeneralConfig  `yaml:"general"`
	Storage       StorageConfig  `yaml:"storage"`
	Security      SecurityConfig `yaml:"security"`
	Board         BoardConfig    `yaml:"board"`
	Logging       LoggingConfig  `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool `yaml:"telemetry_opt_in"`
	// Language forces a UI locale; empty picks one from the request.
	Language string `yaml:"language"`
}

type StorageConfig struct {
	// DataDir holds blobs, documents and the SQLite database.
	DataDir string `yaml:"data_dir"`
}

type SecurityConfig struct {
	// PinInKeyring keeps the board PIN in the OS keychain instead of the settings table.
	PinInKeyring bool `yaml:"pin_in_keyring"`
	// BcryptCost is the work factor for account secrets; 0 uses the library default.
	BcryptCost int `yaml:"bcrypt_cost"`
}

type BoardConfig struct {
	Pages pagination.Config    `yaml:"pages"`
	Snap  geometry.SnapOptions `yaml:"snap"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false},
		Storage:       StorageConfig{DataDir: defaultDataDir()},
		Board:         BoardConfig{Pages: pagination.Defaults(), Snap: geometry.DefaultSnapOptions()},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvDataDir        = "MB_DATA_DIR"
	EnvTelemetryOptIn = "MB_TELEMETRY_OPT_IN"
	EnvLanguage       = "MB_LANG"
	EnvPinInKeyring   = "MB_PIN_IN_KEYRING"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "MB_LOG_LEVEL"
	EnvLogFormat = "MB_LOG_FORMAT"
	EnvLogSource = "MB_LOG_SOURCE"
	EnvLogFile   = "MB_LOG_FILE"
	// EnvConfigFile points at an alternative config file.
	EnvConfigFile = "MB_CONFIG"
)

func appDir() string {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "MenuBoard")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "MenuBoard")
	default: // linux and others
		return filepath.Join(os.Getenv("HOME"), ".config", "menuboard")
	}
}

func defaultDataDir() string {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		return filepath.Join(appDir(), "data")
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "menuboard")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share", "menuboard")
}

// ConfigPath returns the per-user config file path, or MB_CONFIG when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	base := appDir()
	if base == "" || base == filepath.Join(".config", "menuboard") {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It returns the path the file was read from (or would be written to).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		applyEnvOverrides(&cfg)
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, path, nil
}

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
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if v := strings.TrimSpace(src.General.Language); v != "" {
		dst.General.Language = v
	}
	if v := strings.TrimSpace(src.Storage.DataDir); v != "" {
		dst.Storage.DataDir = v
	}
	dst.Security.PinInKeyring = src.Security.PinInKeyring
	if src.Security.BcryptCost != 0 {
		dst.Security.BcryptCost = src.Security.BcryptCost
	}
	// board: zero fields keep the defaults
	if p := src.Board.Pages; p.PageHeight > 0 {
		dst.Board.Pages.PageHeight = p.PageHeight
	}
	if p := src.Board.Pages; p.Gap > 0 {
		dst.Board.Pages.Gap = p.Gap
	}
	if p := src.Board.Pages; p.Padding > 0 {
		dst.Board.Pages.Padding = p.Padding
	}
	if p := src.Board.Pages; p.MinHeight > 0 {
		dst.Board.Pages.MinHeight = p.MinHeight
	}
	if p := src.Board.Pages; p.BoardWidth > 0 {
		dst.Board.Pages.BoardWidth = p.BoardWidth
	}
	if s := src.Board.Snap; s != (geometry.SnapOptions{}) {
		dst.Board.Snap.Grid = s.Grid
		dst.Board.Snap.Edges = s.Edges
		if s.GridSize != 0 {
			dst.Board.Snap.GridSize = geometry.ClampGridSize(s.GridSize)
		}
		if s.Threshold > 0 {
			dst.Board.Snap.Threshold = s.Threshold
		}
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

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDataDir)); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLanguage)); v != "" {
		cfg.General.Language = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvPinInKeyring)); v != "" {
		cfg.Security.PinInKeyring = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var overrides = map[string]string{
	"storage.data_dir":         EnvDataDir,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.language":         EnvLanguage,
	"security.pin_in_keyring":  EnvPinInKeyring,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := overrides[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Get returns a config value by its dotted YAML key, for the CLI.
func (c AppConfig) Get(key string) (string, bool) {
	switch key {
	case "storage.data_dir":
		return c.Storage.DataDir, true
	case "general.telemetry_opt_in":
		return strconv.FormatBool(c.General.TelemetryOptIn), true
	case "general.language":
		return c.General.Language, true
	case "security.pin_in_keyring":
		return strconv.FormatBool(c.Security.PinInKeyring), true
	case "security.bcrypt_cost":
		return strconv.Itoa(c.Security.BcryptCost), true
	case "logging.level":
		return c.Logging.Level, true
	case "logging.format":
		return c.Logging.Format, true
	case "logging.file":
		return c.Logging.File, true
	}
	return "", false
}
