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

	"gopkg.in/yaml.v3"

	applog "signstage/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in
// the user scope. Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type StageConfig struct {
	// LayerMode is "simple" (single layer) or "multi".
	LayerMode string `yaml:"layer_mode"`
	// GridCell enables drag snapping to a pixel grid when > 0.
	GridCell float64 `yaml:"grid_cell"`
	// PrecisionFactor damps gesture deltas while precision mode is held.
	PrecisionFactor float64 `yaml:"precision_factor"`
	// FrameIntervalMs is the gesture coalescing cadence.
	FrameIntervalMs int `yaml:"frame_interval_ms"`
}

type ExportConfig struct {
	Preset    string `yaml:"preset"` // "screen" | "hidpi" | "print"
	BackColor string `yaml:"back_color"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark" (informational for now)
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// LogOptions maps the logging section onto logger options, so hosts can
// re-init logging from the loaded config.
func (c LoggingConfig) LogOptions() applog.Options {
	return applog.Options{
		Level:     c.Level,
		Format:    c.Format,
		AddSource: c.Source,
		File:      c.File,
	}
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Stage         StageConfig   `yaml:"stage"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Stage:         StageConfig{LayerMode: "multi", GridCell: 0, PrecisionFactor: 0.3, FrameIntervalMs: 16},
		Export:        ExportConfig{Preset: "screen", BackColor: "#ffffff"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvLayerMode       = "SST_LAYER_MODE"
	EnvGridCell        = "SST_GRID_CELL"
	EnvExportPreset    = "SST_EXPORT_PRESET"
	EnvTelemetryOptIn  = "SST_TELEMETRY_OPT_IN"
	EnvLogLevel        = "SST_LOG_LEVEL"
	EnvLogFormat       = "SST_LOG_FORMAT"
	EnvLogSource       = "SST_LOG_SOURCE"
	EnvLogFile         = "SST_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SignStage")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SignStage")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "signstage")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges
// environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
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
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans copy directly from the file so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn

	if strings.TrimSpace(src.Stage.LayerMode) != "" {
		dst.Stage.LayerMode = strings.ToLower(strings.TrimSpace(src.Stage.LayerMode))
	}
	if src.Stage.GridCell > 0 {
		dst.Stage.GridCell = src.Stage.GridCell
	}
	if src.Stage.PrecisionFactor > 0 {
		dst.Stage.PrecisionFactor = src.Stage.PrecisionFactor
	}
	if src.Stage.FrameIntervalMs > 0 {
		dst.Stage.FrameIntervalMs = src.Stage.FrameIntervalMs
	}

	if strings.TrimSpace(src.Export.Preset) != "" {
		dst.Export.Preset = strings.ToLower(strings.TrimSpace(src.Export.Preset))
	}
	if strings.TrimSpace(src.Export.BackColor) != "" {
		dst.Export.BackColor = strings.TrimSpace(src.Export.BackColor)
	}

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
	if v := strings.TrimSpace(os.Getenv(EnvLayerMode)); v != "" {
		cfg.Stage.LayerMode = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvGridCell)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Stage.GridCell = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportPreset)); v != "" {
		cfg.Export.Preset = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = isTruthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func isTruthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by
// environment variables.
func EnvOverrideFor(key string) (string, bool) {
	switch key {
	case "stage.layer_mode":
		if os.Getenv(EnvLayerMode) != "" {
			return EnvLayerMode, true
		}
	case "stage.grid_cell":
		if os.Getenv(EnvGridCell) != "" {
			return EnvGridCell, true
		}
	case "export.preset":
		if os.Getenv(EnvExportPreset) != "" {
			return EnvExportPreset, true
		}
	case "general.telemetry_opt_in":
		if os.Getenv(EnvTelemetryOptIn) != "" {
			return EnvTelemetryOptIn, true
		}
	case "logging.level":
		if os.Getenv(EnvLogLevel) != "" {
			return EnvLogLevel, true
		}
	case "logging.format":
		if os.Getenv(EnvLogFormat) != "" {
			return EnvLogFormat, true
		}
	case "logging.source":
		if os.Getenv(EnvLogSource) != "" {
			return EnvLogSource, true
		}
	case "logging.file":
		if os.Getenv(EnvLogFile) != "" {
			return EnvLogFile, true
		}
	}
	return "", false
}
