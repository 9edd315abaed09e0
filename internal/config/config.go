// Package config loads layoutkit configuration.
//
// Configuration comes from an optional YAML file named by the --config
// flag or LAYOUTKIT_CONFIG. A handful of environment variables override
// individual values after the file is applied:
//
//	LAYOUTKIT_DB          db
//	LAYOUTKIT_WORKSPACE   workspace
//	LAYOUTKIT_LOG_LEVEL   log.level
//	LAYOUTKIT_OCR_URL     ocr.url (and enables the http provider)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full layoutkit configuration.
type Config struct {
	// DB is the SQLite database holding local workspaces.
	DB string `yaml:"db"`

	// Workspace is the workspace name commands act on by default.
	Workspace string `yaml:"workspace"`

	Log         LogConfig         `yaml:"log"`
	Materialize MaterializeConfig `yaml:"materialize"`
	OCR         OCRConfig         `yaml:"ocr"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	// Level is a zerolog level name: trace, debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "console" or "json".
	Format string `yaml:"format"`

	// File appends logs to a file instead of stderr.
	File string `yaml:"file"`
}

// MaterializeConfig configures template application.
type MaterializeConfig struct {
	// Concurrency is how many channels of one category may be created at
	// once. 1 is strictly sequential.
	Concurrency int `yaml:"concurrency"`
}

// OCRConfig configures the screenshot analyzer backend.
type OCRConfig struct {
	// Provider is "" (disabled) or "http".
	Provider string `yaml:"provider"`

	// URL is the recognition endpoint for the http provider.
	URL string `yaml:"url"`

	// Timeout bounds the image fetch and the recognition call.
	Timeout time.Duration `yaml:"timeout"`

	// MaxBytes caps the downloaded image size.
	MaxBytes int64 `yaml:"max_bytes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		DB:        filepath.Join(home, ".layoutkit", "workspaces.db"),
		Workspace: "default",
		Log: LogConfig{
			Level:  "warn",
			Format: "console",
		},
		Materialize: MaterializeConfig{Concurrency: 1},
		OCR: OCRConfig{
			Timeout:  15 * time.Second,
			MaxBytes: 8 << 20,
		},
	}
}

// Load reads the file at path over the defaults, then applies
// environment overrides. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(expandHome(path))
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.DB = expandHome(cfg.DB)
	cfg.Log.File = expandHome(cfg.Log.File)
	return cfg, nil
}

// Path returns the config file to load: flag first, then LAYOUTKIT_CONFIG.
func Path(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv("LAYOUTKIT_CONFIG")
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LAYOUTKIT_DB"); v != "" {
		c.DB = v
	}
	if v := os.Getenv("LAYOUTKIT_WORKSPACE"); v != "" {
		c.Workspace = v
	}
	if v := os.Getenv("LAYOUTKIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LAYOUTKIT_OCR_URL"); v != "" {
		c.OCR.URL = v
		if c.OCR.Provider == "" {
			c.OCR.Provider = "http"
		}
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.DB == "" {
		errs = append(errs, fmt.Errorf("db is required"))
	}
	if c.Workspace == "" {
		errs = append(errs, fmt.Errorf("workspace is required"))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("invalid log.format: %q (use console or json)", c.Log.Format))
	}
	if c.Materialize.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("materialize.concurrency must not be negative: %d", c.Materialize.Concurrency))
	}
	switch c.OCR.Provider {
	case "":
	case "http":
		if c.OCR.URL == "" {
			errs = append(errs, fmt.Errorf("ocr.url is required for the http provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid ocr.provider: %q", c.OCR.Provider))
	}
	if c.OCR.Timeout < 0 || c.OCR.MaxBytes < 0 {
		errs = append(errs, fmt.Errorf("ocr.timeout and ocr.max_bytes must not be negative"))
	}

	return errors.Join(errs...)
}
