// Package config reads interpreter settings from sona.yaml, .env files and
// the environment.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "sona.yaml"
	EnvFile  = ".env"

	EnvPath = "SONA_PATH"
	EnvLog  = "SONA_LOG"
)

type Config struct {
	// SearchPaths are extra module roots, searched after the script
	// directory. Relative entries are relative to the config file.
	SearchPaths []string `yaml:"search_paths"`

	// Stdlib enables the embedded standard library root.
	Stdlib bool `yaml:"stdlib"`

	LogLevel     string `yaml:"log_level"`
	MaxCallDepth int    `yaml:"max_call_depth"`
}

func Default() Config {
	return Config{Stdlib: true, LogLevel: "warn"}
}

// Load reads the configuration for a project directory: dir/.env (never
// overriding variables already set), then dir/sona.yaml, then SONA_PATH
// and SONA_LOG. Missing files are not an error.
func Load(dir string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(filepath.Join(dir, EnvFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, pkgerrors.Wrapf(err, "load %s", EnvFile)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, pkgerrors.Wrapf(err, "parse %s", FileName)
		}
		for i, p := range cfg.SearchPaths {
			if !filepath.IsAbs(p) {
				cfg.SearchPaths[i] = filepath.Join(dir, p)
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return cfg, pkgerrors.WithStack(err)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv appends SONA_PATH entries to the search paths and lets SONA_LOG
// override the log level.
func (c *Config) ApplyEnv() {
	for _, p := range filepath.SplitList(os.Getenv(EnvPath)) {
		if p != "" {
			c.SearchPaths = append(c.SearchPaths, p)
		}
	}
	if lvl := os.Getenv(EnvLog); lvl != "" {
		c.LogLevel = lvl
	}
}

// Level maps LogLevel to a slog level. Unknown names mean warn.
func (c Config) Level() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	}
	return slog.LevelWarn
}
