package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvPath, "")
	t.Setenv(EnvLog, "")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Stdlib || len(cfg.SearchPaths) != 0 || cfg.Level() != slog.LevelWarn || cfg.MaxCallDepth != 0 {
		t.Fatalf("wrong defaults: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
search_paths:
  - lib
  - /opt/sona/shared
stdlib: false
log_level: info
max_call_depth: 500
`)
	extra := t.TempDir()
	t.Setenv(EnvPath, extra+string(os.PathListSeparator))
	t.Setenv(EnvLog, "")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := []string{filepath.Join(dir, "lib"), "/opt/sona/shared", extra}
	if strings.Join(cfg.SearchPaths, "|") != strings.Join(expected, "|") {
		t.Fatalf("wrong search paths.\nexpected=%q\n     got=%q", expected, cfg.SearchPaths)
	}
	if cfg.Stdlib || cfg.MaxCallDepth != 500 || cfg.Level() != slog.LevelInfo {
		t.Fatalf("wrong config: %+v", cfg)
	}
}

func TestDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, EnvFile), "SONA_LOG=debug\nSONA_CONFIG_TEST_ONLY=from-file\n")
	t.Setenv(EnvPath, "")
	t.Setenv(EnvLog, "error")
	t.Setenv("SONA_CONFIG_TEST_ONLY", "")
	os.Unsetenv("SONA_CONFIG_TEST_ONLY")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Level() != slog.LevelError {
		t.Fatalf(".env must not override the environment, got level %s", cfg.Level())
	}
	if got := os.Getenv("SONA_CONFIG_TEST_ONLY"); got != "from-file" {
		t.Fatalf("expected variable from .env, got %q", got)
	}
}

func TestLoadBadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "search_paths: [unclosed")
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), FileName) {
		t.Fatalf("expected parse error naming the file, got %v", err)
	}
}
