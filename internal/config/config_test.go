package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tanq16/downloader/internal/utils"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Timeout != 100*time.Second {
		t.Errorf("default timeout = %s, want 100s", cfg.Timeout)
	}
	if cfg.BufferSize != utils.DefaultBufferSize {
		t.Errorf("default buffer size = %d, want %d", cfg.BufferSize, utils.DefaultBufferSize)
	}
	if cfg.Workers != 0 {
		t.Errorf("default workers = %d, want 0 (one per job)", cfg.Workers)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `timeout: 30s
buffer_size: 65536
workers: 4
user_agent: test-agent
s3:
  region: eu-west-1
  endpoint: http://localhost:9000
  use_path_style: true
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Default()
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.BufferSize != 65536 {
		t.Errorf("buffer size = %d, want 65536", cfg.BufferSize)
	}
	if cfg.Workers != 4 {
		t.Errorf("workers = %d, want 4", cfg.Workers)
	}
	if cfg.UserAgent != "test-agent" {
		t.Errorf("user agent = %q", cfg.UserAgent)
	}
	if cfg.S3.Region != "eu-west-1" || cfg.S3.Endpoint != "http://localhost:9000" || !cfg.S3.UsePathStyle {
		t.Errorf("unexpected s3 config: %+v", cfg.S3)
	}
	if cfg.KeepAliveTimeout != 90*time.Second {
		t.Errorf("unset field should keep its default, got %s", cfg.KeepAliveTimeout)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("timeout: [not a duration"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Default()
	if err := cfg.LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"DOWNLOADER_TIMEOUT":     "5s",
		"DOWNLOADER_BUFFER_SIZE": "16384",
		"DOWNLOADER_DEBUG":       "true",
		"DOWNLOADER_LOG_FILE":    "run.log",
		"DOWNLOADER_S3_PROFILE":  "backup",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Timeout != 5*time.Second || cfg.BufferSize != 16384 || !cfg.Debug {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.LogFile != "run.log" || cfg.S3.Profile != "backup" {
		t.Errorf("string overrides not applied: %+v", cfg)
	}
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := Default()
	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"DOWNLOADER_TIMEOUT": "soon",
		"DOWNLOADER_WORKERS": "many",
	}))
	if err == nil {
		t.Fatal("expected error for invalid values")
	}
	for _, name := range []string{"DOWNLOADER_TIMEOUT", "DOWNLOADER_WORKERS"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q should mention %s", err, name)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.BufferSize = 1
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.BufferSize != utils.MinBufferSize {
		t.Errorf("buffer size = %d, want clamped to %d", cfg.BufferSize, utils.MinBufferSize)
	}

	cfg = Default()
	cfg.BufferSize = 64 * 1024 * 1024
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.BufferSize != utils.MaxBufferSize {
		t.Errorf("buffer size = %d, want clamped to %d", cfg.BufferSize, utils.MaxBufferSize)
	}

	cfg = Default()
	cfg.Workers = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for negative workers")
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvConfigFile, "")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DOWNLOADER_WORKERS=3\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DOWNLOADER_WORKERS") })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Workers != 3 {
		t.Errorf("workers = %d, want 3 from .env", cfg.Workers)
	}
}
