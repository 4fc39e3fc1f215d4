package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.BaseURL != "http://127.0.0.1:5000" {
		t.Errorf("expected default BaseURL, got %s", cfg.BaseURL)
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("expected default ProxyMode no-proxy, got %s", cfg.ProxyMode)
	}
	if cfg.CleanupGrace() != 60*time.Second {
		t.Errorf("expected default cleanup grace 60s, got %v", cfg.CleanupGrace())
	}
	if cfg.RetryMax != 3 {
		t.Errorf("expected default RetryMax 3, got %d", cfg.RetryMax)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.ini")

	cfg := New()
	cfg.BaseURL = "https://cloud.example.com"
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.local"
	cfg.ProxyPort = 3128
	cfg.ProxyUser = "alice"
	cfg.ProxyPassword = "secret"
	cfg.NoProxy = "localhost"
	cfg.DownloadDir = "/tmp/downloads"
	cfg.CleanupGraceSeconds = 30
	cfg.RetryMax = 5
	cfg.RequestsPerSecond = 20
	cfg.LogLevel = "debug"
	cfg.DesktopNotify = true

	if err := Save(cfg, configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.BaseURL != cfg.BaseURL {
		t.Errorf("BaseURL mismatch: expected %s, got %s", cfg.BaseURL, loaded.BaseURL)
	}
	if loaded.ProxyMode != "basic" || loaded.ProxyHost != "proxy.local" || loaded.ProxyPort != 3128 {
		t.Errorf("proxy settings mismatch: %+v", loaded)
	}
	if loaded.ProxyUser != "alice" {
		t.Errorf("ProxyUser mismatch: got %s", loaded.ProxyUser)
	}
	if loaded.ProxyPassword != "" {
		t.Error("proxy password must not be persisted")
	}
	if loaded.NoProxy != "localhost" {
		t.Errorf("NoProxy mismatch: got %s", loaded.NoProxy)
	}
	if loaded.DownloadDir != "/tmp/downloads" {
		t.Errorf("DownloadDir mismatch: got %s", loaded.DownloadDir)
	}
	if loaded.CleanupGraceSeconds != 30 {
		t.Errorf("CleanupGraceSeconds mismatch: got %d", loaded.CleanupGraceSeconds)
	}
	if loaded.RetryMax != 5 {
		t.Errorf("RetryMax mismatch: got %d", loaded.RetryMax)
	}
	if loaded.RequestsPerSecond != 20 {
		t.Errorf("RequestsPerSecond mismatch: got %d", loaded.RequestsPerSecond)
	}
	if loaded.LogLevel != "debug" || !loaded.DesktopNotify {
		t.Errorf("logging settings mismatch: %+v", loaded)
	}

	if runtime.GOOS != "windows" {
		info, err := os.Stat(configPath)
		if err != nil {
			t.Fatalf("stat config: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected permissions 0600, got %o", perm)
		}
	}

	if _, err := os.Stat(configPath + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file should not remain after save")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.ini"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.BaseURL != New().BaseURL {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.ini")
	if err := os.WriteFile(path, []byte("[server\nbase_url"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed INI")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"valid", func(c *Config) {}, nil},
		{"empty base url", func(c *Config) { c.BaseURL = " " }, ErrMissingBaseURL},
		{"relative base url", func(c *Config) { c.BaseURL = "cloud.example.com" }, ErrInvalidBaseURL},
		{"ftp base url", func(c *Config) { c.BaseURL = "ftp://cloud.example.com" }, ErrInvalidBaseURL},
		{"unknown proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"ntlm without host", func(c *Config) { c.ProxyMode = "ntlm" }, ErrMissingProxyHost},
		{"system proxy", func(c *Config) { c.ProxyMode = "system" }, nil},
		{"negative grace", func(c *Config) { c.CleanupGraceSeconds = -1 }, ErrInvalidCleanupGrace},
		{"too many retries", func(c *Config) { c.RetryMax = 11 }, ErrInvalidRetryMax},
		{"negative request rate", func(c *Config) { c.RequestsPerSecond = -1 }, ErrInvalidRequestRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://env.example.com")
	t.Setenv(EnvProxyPassword, "from-env")
	t.Setenv(EnvDownloadDir, "/srv/downloads")

	cfg := New()
	cfg.ApplyEnv()

	if cfg.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL not overridden: %s", cfg.BaseURL)
	}
	if cfg.ProxyPassword != "from-env" {
		t.Errorf("ProxyPassword not overridden")
	}
	if cfg.DownloadDir != "/srv/downloads" {
		t.Errorf("DownloadDir not overridden: %s", cfg.DownloadDir)
	}
}

func TestNormalizedBaseURL(t *testing.T) {
	cfg := New()
	cfg.BaseURL = " https://cloud.example.com/ "
	if got := cfg.NormalizedBaseURL(); got != "https://cloud.example.com" {
		t.Errorf("NormalizedBaseURL() = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := expandHome("~/Downloads"); got != filepath.Join(home, "Downloads") {
		t.Errorf("expandHome = %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome changed absolute path: %q", got)
	}
}

func TestResolveLogFile(t *testing.T) {
	if got := resolveLogFile(""); got != "" {
		t.Errorf("resolveLogFile(\"\") = %q, want empty", got)
	}
	if got := resolveLogFile("/var/log/megacloud.log"); got != "/var/log/megacloud.log" {
		t.Errorf("absolute path changed: %q", got)
	}
	if got := resolveLogFile("megacloud.log"); got != filepath.Join(LogDirectory(), "megacloud.log") {
		t.Errorf("bare name not placed in log directory: %q", got)
	}
}
