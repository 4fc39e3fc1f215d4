// Package config provides configuration management for the MegaCloud CLI.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/megacloud/megacloud-cli/internal/constants"
)

// Config is the on-disk client configuration.
//
// INI format:
//
//	[server]
//	base_url = https://megacloud.example.com
//	timeout_seconds = 0
//	requests_per_second = 0
//
//	[proxy]
//	mode = no-proxy
//	host =
//	port = 8080
//	user =
//	no_proxy = localhost,127.0.0.1
//	warmup = false
//
//	[transfer]
//	download_dir = ~/Downloads
//	cleanup_grace_seconds = 60
//	retry_max = 3
//
//	[logging]
//	file =
//	level = info
//	desktop_notify = false
//
// The proxy password is never written to disk. It comes from
// MEGACLOUD_PROXY_PASSWORD or an interactive prompt.
type Config struct {
	BaseURL           string
	TimeoutSeconds    int
	RequestsPerSecond int // 0 disables client-side throttling

	ProxyMode     string // no-proxy, system, basic, ntlm
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string
	NoProxy       string
	ProxyWarmup   bool

	DownloadDir         string
	CleanupGraceSeconds int
	RetryMax            int

	LogFile       string
	LogLevel      string
	DesktopNotify bool
}

// Validation errors
var (
	ErrMissingBaseURL      = errors.New("base_url is required")
	ErrInvalidBaseURL      = errors.New("base_url must be an absolute http or https URL")
	ErrInvalidProxyMode    = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost    = errors.New("proxy host is required for basic and ntlm modes")
	ErrInvalidCleanupGrace = errors.New("cleanup_grace_seconds must be between 0 and 3600")
	ErrInvalidRetryMax     = errors.New("retry_max must be between 0 and 10")
	ErrInvalidRequestRate  = errors.New("requests_per_second must be between 0 and 1000")
)

// Environment overrides
const (
	EnvBaseURL       = "MEGACLOUD_BASE_URL"
	EnvDownloadDir   = "MEGACLOUD_DOWNLOAD_DIR"
	EnvProxyPassword = "MEGACLOUD_PROXY_PASSWORD"
	EnvLogLevel      = "MEGACLOUD_LOG_LEVEL"
)

// New creates a Config with default values.
func New() *Config {
	return &Config{
		BaseURL:             constants.DefaultBaseURL,
		TimeoutSeconds:      constants.DefaultRequestTimeout,
		ProxyMode:           "no-proxy",
		ProxyPort:           8080,
		DownloadDir:         DefaultDownloadDir(),
		CleanupGraceSeconds: int(constants.CleanupGrace / time.Second),
		RetryMax:            constants.DefaultRetryMax,
		LogLevel:            "info",
	}
}

// Load reads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no error.
// If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	server := iniFile.Section("server")
	cfg.BaseURL = server.Key("base_url").MustString(cfg.BaseURL)
	cfg.TimeoutSeconds = server.Key("timeout_seconds").MustInt(0)
	cfg.RequestsPerSecond = server.Key("requests_per_second").MustInt(0)

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	transfer := iniFile.Section("transfer")
	cfg.DownloadDir = transfer.Key("download_dir").MustString(cfg.DownloadDir)
	cfg.CleanupGraceSeconds = transfer.Key("cleanup_grace_seconds").MustInt(cfg.CleanupGraceSeconds)
	cfg.RetryMax = transfer.Key("retry_max").MustInt(cfg.RetryMax)

	logging := iniFile.Section("logging")
	cfg.LogFile = logging.Key("file").String()
	cfg.LogLevel = logging.Key("level").MustString(cfg.LogLevel)
	cfg.DesktopNotify = logging.Key("desktop_notify").MustBool(false)

	cfg.DownloadDir = expandHome(cfg.DownloadDir)
	cfg.LogFile = resolveLogFile(expandHome(cfg.LogFile))

	return cfg, nil
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist. The proxy password is omitted.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	server, err := iniFile.NewSection("server")
	if err != nil {
		return fmt.Errorf("failed to create server section: %w", err)
	}
	server.Key("base_url").SetValue(cfg.BaseURL)
	server.Key("timeout_seconds").SetValue(fmt.Sprintf("%d", cfg.TimeoutSeconds))
	server.Key("requests_per_second").SetValue(fmt.Sprintf("%d", cfg.RequestsPerSecond))

	proxy, err := iniFile.NewSection("proxy")
	if err != nil {
		return fmt.Errorf("failed to create proxy section: %w", err)
	}
	proxy.Key("mode").SetValue(cfg.ProxyMode)
	proxy.Key("host").SetValue(cfg.ProxyHost)
	proxy.Key("port").SetValue(fmt.Sprintf("%d", cfg.ProxyPort))
	proxy.Key("user").SetValue(cfg.ProxyUser)
	proxy.Key("no_proxy").SetValue(cfg.NoProxy)
	proxy.Key("warmup").SetValue(fmt.Sprintf("%t", cfg.ProxyWarmup))

	transfer, err := iniFile.NewSection("transfer")
	if err != nil {
		return fmt.Errorf("failed to create transfer section: %w", err)
	}
	transfer.Key("download_dir").SetValue(cfg.DownloadDir)
	transfer.Key("cleanup_grace_seconds").SetValue(fmt.Sprintf("%d", cfg.CleanupGraceSeconds))
	transfer.Key("retry_max").SetValue(fmt.Sprintf("%d", cfg.RetryMax))

	logging, err := iniFile.NewSection("logging")
	if err != nil {
		return fmt.Errorf("failed to create logging section: %w", err)
	}
	logging.Key("file").SetValue(cfg.LogFile)
	logging.Key("level").SetValue(cfg.LogLevel)
	logging.Key("desktop_notify").SetValue(fmt.Sprintf("%t", cfg.DesktopNotify))

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// ApplyEnv overlays environment variable overrides onto cfg.
func (cfg *Config) ApplyEnv() {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDownloadDir); v != "" {
		cfg.DownloadDir = expandHome(v)
	}
	if v := os.Getenv(EnvProxyPassword); v != "" {
		cfg.ProxyPassword = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks the configuration. Returns nil if valid.
func (cfg *Config) Validate() error {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}

	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}

	if cfg.CleanupGraceSeconds < 0 || cfg.CleanupGraceSeconds > 3600 {
		return ErrInvalidCleanupGrace
	}
	if cfg.RetryMax < 0 || cfg.RetryMax > 10 {
		return ErrInvalidRetryMax
	}
	if cfg.RequestsPerSecond < 0 || cfg.RequestsPerSecond > 1000 {
		return ErrInvalidRequestRate
	}
	return nil
}

// CleanupGrace returns the download cleanup delay as a duration.
func (cfg *Config) CleanupGrace() time.Duration {
	return time.Duration(cfg.CleanupGraceSeconds) * time.Second
}

// RequestTimeout returns the per-request timeout; zero means none.
func (cfg *Config) RequestTimeout() time.Duration {
	return time.Duration(cfg.TimeoutSeconds) * time.Second
}

// NormalizedBaseURL returns BaseURL without a trailing slash.
func (cfg *Config) NormalizedBaseURL() string {
	return strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
}

// resolveLogFile places a bare file name in LogDirectory.
func resolveLogFile(p string) string {
	if p == "" || filepath.Base(p) != p {
		return p
	}
	return filepath.Join(LogDirectory(), p)
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
