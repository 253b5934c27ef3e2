// Package config provides YAML-based configuration with environment
// variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the root configuration structure.
type AppConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Upload  UploadConfig  `yaml:"upload"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig contains HTTP server settings for the gateway itself.
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bind_address"`
	EnableCORS   bool   `yaml:"enable_cors"`
	AllowOrigins string `yaml:"allow_origins"`
	ReadTimeout  int    `yaml:"read_timeout_seconds"`
	WriteTimeout int    `yaml:"write_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	BodyLimit    string `yaml:"body_limit"`
}

// BackendConfig describes where the proxy boundary forwards requests.
type BackendConfig struct {
	// BaseURL is the public backend address, e.g. http://localhost:8000.
	BaseURL string `yaml:"base_url"`
	// InternalBaseURL, when set, is preferred over BaseURL for server-side
	// calls (container-to-container addressing).
	InternalBaseURL string `yaml:"internal_base_url"`
	FilesPath       string `yaml:"files_path"`
	UploadPath      string `yaml:"upload_path"`
	QueryPath       string `yaml:"query_path"`
	RequestTimeout  int    `yaml:"request_timeout_seconds"`
	// MockFallback keeps the UI usable without a reachable backend: the
	// files listing serves a demo payload and status checks default to
	// "processing" instead of erroring.
	MockFallback bool `yaml:"mock_fallback"`
}

// UploadConfig contains client-side upload and polling settings.
type UploadConfig struct {
	MaxSizeMB           int  `yaml:"max_size_mb"`
	SimulatedProcessing bool `yaml:"simulated_processing"`
	SimulatedDelayMs    int  `yaml:"simulated_delay_ms"`
	PollMaxAttempts     int  `yaml:"poll_max_attempts"`
	PollIntervalMs      int  `yaml:"poll_interval_ms"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level                string `yaml:"level"`
	Pretty               bool   `yaml:"pretty"`
	EnableRequestLogging bool   `yaml:"enable_request_logging"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         3000,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 60,
			IdleTimeout:  120,
			BodyLimit:    "64M",
		},
		Backend: BackendConfig{
			BaseURL:        "",
			FilesPath:      "/api/files",
			UploadPath:     "/api/upload",
			QueryPath:      "/api/query",
			RequestTimeout: 30,
			MockFallback:   true,
		},
		Upload: UploadConfig{
			MaxSizeMB:           50,
			SimulatedProcessing: false,
			SimulatedDelayMs:    1200,
			PollMaxAttempts:     8,
			PollIntervalMs:      2000,
		},
		Log: LogConfig{
			Level:                "info",
			Pretty:               false,
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file is not an
// error: the default config is written there for the next run.
func LoadConfig(configPath string) (*AppConfig, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		cfg.applyEnvironmentOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *AppConfig) Save(configPath string) error {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# DocuWise gateway configuration\n# This file is auto-generated on first run.\n\n")
	if err := os.WriteFile(configPath, append(header, out...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config
// values. The names match what the original deployment used.
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("API_BASE_URL_INTERNAL"); v != "" {
		c.Backend.InternalBaseURL = v
	}
	if v := os.Getenv("BACKEND_FILES_PATH"); v != "" {
		c.Backend.FilesPath = v
	}
	if v := os.Getenv("BACKEND_QUERY_PATH"); v != "" {
		c.Backend.QueryPath = v
	}
}

// Addr returns the gateway bind address.
func (c *AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// BackendBase returns the backend base URL to use for server-side calls,
// preferring the internal address when both are configured. Empty when no
// backend is configured at all.
func (c *BackendConfig) BackendBase() string {
	if c.InternalBaseURL != "" {
		return strings.TrimRight(c.InternalBaseURL, "/")
	}
	return strings.TrimRight(c.BaseURL, "/")
}

// HasBackend reports whether any backend address is configured.
func (c *BackendConfig) HasBackend() bool {
	return c.BackendBase() != ""
}

// FilesURL returns the backend files listing URL, with an optional limit.
func (c *BackendConfig) FilesURL(limit string) string {
	u := c.BackendBase() + c.FilesPath
	if limit != "" {
		u += "?limit=" + url.QueryEscape(limit)
	}
	return u
}

// UploadURL returns the backend upload URL.
func (c *BackendConfig) UploadURL() string {
	return c.BackendBase() + c.UploadPath
}

// StatusURL returns the backend processing-status URL for a file.
func (c *BackendConfig) StatusURL(id string) string {
	return c.BackendBase() + c.FilesPath + "/" + url.PathEscape(id) + "/status"
}

// QueryURL returns the backend question-answering URL.
func (c *BackendConfig) QueryURL() string {
	return c.BackendBase() + c.QueryPath
}
