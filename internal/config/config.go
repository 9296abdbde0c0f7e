// Package config handles YAML configuration for the OpenStack checks.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Cloud     CloudConfig     `yaml:"cloud"`
	OTEL      OTELConfig      `yaml:"otel"`
	Metrics   MetricsFile     `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
	Endpoints EndpointsConfig `yaml:"endpoints"`
}

// CloudConfig holds OpenStack connection settings.
type CloudConfig struct {
	// EnvFile is a novarc-style file with OS_* variables, loaded before the environment is read.
	EnvFile       string        `yaml:"env_file"`
	Region        string        `yaml:"region"`
	Interface     string        `yaml:"interface"`
	OSCredentials string        `yaml:"os_credentials"`
	TimeoutStr    string        `yaml:"timeout"`
	Timeout       time.Duration `yaml:"-"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Insecure    bool          `yaml:"insecure"`
	ServiceName string        `yaml:"service_name"`
	Traces      TracesConfig  `yaml:"traces"`
	Metrics     MetricsConfig `yaml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sample_rate"`
}

// MetricsConfig holds OTLP metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsFile configures the Prometheus textfile written after each check.
// The resource type is appended to the file name, one file per kind.
type MetricsFile struct {
	Textfile string `yaml:"textfile"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// EndpointsConfig controls which Keystone catalog endpoints get URL checks.
type EndpointsConfig struct {
	CheckPublicURLs   bool              `yaml:"check_public_urls"`
	CheckInternalURLs bool              `yaml:"check_internal_urls"`
	CheckAdminURLs    bool              `yaml:"check_admin_urls"`
	TLSWarnDays       int               `yaml:"tls_warn_days"`
	TLSCritDays       int               `yaml:"tls_crit_days"`
	CheckHTTP         string            `yaml:"check_http"`
	HealthChecks      map[string]string `yaml:"health_checks"`
}

// Interfaces returns the endpoint interfaces enabled for URL checks.
func (e EndpointsConfig) Interfaces() map[string]bool {
	return map[string]bool{
		"public":   e.CheckPublicURLs,
		"internal": e.CheckInternalURLs,
		"admin":    e.CheckAdminURLs,
	}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Endpoints.CheckPublicURLs = true
	applyDefaults(cfg)
	// always valid
	_ = parseTimeout(cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	cfg.Endpoints.CheckPublicURLs = true
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseTimeout(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "openstack-service-checks"
	}
	if cfg.Cloud.Interface == "" {
		cfg.Cloud.Interface = "public"
	}
	if cfg.Cloud.TimeoutStr == "" {
		cfg.Cloud.TimeoutStr = "30s"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.Endpoints.TLSWarnDays == 0 {
		cfg.Endpoints.TLSWarnDays = 30
	}
	if cfg.Endpoints.TLSCritDays == 0 {
		cfg.Endpoints.TLSCritDays = 14
	}
	if cfg.Endpoints.CheckHTTP == "" {
		cfg.Endpoints.CheckHTTP = "/usr/lib/nagios/plugins/check_http"
	}
}

func parseTimeout(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Cloud.TimeoutStr)
	if err != nil {
		return fmt.Errorf("parse timeout %q: %w", cfg.Cloud.TimeoutStr, err)
	}
	cfg.Cloud.Timeout = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	switch c.Cloud.Interface {
	case "public", "internal", "admin":
	default:
		return fmt.Errorf("cloud: interface must be public, internal or admin (got %q)", c.Cloud.Interface)
	}
	if c.Cloud.Timeout <= 0 {
		return fmt.Errorf("cloud: timeout must be positive (got %s)", c.Cloud.Timeout)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	if c.Endpoints.TLSWarnDays < c.Endpoints.TLSCritDays {
		return fmt.Errorf("endpoints: tls_warn_days (%d) must not be below tls_crit_days (%d)",
			c.Endpoints.TLSWarnDays, c.Endpoints.TLSCritDays)
	}
	return nil
}
