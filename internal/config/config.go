package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Exercises ExercisesConfig `yaml:"exercises"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	NATS      NATSConfig      `yaml:"nats"`
}

// ExercisesConfig describes the remote exercise repository and its local mirror.
type ExercisesConfig struct {
	RepoURL        string      `yaml:"repo_url"`
	LocalPath      string      `yaml:"local_path"`
	Branch         string      `yaml:"branch"`
	SyncIntervalMS int64       `yaml:"sync_interval_ms"`
	Timeout        string      `yaml:"timeout,omitempty"` // bound for each clone/fetch/pull, e.g. "2m"
	Auth           *AuthConfig `yaml:"auth,omitempty"`
}

// SyncInterval returns the fixed-rate period of the scheduled sync.
func (e ExercisesConfig) SyncInterval() time.Duration {
	return time.Duration(e.SyncIntervalMS) * time.Millisecond
}

// NetworkTimeout returns the parsed network timeout, or the default when unset or invalid.
func (e ExercisesConfig) NetworkTimeout() time.Duration {
	d, err := time.ParseDuration(e.Timeout)
	if err != nil || d <= 0 {
		return DefaultNetworkTimeout
	}
	return d
}

// AuthConfig represents authentication against the exercise remote.
type AuthConfig struct {
	Type     AuthType `yaml:"type"`
	Username string   `yaml:"username,omitempty"`
	Password string   `yaml:"password,omitempty"`
	Token    string   `yaml:"token,omitempty"`
	KeyPath  string   `yaml:"key_path,omitempty"`
}

// DatabaseConfig selects and configures the exercise store backend.
type DatabaseConfig struct {
	Driver         DatabaseDriver `yaml:"driver"`
	DSN            string         `yaml:"dsn"`
	ConnectTimeout string         `yaml:"connect_timeout,omitempty"`
}

// ConnectTimeoutDuration returns how long store opening may retry before giving up.
func (d DatabaseConfig) ConnectTimeoutDuration() time.Duration {
	v, err := time.ParseDuration(d.ConnectTimeout)
	if err != nil || v <= 0 {
		return DefaultConnectTimeout
	}
	return v
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// NATSConfig controls forwarding of sync events to NATS.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// Load reads configuration from configPath, overlays environment variables and
// applies defaults. A missing file is not an error: the service can be configured
// from the environment alone.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	var cfg Config
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, configError("failed to parse configuration file", err).WithContext("path", configPath).Build()
		}
	case os.IsNotExist(err):
		fmt.Fprintf(os.Stderr, "Note: configuration file %s not found, using environment only\n", configPath)
	default:
		return nil, configError("failed to read configuration file", err).WithContext("path", configPath).Build()
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}
	var cfg Config
	applyDefaults(&cfg)
	cfg.Exercises.RepoURL = "https://github.com/exercism/python.git"
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal example configuration: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("write configuration file: %w", err)
	}
	return nil
}
