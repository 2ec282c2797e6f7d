package config

import (
	"path/filepath"
	"time"
)

const (
	DefaultBranch         = "main"
	DefaultSyncIntervalMS = int64(5 * time.Minute / time.Millisecond)
	DefaultNetworkTimeout = 2 * time.Minute
	DefaultConnectTimeout = 30 * time.Second
	DefaultMetricsListen  = ":9090"
	DefaultNATSSubject    = "cortex.exercises"
	DefaultDataDir        = "./data"
)

// applyDefaults fills every unset field with its default value.
func applyDefaults(cfg *Config) {
	ex := &cfg.Exercises
	if ex.Branch == "" {
		ex.Branch = DefaultBranch
	}
	if ex.LocalPath == "" {
		ex.LocalPath = filepath.Join(DefaultDataDir, "exercises")
	}
	if ex.SyncIntervalMS <= 0 {
		ex.SyncIntervalMS = DefaultSyncIntervalMS
	}
	if ex.Timeout == "" {
		ex.Timeout = DefaultNetworkTimeout.String()
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DatabaseSQLite
	}
	if cfg.Database.Driver == DatabaseSQLite && cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(DefaultDataDir, "cortex.db")
	}

	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = DefaultNATSSubject
	}
}
