package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables recognized on top of the YAML file.
const (
	EnvRepoURL        = "CORTEX_EXERCISES_REPO_URL"
	EnvLocalPath      = "CORTEX_EXERCISES_LOCAL_PATH"
	EnvBranch         = "CORTEX_EXERCISES_BRANCH"
	EnvSyncIntervalMS = "CORTEX_EXERCISES_SYNC_INTERVAL_MS"
	EnvGitToken       = "CORTEX_EXERCISES_TOKEN"
	EnvDatabaseDriver = "CORTEX_DATABASE_DRIVER"
	EnvDatabaseDSN    = "CORTEX_DATABASE_DSN"
	EnvLogLevel       = "CORTEX_LOG_LEVEL"
	EnvNATSURL        = "CORTEX_NATS_URL"
)

var envFiles = []string{".env", ".env.local"}

// loadEnvFiles loads .env/.env.local when present. Existing process environment
// variables are never overwritten.
func loadEnvFiles() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			fmt.Fprintf(os.Stderr, "Note: could not load %s: %v\n", path, err)
			continue
		}
		fmt.Fprintf(os.Stderr, "Loaded environment variables from %s\n", path)
	}
}

// applyEnvOverrides copies set environment variables onto cfg.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := lookupEnv(EnvRepoURL); ok {
		cfg.Exercises.RepoURL = v
	}
	if v, ok := lookupEnv(EnvLocalPath); ok {
		cfg.Exercises.LocalPath = v
	}
	if v, ok := lookupEnv(EnvBranch); ok {
		cfg.Exercises.Branch = v
	}
	if v, ok := lookupEnv(EnvSyncIntervalMS); ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return configError("invalid "+EnvSyncIntervalMS, err).WithContext("value", v).Build()
		}
		cfg.Exercises.SyncIntervalMS = ms
	}
	if v, ok := lookupEnv(EnvGitToken); ok {
		if cfg.Exercises.Auth == nil {
			cfg.Exercises.Auth = &AuthConfig{Type: AuthTypeToken}
		}
		cfg.Exercises.Auth.Token = v
	}
	if v, ok := lookupEnv(EnvDatabaseDriver); ok {
		cfg.Database.Driver = DatabaseDriver(v)
	}
	if v, ok := lookupEnv(EnvDatabaseDSN); ok {
		cfg.Database.DSN = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok {
		cfg.Logging.Level = LogLevel(v)
	}
	if v, ok := lookupEnv(EnvNATSURL); ok {
		cfg.NATS.URL = v
		cfg.NATS.Enabled = true
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
