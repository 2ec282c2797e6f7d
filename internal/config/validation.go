package config

import (
	"net/url"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

func configError(message string, cause error) *ferrors.ErrorBuilder {
	b := ferrors.ConfigError(message)
	if cause != nil {
		b.WithCause(cause)
	}
	return b
}

// Validate checks cfg for values the service cannot run with. Enum fields are
// normalized in place.
func Validate(cfg *Config) error {
	if err := validateExercises(&cfg.Exercises); err != nil {
		return err
	}
	if err := validateDatabase(&cfg.Database); err != nil {
		return err
	}
	if cfg.NATS.Enabled && strings.TrimSpace(cfg.NATS.URL) == "" {
		return configError("nats.url is required when nats is enabled", nil).Build()
	}
	if cfg.Metrics.Enabled && strings.TrimSpace(cfg.Metrics.Listen) == "" {
		return configError("metrics.listen is required when metrics are enabled", nil).Build()
	}
	return nil
}

func validateExercises(ex *ExercisesConfig) error {
	if strings.TrimSpace(ex.RepoURL) == "" {
		return configError("exercises.repo_url is required", nil).Build()
	}
	if !looksLikeRemote(ex.RepoURL) {
		return configError("exercises.repo_url is not a valid repository URL", nil).
			WithContext("repo_url", ex.RepoURL).Build()
	}
	if strings.TrimSpace(ex.LocalPath) == "" {
		return configError("exercises.local_path is required", nil).Build()
	}
	if strings.TrimSpace(ex.Branch) == "" {
		return configError("exercises.branch is required", nil).Build()
	}
	if ex.SyncIntervalMS <= 0 {
		return configError("exercises.sync_interval_ms must be positive", nil).
			WithContext("sync_interval_ms", ex.SyncIntervalMS).Build()
	}
	if ex.Timeout != "" {
		if d, err := time.ParseDuration(ex.Timeout); err != nil || d <= 0 {
			return configError("exercises.timeout must be a positive duration", err).
				WithContext("timeout", ex.Timeout).Build()
		}
	}
	if ex.Auth != nil {
		t, err := authTypeNormalizer.Parse(string(ex.Auth.Type))
		if err != nil {
			return configError("exercises.auth.type is invalid", err).Build()
		}
		ex.Auth.Type = t
		switch t {
		case AuthTypeToken:
			if ex.Auth.Token == "" {
				return configError("token authentication requires a token", nil).Build()
			}
		case AuthTypeBasic:
			if ex.Auth.Username == "" || ex.Auth.Password == "" {
				return configError("basic authentication requires username and password", nil).Build()
			}
		}
	}
	return nil
}

func validateDatabase(db *DatabaseConfig) error {
	driver, err := databaseDriverNormalizer.Parse(string(db.Driver))
	if err != nil {
		return configError("database.driver is invalid", err).Build()
	}
	db.Driver = driver
	if driver != DatabaseMemory && strings.TrimSpace(db.DSN) == "" {
		return configError("database.dsn is required", nil).WithContext("driver", string(driver)).Build()
	}
	return nil
}

// looksLikeRemote accepts URLs with a scheme, scp-like ssh remotes and local paths.
func looksLikeRemote(raw string) bool {
	if strings.HasPrefix(raw, "git@") || strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, ".") {
		return true
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && (u.Host != "" || u.Scheme == "file")
}
