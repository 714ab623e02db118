package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var logLevels = []string{"debug", "info", "warn", "error"}

// ValidateConfig checks that the configuration can be used. All problems
// are reported together.
func ValidateConfig(cfg *Config) error {
	var errs []error

	if u, err := url.Parse(cfg.APIURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{Field: "api_url", Message: "must be an absolute http(s) URL"})
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, ValidationError{Field: "request_timeout", Message: "must be positive"})
	}
	if cfg.CacheTTL < 0 {
		errs = append(errs, ValidationError{Field: "cache_ttl", Message: "must not be negative"})
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		errs = append(errs, ValidationError{Field: "log_level", Message: "must be one of debug, info, warn, error"})
	}

	switch cfg.SessionBackend {
	case SessionMemory:
	case SessionFile:
		if cfg.SessionFile == "" {
			errs = append(errs, ValidationError{Field: "session_file", Message: "is required for the file session backend"})
		}
	case SessionRedis:
		if !cfg.RedisEnabled() {
			errs = append(errs, ValidationError{Field: "redis_url", Message: "redis_url or redis_host is required for the redis session backend"})
		}
	default:
		errs = append(errs, ValidationError{Field: "session_backend", Message: "must be file, redis or memory"})
	}

	if cfg.RedisURL != "" {
		if err := validate.Var(cfg.RedisURL, "url"); err != nil {
			errs = append(errs, ValidationError{Field: "redis_url", Message: "must be a URL"})
		}
	}
	if cfg.RedisPort != "" {
		if err := validate.Var(cfg.RedisPort, "numeric"); err != nil {
			errs = append(errs, ValidationError{Field: "redis_port", Message: "must be numeric"})
		}
	}

	return errors.Join(errs...)
}

var validate = validator.New()
