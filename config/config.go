package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RECIPEBOOK_API_URL
const EnvPrefix = "RECIPEBOOK"

// Session backends
const (
	SessionFile   = "file"
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

// Config holds all configuration for the client
type Config struct {
	Env            string        `mapstructure:"env"`
	APIURL         string        `mapstructure:"api_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	LogLevel       string        `mapstructure:"log_level"`

	// Session persistence
	SessionBackend string `mapstructure:"session_backend"`
	SessionFile    string `mapstructure:"session_file"`
	SessionProfile string `mapstructure:"session_profile"`

	// Redis configuration, used by the redis session backend and the
	// shared query cache
	RedisURL      string `mapstructure:"redis_url"`
	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// CacheTTL bounds shared query cache entries; zero turns the shared
	// cache off
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	S3Region string `mapstructure:"s3_region"`
}

// Environment returns the parsed Env
func (c *Config) Environment() Environment {
	return ParseEnvironment(c.Env)
}

// RedisEnabled reports whether any Redis address is configured
func (c *Config) RedisEnabled() bool {
	return c.RedisURL != "" || c.RedisHost != ""
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "recipebook", "session.json")
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("recipebook")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "recipebook"))
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("env", string(Development))
	v.SetDefault("api_url", "http://localhost:8000/api")
	v.SetDefault("request_timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("session_backend", SessionFile)
	v.SetDefault("session_file", defaultSessionFile())
	v.SetDefault("session_profile", "default")
	v.SetDefault("redis_url", "")
	v.SetDefault("redis_host", "")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("s3_region", "")
	return v
}

// LoadConfig reads .env, an optional recipebook.yaml (or the file at path
// when given) and RECIPEBOOK_* environment variables, in increasing order
// of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}
