// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	APIBaseURL            string  `mapstructure:"API_BASE_URL"`
	RequestTimeoutSeconds int     `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	RedisURL              string  `mapstructure:"REDIS_URL"`
	CacheTTLSeconds       int     `mapstructure:"CACHE_TTL_SECONDS"`
	LogLevel              string  `mapstructure:"LOG_LEVEL"`
	LogFile               string  `mapstructure:"LOG_FILE"`
	Env                   string  `mapstructure:"APP_ENV"`
	MetricsAddr           string  `mapstructure:"METRICS_ADDR"`
	TracingEnabled        bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter       string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint          string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio   float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
	DevAPIPort            string  `mapstructure:"DEV_API_PORT"`
	DevAPISecret          string  `mapstructure:"DEV_API_SECRET"`
	DevAPISeedPosts       int     `mapstructure:"DEV_API_SEED_POSTS"`
	DevAPIDatabase        string  `mapstructure:"DEV_API_DATABASE"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read profile config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	viper.SetDefault("API_BASE_URL", "http://127.0.0.1:8000/api")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 0)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CACHE_TTL_SECONDS", 3600)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "agora.log")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("METRICS_ADDR", "")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("DEV_API_PORT", "8000")
	viper.SetDefault("DEV_API_SECRET", "agora-dev-secret-change-me")
	viper.SetDefault("DEV_API_SEED_POSTS", 12)
	viper.SetDefault("DEV_API_DATABASE", ":memory:")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.APIBaseURL = strings.TrimRight(strings.TrimSpace(config.APIBaseURL), "/")
	config.LogLevel = strings.ToLower(strings.TrimSpace(config.LogLevel))
	config.TracingExporter = strings.ToLower(strings.TrimSpace(config.TracingExporter))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate ensures that required configuration values are present and well formed.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("API_BASE_URL is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("API_BASE_URL must include a host")
	}
	if c.RequestTimeoutSeconds < 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS cannot be negative")
	}
	if c.CacheTTLSeconds < 0 {
		return errors.New("CACHE_TTL_SECONDS cannot be negative")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error; got %q", c.LogLevel)
	}

	if c.TracingEnabled {
		switch c.TracingExporter {
		case "stdout", "otlp":
		default:
			return fmt.Errorf("TRACING_EXPORTER must be stdout or otlp; got %q", c.TracingExporter)
		}
		if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
			return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
		}
	}

	if c.IsProduction() && u.Scheme != "https" {
		log.Println("WARNING: API_BASE_URL is not https in production. Credentials are sent on every request.")
	}

	return nil
}

// IsProduction reports whether the production profile is active.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// RequestTimeout returns the optional per-request timeout. Zero means none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// CacheTTL returns how long last-known-good reads are retained.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}
