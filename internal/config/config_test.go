package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		APIBaseURL:          "http://127.0.0.1:8000/api",
		LogLevel:            "info",
		LogFile:             "agora.log",
		Env:                 "development",
		TracingExporter:     "stdout",
		TracingSamplerRatio: 1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
	}{
		{"Defaults are valid", func(*Config) {}, false},
		{"Missing base URL", func(c *Config) { c.APIBaseURL = "" }, true},
		{"Unsupported scheme", func(c *Config) { c.APIBaseURL = "ftp://example.com/api" }, true},
		{"Missing host", func(c *Config) { c.APIBaseURL = "http:///api" }, true},
		{"HTTPS base URL", func(c *Config) { c.APIBaseURL = "https://feed.example.com/api" }, false},
		{"Negative timeout", func(c *Config) { c.RequestTimeoutSeconds = -1 }, true},
		{"Negative cache TTL", func(c *Config) { c.CacheTTLSeconds = -5 }, true},
		{"Unknown log level", func(c *Config) { c.LogLevel = "verbose" }, true},
		{"Debug log level", func(c *Config) { c.LogLevel = "debug" }, false},
		{"Tracing with bad exporter", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "jaeger" }, true},
		{"Tracing with otlp", func(c *Config) { c.TracingEnabled = true; c.TracingExporter = "otlp" }, false},
		{"Tracing ratio out of range", func(c *Config) { c.TracingEnabled = true; c.TracingSamplerRatio = 2 }, true},
		{"Bad exporter ignored when disabled", func(c *Config) { c.TracingExporter = "jaeger" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("API_BASE_URL", "  https://feed.example.com/api/  ")
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "15")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://feed.example.com/api", c.APIBaseURL)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, 15*time.Second, c.RequestTimeout())
	assert.Equal(t, time.Hour, c.CacheTTL())
	assert.Empty(t, c.RedisURL)
}

func TestLoadConfig_MissingProfileIsTolerated(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "staging")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Env)
	assert.False(t, c.IsProduction())
	assert.Equal(t, ":memory:", c.DevAPIDatabase)
}
