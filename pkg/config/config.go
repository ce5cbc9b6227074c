package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hallmark configuration.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	User      string          `yaml:"user"`
	LogLevel  string          `yaml:"log_level"`
	Store     StoreConfig     `yaml:"store"`
	Providers ProvidersConfig `yaml:"providers"`
}

// StoreConfig selects where cached spot prices live.
// Backend is "sqlite" (default) or "redis".
type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig points at a shared Redis instance.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ProvidersConfig lists spot-price endpoints in fallback order.
type ProvidersConfig struct {
	Timeout   time.Duration    `yaml:"timeout"`
	UserAgent string           `yaml:"user_agent"`
	Endpoints []EndpointConfig `yaml:"endpoints"`
}

// EndpointConfig defines one upstream price API.
// Type is "goldapi" (default) or "metalpriceapi". FallbackURLs are tried
// after URL with the same type and key.
type EndpointConfig struct {
	Name         string   `yaml:"name"`
	Type         string   `yaml:"type"`
	URL          string   `yaml:"url"`
	APIKey       string   `yaml:"api_key"`
	FallbackURLs []string `yaml:"fallback_urls"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		DataDir:  "data",
		User:     "default",
		LogLevel: "info",
		Store: StoreConfig{
			Backend: "sqlite",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Providers: ProvidersConfig{
			Timeout:   10 * time.Second,
			UserAgent: "hallmark/1.0",
			Endpoints: []EndpointConfig{
				{Name: "goldapi", Type: "goldapi", URL: "https://api.gold-api.com"},
			},
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the rest of the program cannot use.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "", "sqlite", "redis":
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}
	if c.Providers.Timeout < 0 {
		return fmt.Errorf("config: providers.timeout must not be negative")
	}
	for i, ep := range c.Providers.Endpoints {
		switch ep.Type {
		case "", "goldapi", "metalpriceapi":
		default:
			return fmt.Errorf("config: endpoint %d (%s): unknown type %q", i, ep.Name, ep.Type)
		}
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
