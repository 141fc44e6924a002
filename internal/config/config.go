package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/TrT-TOT/trigcond/internal/trigbits"
)

// Config holds the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Notify   NotifyConfig   `yaml:"notify"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds database connection settings. An empty URL
// keeps the service on the in-memory store.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds payload cache settings. An empty Addr disables
// the cache layer.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	CacheTTL int    `yaml:"cache_ttl"` // seconds (default: 300)
}

// AuthConfig holds API authentication settings. An empty secret
// leaves the mutating endpoints open.
type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// NotifyConfig holds update run notification settings.
type NotifyConfig struct {
	SlackWebhookURL string `yaml:"slack_webhook_url"`
}

// SnapshotConfig holds settings for periodic conditions exports.
type SnapshotConfig struct {
	Dir      string `yaml:"dir"`
	Schedule string `yaml:"schedule"` // cron expression, empty = disabled
	Parallel int    `yaml:"parallel"` // max concurrent tag exports (default: 4)
}

// defaults returns a Config populated with sensible default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{},
		Redis: RedisConfig{
			CacheTTL: 300,
		},
		Snapshot: SnapshotConfig{
			Dir:      "snapshots",
			Parallel: 4,
		},
	}
}

// applyEnv overlays environment variables onto cfg. Variables win over
// file values so deployments can keep secrets out of config.yaml.
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.SlackWebhookURL = v
	}
	if v := os.Getenv("TRIGCOND_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

// Load reads a YAML configuration file at path and returns a Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadDefault tries to load "config.yaml" from the current directory.
// If the file does not exist, it returns defaults with environment
// overrides applied. Any other error (e.g. permission denied,
// malformed YAML) is returned.
func LoadDefault() (*Config, error) {
	cfg, err := Load("config.yaml")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = defaults()
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}

// LoadUpdateSpec reads an update spec YAML file. A last_run below 1 is
// canonicalized to -1, the open-ended marker.
func LoadUpdateSpec(path string) (*trigbits.UpdateSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading update spec: %w", err)
	}

	spec := &trigbits.UpdateSpec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("parsing update spec: %w", err)
	}

	if spec.LastRun < 1 {
		spec.LastRun = -1
	}
	return spec, nil
}
