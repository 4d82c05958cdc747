package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	InstallID string          `yaml:"install_id,omitempty"`
	Database  DatabaseConfig  `yaml:"database"`
	Feeds     FeedsConfig     `yaml:"feeds"`
	Directory DirectoryConfig `yaml:"directory"`
	Log       LogConfig       `yaml:"log"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type FeedsConfig struct {
	HTTPTimeout        string `yaml:"http_timeout"`
	RefreshInterval    string `yaml:"refresh_interval"`
	RetentionDays      int    `yaml:"retention_days"`
	DescriptionMaxLen  int    `yaml:"description_max_len"`
}

type DirectoryConfig struct {
	SearchURL string `yaml:"search_url"`
	LookupURL string `yaml:"lookup_url"`
	TopURL    string `yaml:"top_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GetHTTPTimeout parses the feed fetch timeout string
func (f *FeedsConfig) GetHTTPTimeout() (time.Duration, error) {
	return time.ParseDuration(f.HTTPTimeout)
}

// GetRefreshInterval parses the refresh interval string
func (f *FeedsConfig) GetRefreshInterval() (time.Duration, error) {
	return time.ParseDuration(f.RefreshInterval)
}

// Retention returns the cleanup window as a duration
func (f *FeedsConfig) Retention() time.Duration {
	return time.Duration(f.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand home directory in database path
	if cfg.Database.Path != "" {
		cfg.Database.Path = expandPath(cfg.Database.Path)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied, for use
// when no config file exists yet.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Database.Path = expandPath(cfg.Database.Path)
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "~/.local/share/podkeep/podkeep.db"
	}
	if cfg.Feeds.HTTPTimeout == "" {
		cfg.Feeds.HTTPTimeout = "30s"
	}
	if cfg.Feeds.RefreshInterval == "" {
		cfg.Feeds.RefreshInterval = "6h"
	}
	if cfg.Feeds.RetentionDays == 0 {
		cfg.Feeds.RetentionDays = 180
	}
	if cfg.Feeds.DescriptionMaxLen == 0 {
		cfg.Feeds.DescriptionMaxLen = 1000
	}
	if cfg.Directory.SearchURL == "" {
		cfg.Directory.SearchURL = "https://itunes.apple.com/search"
	}
	if cfg.Directory.LookupURL == "" {
		cfg.Directory.LookupURL = "https://itunes.apple.com/lookup"
	}
	if cfg.Directory.TopURL == "" {
		cfg.Directory.TopURL = "https://itunes.apple.com/us/rss/toppodcasts"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".config", "podkeep", "config.yaml")
}
