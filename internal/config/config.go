// Package config provides configuration management for the stock monitor.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Monitor       MonitorConfig      `mapstructure:"monitor"`
	Provider      ProviderConfig     `mapstructure:"provider"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Analyze       AnalyzeConfig      `mapstructure:"analyze"`
	Notifications NotificationConfig `mapstructure:"notifications"`
}

// MonitorConfig holds settings for one monitoring pass.
type MonitorConfig struct {
	WatchlistPath string `mapstructure:"watchlist_path"`
	Workers       int    `mapstructure:"workers"`
}

// ProviderConfig holds market-data provider settings.
type ProviderConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// StorageConfig holds alert-state persistence settings.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// AnalyzeConfig holds historical what-if analysis settings.
type AnalyzeConfig struct {
	LookbackDays int       `mapstructure:"lookback_days"`
	Thresholds   []float64 `mapstructure:"thresholds"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Pushover PushoverConfig `mapstructure:"pushover"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// PushoverConfig holds Pushover push notification configuration.
type PushoverConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	UserKey  string `mapstructure:"user_key"`
	APIToken string `mapstructure:"api_token"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/stock-monitor"
	}
	return filepath.Join(home, ".config", "stock-monitor")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	setDefaults(v, configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		// First run: write a template the user can edit.
		if err := createTemplateConfig(configDir); err != nil {
			return nil, fmt.Errorf("creating config template: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("monitor.watchlist_path", filepath.Join(configDir, "watchlist.csv"))
	v.SetDefault("monitor.workers", 4)
	v.SetDefault("provider.timeout", 15*time.Second)
	v.SetDefault("provider.max_attempts", 3)
	v.SetDefault("storage.db_path", filepath.Join(configDir, "monitor.db"))
	v.SetDefault("analyze.lookback_days", 30)
	v.SetDefault("analyze.thresholds", []float64{0.1, 0.5, 1.0, 2.0, 3.0, 4.0, 5.0})
	v.SetDefault("notifications.enabled", true)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PUSHOVER_USER_KEY"); v != "" {
		cfg.Notifications.Pushover.UserKey = v
	}
	if v := os.Getenv("PUSHOVER_API_TOKEN"); v != "" {
		cfg.Notifications.Pushover.APIToken = v
	}
	if v := os.Getenv("MONITOR_WATCHLIST"); v != "" {
		cfg.Monitor.WatchlistPath = v
	}
	if v := os.Getenv("MONITOR_DB"); v != "" {
		cfg.Storage.DBPath = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Monitor.Workers < 1 {
		return fmt.Errorf("monitor.workers must be at least 1")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.Provider.MaxAttempts < 1 {
		return fmt.Errorf("provider.max_attempts must be at least 1")
	}
	if c.Analyze.LookbackDays < 1 {
		return fmt.Errorf("analyze.lookback_days must be at least 1")
	}
	for _, t := range c.Analyze.Thresholds {
		if t < 0 {
			return fmt.Errorf("analyze.thresholds must be non-negative, got %v", t)
		}
	}
	if c.Notifications.Pushover.Enabled {
		if c.Notifications.Pushover.UserKey == "" || c.Notifications.Pushover.APIToken == "" {
			return fmt.Errorf("pushover enabled but user_key/api_token missing")
		}
	}
	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return fmt.Errorf("webhook enabled but url missing")
	}
	return nil
}
