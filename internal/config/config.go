package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Market struct {
		BaseURL      string `yaml:"base_url"`
		Currency     string `yaml:"currency"`
		PageSize     int    `yaml:"page_size"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"market"`
	Refresh struct {
		IntervalSeconds int    `yaml:"interval_seconds"`
		Order           string `yaml:"order"`
		Timeframe       string `yaml:"timeframe"`
	} `yaml:"refresh"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Database struct {
		SQLitePath    string `yaml:"sqlite_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"database"`
	Prefs struct {
		File string `yaml:"file"`
	} `yaml:"prefs"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSizeMB  int    `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is fine; defaults carry the day.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("MARKET_BASE_URL"); v != "" {
		cfg.Market.BaseURL = v
	}
	if v := os.Getenv("MARKET_CURRENCY"); v != "" {
		cfg.Market.Currency = v
	}
	if v := os.Getenv("REFRESH_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Refresh.IntervalSeconds = n
		}
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.Market.BaseURL == "" {
		cfg.Market.BaseURL = "https://api.coingecko.com/api/v3"
	}
	if cfg.Market.Currency == "" {
		cfg.Market.Currency = "usd"
	}
	if cfg.Market.PageSize == 0 {
		cfg.Market.PageSize = 10
	}
	if cfg.Market.LookbackDays == 0 {
		cfg.Market.LookbackDays = 200
	}
	if cfg.Refresh.IntervalSeconds == 0 {
		cfg.Refresh.IntervalSeconds = 60
	}
	if cfg.Refresh.Order == "" {
		cfg.Refresh.Order = "market_cap_desc"
	}
	if cfg.Refresh.Timeframe == "" {
		cfg.Refresh.Timeframe = "30d"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8380"
	}
	if cfg.Database.RetentionDays == 0 {
		cfg.Database.RetentionDays = 30
	}
	if cfg.Prefs.File == "" {
		cfg.Prefs.File = "data/prefs.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}

	return cfg, nil
}

// Interval returns the refresh interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Market.PageSize <= 0 || c.Market.PageSize > 250 {
		return fmt.Errorf("market.page_size must be in 1..250")
	}
	if c.Market.LookbackDays <= 0 {
		return fmt.Errorf("market.lookback_days must be positive")
	}
	if c.Refresh.IntervalSeconds < 10 {
		return fmt.Errorf("refresh.interval_seconds must be at least 10")
	}
	switch c.Refresh.Order {
	case "market_cap_desc", "volume_desc":
	default:
		return fmt.Errorf("refresh.order must be market_cap_desc or volume_desc")
	}
	switch c.Refresh.Timeframe {
	case "7d", "30d":
	default:
		return fmt.Errorf("refresh.timeframe must be 7d or 30d")
	}
	return nil
}
