package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Feed    FeedConfig    `mapstructure:"feed"`
	Scanner ScannerConfig `mapstructure:"scanner"`
	Cluster ClusterConfig `mapstructure:"cluster"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// FeedConfig holds unusual-options feed configuration
type FeedConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	Limit          int           `mapstructure:"limit"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	RatePerSec     float64       `mapstructure:"rate_per_sec"`
}

// ScannerConfig holds the per-trade and per-group signal thresholds
type ScannerConfig struct {
	MinPremiumLarge  float64       `mapstructure:"min_premium_large"`
	MinPremiumGolden float64       `mapstructure:"min_premium_golden"`
	MaxDTEGolden     int           `mapstructure:"max_dte_golden"`
	MinVolOI         float64       `mapstructure:"min_vol_oi"`
	AggressiveRatio  float64       `mapstructure:"aggressive_last_ask_ratio"`
	Window           time.Duration `mapstructure:"window"`
}

// ClusterConfig holds the premium-cluster detection thresholds
type ClusterConfig struct {
	MinPremium    float64 `mapstructure:"min_premium"`
	StrikeBandPct float64 `mapstructure:"strike_band_pct"`
	DateBandDays  int     `mapstructure:"date_band_days"`
	PremiumJump   float64 `mapstructure:"premium_jump"`
}

// NotifyConfig holds outbound notification configuration
type NotifyConfig struct {
	WebhookLarge   string         `mapstructure:"webhook_large"`
	WebhookGolden  string         `mapstructure:"webhook_golden"`
	WebhookCluster string         `mapstructure:"webhook_cluster"`
	PerRunCap      int            `mapstructure:"per_run_cap"`
	SendDelay      time.Duration  `mapstructure:"send_delay"`
	Console        bool           `mapstructure:"console"`
	Telegram       TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds the optional Telegram notification channel
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds state persistence configuration
type StorageConfig struct {
	DBPath           string        `mapstructure:"db_path"`
	PostedRetention  time.Duration `mapstructure:"posted_retention"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix("SWEEPWATCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Feed defaults
	v.SetDefault("feed.base_url", "https://www.barchart.com")
	v.SetDefault("feed.poll_interval", "5m")
	v.SetDefault("feed.limit", 100)
	v.SetDefault("feed.timeout", "30s")
	v.SetDefault("feed.max_retries", 3)
	v.SetDefault("feed.retry_delay_base", "1s")
	v.SetDefault("feed.rate_per_sec", 1.0)

	// Scanner defaults
	v.SetDefault("scanner.min_premium_large", 200000.0)
	v.SetDefault("scanner.min_premium_golden", 1000000.0)
	v.SetDefault("scanner.max_dte_golden", 14)
	v.SetDefault("scanner.min_vol_oi", 1.5)
	v.SetDefault("scanner.aggressive_last_ask_ratio", 0.95)
	v.SetDefault("scanner.window", "10m")

	// Cluster defaults
	v.SetDefault("cluster.min_premium", 3000000.0)
	v.SetDefault("cluster.strike_band_pct", 5.0)
	v.SetDefault("cluster.date_band_days", 7)
	v.SetDefault("cluster.premium_jump", 200000.0)

	// Notify defaults
	v.SetDefault("notify.per_run_cap", 15)
	v.SetDefault("notify.send_delay", "400ms")
	v.SetDefault("notify.console", false)
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.max_retries", 3)
	v.SetDefault("notify.telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.db_path", "./data/sweepwatch.db")
	v.SetDefault("storage.posted_retention", "48h")
	v.SetDefault("storage.history_retention", "168h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is required")
	}
	if c.Feed.PollInterval < 1*time.Minute {
		return fmt.Errorf("feed.poll_interval must be at least 1 minute")
	}
	if c.Feed.Limit < 1 || c.Feed.Limit > 1000 {
		return fmt.Errorf("feed.limit must be between 1 and 1000")
	}
	if c.Feed.RatePerSec <= 0 {
		return fmt.Errorf("feed.rate_per_sec must be positive")
	}

	if c.Scanner.MinPremiumLarge < 0 {
		return fmt.Errorf("scanner.min_premium_large must not be negative")
	}
	if c.Scanner.MinPremiumGolden < c.Scanner.MinPremiumLarge {
		return fmt.Errorf("scanner.min_premium_golden must be at least scanner.min_premium_large")
	}
	if c.Scanner.MaxDTEGolden < 0 {
		return fmt.Errorf("scanner.max_dte_golden must not be negative")
	}
	if c.Scanner.MinVolOI < 0 {
		return fmt.Errorf("scanner.min_vol_oi must not be negative")
	}
	if c.Scanner.AggressiveRatio <= 0 || c.Scanner.AggressiveRatio > 1.0 {
		return fmt.Errorf("scanner.aggressive_last_ask_ratio must be in (0, 1]")
	}
	if c.Scanner.Window < 1*time.Minute {
		return fmt.Errorf("scanner.window must be at least 1 minute")
	}

	if c.Cluster.MinPremium < 0 {
		return fmt.Errorf("cluster.min_premium must not be negative")
	}
	if c.Cluster.StrikeBandPct <= 0 {
		return fmt.Errorf("cluster.strike_band_pct must be positive")
	}
	if c.Cluster.DateBandDays < 0 {
		return fmt.Errorf("cluster.date_band_days must not be negative")
	}
	if c.Cluster.PremiumJump < 0 {
		return fmt.Errorf("cluster.premium_jump must not be negative")
	}

	if c.Notify.PerRunCap < 1 {
		return fmt.Errorf("notify.per_run_cap must be at least 1")
	}
	if c.Notify.SendDelay < 0 {
		return fmt.Errorf("notify.send_delay must not be negative")
	}
	if c.Notify.Telegram.Enabled {
		if c.Notify.Telegram.BotToken == "" {
			return fmt.Errorf("notify.telegram.bot_token is required when telegram is enabled")
		}
		if c.Notify.Telegram.ChatID == "" {
			return fmt.Errorf("notify.telegram.chat_id is required when telegram is enabled")
		}
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}
	if c.Storage.PostedRetention < time.Hour {
		return fmt.Errorf("storage.posted_retention must be at least 1 hour")
	}
	if c.Storage.HistoryRetention < c.Storage.PostedRetention {
		return fmt.Errorf("storage.history_retention must be at least storage.posted_retention")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
