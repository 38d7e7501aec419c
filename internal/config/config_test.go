package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Feed: FeedConfig{
			BaseURL:      "https://www.barchart.com",
			PollInterval: 5 * time.Minute,
			Limit:        100,
			Timeout:      30 * time.Second,
			RatePerSec:   1,
		},
		Scanner: ScannerConfig{
			MinPremiumLarge:  200000,
			MinPremiumGolden: 1000000,
			MaxDTEGolden:     14,
			MinVolOI:         1.5,
			AggressiveRatio:  0.95,
			Window:           10 * time.Minute,
		},
		Cluster: ClusterConfig{
			MinPremium:    3000000,
			StrikeBandPct: 5,
			DateBandDays:  7,
			PremiumJump:   200000,
		},
		Notify: NotifyConfig{
			PerRunCap: 15,
			SendDelay: 400 * time.Millisecond,
		},
		Storage: StorageConfig{
			DBPath:           "./data/test.db",
			PostedRetention:  48 * time.Hour,
			HistoryRetention: 168 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func TestLoadAndValidate(t *testing.T) {
	content := `
feed:
  poll_interval: 5m
  limit: 100

scanner:
  min_premium_large: 250000
  min_premium_golden: 1500000
  max_dte_golden: 10
  min_vol_oi: 2.0
  window: 15m

cluster:
  min_premium: 5000000
  strike_band_pct: 4
  date_band_days: 5
  premium_jump: 300000

notify:
  webhook_large: "https://discord.com/api/webhooks/1/a"
  webhook_golden: "https://discord.com/api/webhooks/2/b"
  per_run_cap: 10
  send_delay: 500ms

storage:
  db_path: "./data/test.db"

logging:
  level: "info"
  format: "json"
`
	tmpfile, err := os.CreateTemp("", "config-*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.PollInterval != 5*time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Feed.PollInterval)
	}
	if cfg.Scanner.MinPremiumLarge != 250000 {
		t.Errorf("Unexpected min_premium_large: %f", cfg.Scanner.MinPremiumLarge)
	}
	if cfg.Scanner.Window != 15*time.Minute {
		t.Errorf("Unexpected window: %v", cfg.Scanner.Window)
	}
	if cfg.Cluster.PremiumJump != 300000 {
		t.Errorf("Unexpected premium_jump: %f", cfg.Cluster.PremiumJump)
	}
	if cfg.Notify.SendDelay != 500*time.Millisecond {
		t.Errorf("Unexpected send_delay: %v", cfg.Notify.SendDelay)
	}

	// Defaults fill unset values
	if cfg.Scanner.AggressiveRatio != 0.95 {
		t.Errorf("Expected default aggressive ratio, got %f", cfg.Scanner.AggressiveRatio)
	}
	if cfg.Storage.PostedRetention != 48*time.Hour {
		t.Errorf("Expected default posted retention, got %v", cfg.Storage.PostedRetention)
	}

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "golden below large",
			mutate:  func(c *Config) { c.Scanner.MinPremiumGolden = 100000 },
			wantErr: true,
		},
		{
			name:    "aggressive ratio above 1",
			mutate:  func(c *Config) { c.Scanner.AggressiveRatio = 1.5 },
			wantErr: true,
		},
		{
			name:    "zero strike band",
			mutate:  func(c *Config) { c.Cluster.StrikeBandPct = 0 },
			wantErr: true,
		},
		{
			name:    "missing telegram token when enabled",
			mutate:  func(c *Config) { c.Notify.Telegram.Enabled = true },
			wantErr: true,
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.Storage.DBPath = "" },
			wantErr: true,
		},
		{
			name:    "history retention below posted retention",
			mutate:  func(c *Config) { c.Storage.HistoryRetention = time.Hour },
			wantErr: true,
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
