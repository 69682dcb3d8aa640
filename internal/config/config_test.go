package config

import (
	"os"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Correlation: CorrelationConfig{Window: 5 * time.Minute},
		Risk: RiskConfig{
			DexScreenerURL:    "https://api.dexscreener.com",
			Timeout:           15 * time.Second,
			LiquidityFloorUSD: 50000,
			MinPairAge:        24 * time.Hour,
		},
		Scoring: ScoringConfig{
			Backend:            "rules",
			Timeout:            10 * time.Second,
			PromotionThreshold: 85,
			HerdMinSample:      2,
		},
		Feeds: FeedsConfig{
			LeaderboardURL: "https://example.com",
			NewsPageSize:   20,
		},
		Portfolio: PortfolioConfig{Enabled: true, Interval: 5 * time.Minute},
		Pipeline:  PipelineConfig{PollInterval: time.Minute},
		Storage:   StorageConfig{Driver: "sqlite", Retention: 168 * time.Hour},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

func TestLoadAndValidate(t *testing.T) {
	// Create temp config file
	content := `
correlation:
  window: 5m

risk:
  liquidity_floor_usd: 75000
  min_pair_age: 48h

scoring:
  backend: rules
  promotion_threshold: 90

feeds:
  news_enabled: false

telegram:
  bot_token: "test_token"
  chat_id: "12345"
  enabled: true

storage:
  driver: sqlite

logging:
  level: "debug"
  format: "text"
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

	// Test Load
	cfg, err := Load(tmpfile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Verify explicit values
	if cfg.Correlation.Window != 5*time.Minute {
		t.Errorf("Unexpected correlation window: %v", cfg.Correlation.Window)
	}
	if cfg.Risk.LiquidityFloorUSD != 75000 {
		t.Errorf("Unexpected liquidity floor: %f", cfg.Risk.LiquidityFloorUSD)
	}
	if cfg.Scoring.PromotionThreshold != 90 {
		t.Errorf("Unexpected promotion threshold: %d", cfg.Scoring.PromotionThreshold)
	}
	if cfg.Telegram.ChatID != "12345" {
		t.Errorf("Unexpected chat ID: %s", cfg.Telegram.ChatID)
	}

	// Verify defaults fill in the rest
	if cfg.Risk.DexScreenerURL != "https://api.dexscreener.com" {
		t.Errorf("Unexpected DexScreener URL: %s", cfg.Risk.DexScreenerURL)
	}
	if cfg.Scoring.Backend != "rules" {
		t.Errorf("Unexpected scoring backend: %s", cfg.Scoring.Backend)
	}
	if cfg.Pipeline.PollInterval != time.Minute {
		t.Errorf("Unexpected poll interval: %v", cfg.Pipeline.PollInterval)
	}
	if cfg.Storage.Retention != 168*time.Hour {
		t.Errorf("Unexpected retention: %v", cfg.Storage.Retention)
	}

	// Test Validate
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
			name:    "correlation window too short",
			mutate:  func(c *Config) { c.Correlation.Window = 10 * time.Second },
			wantErr: true,
		},
		{
			name:    "openai backend without key",
			mutate:  func(c *Config) { c.Scoring.Backend = "openai" },
			wantErr: true,
		},
		{
			name: "openai backend with key",
			mutate: func(c *Config) {
				c.Scoring.Backend = "openai"
				c.Scoring.OpenAIAPIKey = "sk-test"
			},
			wantErr: false,
		},
		{
			name:    "anthropic backend without key",
			mutate:  func(c *Config) { c.Scoring.Backend = "anthropic" },
			wantErr: true,
		},
		{
			name:    "unknown scoring backend",
			mutate:  func(c *Config) { c.Scoring.Backend = "magic" },
			wantErr: true,
		},
		{
			name:    "promotion threshold out of range",
			mutate:  func(c *Config) { c.Scoring.PromotionThreshold = 150 },
			wantErr: true,
		},
		{
			name:    "news enabled without key",
			mutate:  func(c *Config) { c.Feeds.NewsEnabled = true },
			wantErr: true,
		},
		{
			name: "telegram enabled without token",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.ChatID = "12345"
			},
			wantErr: true,
		},
		{
			name: "telegram enabled without chat id",
			mutate: func(c *Config) {
				c.Telegram.Enabled = true
				c.Telegram.BotToken = "token"
			},
			wantErr: true,
		},
		{
			name:    "unknown storage driver",
			mutate:  func(c *Config) { c.Storage.Driver = "mysql" },
			wantErr: true,
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Storage.Driver = "postgres" },
			wantErr: true,
		},
		{
			name: "postgres with dsn",
			mutate: func(c *Config) {
				c.Storage.Driver = "postgres"
				c.Storage.DSN = "postgres://localhost/cryptex"
			},
			wantErr: false,
		},
		{
			name:    "pipeline interval too short",
			mutate:  func(c *Config) { c.Pipeline.PollInterval = time.Second },
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
