package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Scoring     ScoringConfig     `mapstructure:"scoring"`
	Feeds       FeedsConfig       `mapstructure:"feeds"`
	Prices      PricesConfig      `mapstructure:"prices"`
	Portfolio   PortfolioConfig   `mapstructure:"portfolio"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// CorrelationConfig holds the trade/catalyst matching configuration
type CorrelationConfig struct {
	Window time.Duration `mapstructure:"window"`
}

// RiskConfig holds DEX Screener risk analysis configuration
type RiskConfig struct {
	DexScreenerURL    string        `mapstructure:"dexscreener_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelayBase    time.Duration `mapstructure:"retry_delay_base"`
	LiquidityFloorUSD float64       `mapstructure:"liquidity_floor_usd"`
	MinPairAge        time.Duration `mapstructure:"min_pair_age"`
}

// ScoringConfig holds confidence scoring and synthesis configuration
type ScoringConfig struct {
	Backend            string        `mapstructure:"backend"` // rules, openai, anthropic
	OpenAIAPIKey       string        `mapstructure:"openai_api_key"`
	OpenAIModel        string        `mapstructure:"openai_model"`
	AnthropicAPIKey    string        `mapstructure:"anthropic_api_key"`
	AnthropicModel     string        `mapstructure:"anthropic_model"`
	Timeout            time.Duration `mapstructure:"timeout"`
	PromotionThreshold int           `mapstructure:"promotion_threshold"`
	HerdMinSample      int           `mapstructure:"herd_min_sample"`
}

// FeedsConfig holds the ingestion feed configuration
type FeedsConfig struct {
	LeaderboardURL string        `mapstructure:"leaderboard_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	NewsAPIURL     string        `mapstructure:"news_api_url"`
	NewsAPIKey     string        `mapstructure:"news_api_key"`
	NewsQuery      string        `mapstructure:"news_query"`
	NewsPageSize   int           `mapstructure:"news_page_size"`
	NewsEnabled    bool          `mapstructure:"news_enabled"`
}

// PricesConfig holds spot price fetcher configuration
type PricesConfig struct {
	BinanceURL  string        `mapstructure:"binance_url"`
	CoinbaseURL string        `mapstructure:"coinbase_url"`
	KrakenURL   string        `mapstructure:"kraken_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PortfolioConfig holds open-position monitoring configuration
type PortfolioConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// PipelineConfig holds the main loop configuration
type PipelineConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// TelegramConfig holds Telegram notification configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// StorageConfig holds storage and persistence configuration
type StorageConfig struct {
	Driver    string        `mapstructure:"driver"` // sqlite, postgres
	DSN       string        `mapstructure:"dsn"`
	Retention time.Duration `mapstructure:"retention"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set config file
	v.SetConfigFile(path)

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("CRYPTEX")
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Correlation defaults
	v.SetDefault("correlation.window", "5m")

	// Risk defaults
	v.SetDefault("risk.dexscreener_url", "https://api.dexscreener.com")
	v.SetDefault("risk.timeout", "15s")
	v.SetDefault("risk.max_retries", 3)
	v.SetDefault("risk.retry_delay_base", "1s")
	v.SetDefault("risk.liquidity_floor_usd", 50000.0)
	v.SetDefault("risk.min_pair_age", "24h")

	// Scoring defaults
	v.SetDefault("scoring.backend", "rules")
	v.SetDefault("scoring.openai_model", "gpt-4o")
	v.SetDefault("scoring.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("scoring.timeout", "10s")
	v.SetDefault("scoring.promotion_threshold", 85)
	v.SetDefault("scoring.herd_min_sample", 2)

	// Feeds defaults
	v.SetDefault("feeds.leaderboard_url", "https://www.binance.com")
	v.SetDefault("feeds.timeout", "15s")
	v.SetDefault("feeds.news_api_url", "https://newsapi.org")
	v.SetDefault("feeds.news_query", "crypto")
	v.SetDefault("feeds.news_page_size", 20)
	v.SetDefault("feeds.news_enabled", false)

	// Prices defaults
	v.SetDefault("prices.binance_url", "https://api.binance.com")
	v.SetDefault("prices.coinbase_url", "https://api.exchange.coinbase.com")
	v.SetDefault("prices.kraken_url", "https://api.kraken.com")
	v.SetDefault("prices.timeout", "10s")

	// Portfolio defaults
	v.SetDefault("portfolio.enabled", true)
	v.SetDefault("portfolio.interval", "5m")

	// Pipeline defaults
	v.SetDefault("pipeline.poll_interval", "1m")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Storage defaults
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.retention", "168h")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	// Validate Correlation config
	if c.Correlation.Window < 1*time.Minute {
		return fmt.Errorf("correlation.window must be at least 1 minute")
	}

	// Validate Risk config
	if c.Risk.DexScreenerURL == "" {
		return fmt.Errorf("risk.dexscreener_url is required")
	}
	if c.Risk.LiquidityFloorUSD < 0 {
		return fmt.Errorf("risk.liquidity_floor_usd must not be negative")
	}
	if c.Risk.MinPairAge < 0 {
		return fmt.Errorf("risk.min_pair_age must not be negative")
	}

	// Validate Scoring config
	switch c.Scoring.Backend {
	case "rules":
	case "openai":
		if c.Scoring.OpenAIAPIKey == "" {
			return fmt.Errorf("scoring.openai_api_key is required when backend is openai")
		}
	case "anthropic":
		if c.Scoring.AnthropicAPIKey == "" {
			return fmt.Errorf("scoring.anthropic_api_key is required when backend is anthropic")
		}
	default:
		return fmt.Errorf("scoring.backend must be one of: rules, openai, anthropic")
	}
	if c.Scoring.PromotionThreshold < 0 || c.Scoring.PromotionThreshold > 100 {
		return fmt.Errorf("scoring.promotion_threshold must be between 0 and 100")
	}
	if c.Scoring.HerdMinSample < 1 {
		return fmt.Errorf("scoring.herd_min_sample must be at least 1")
	}

	// Validate Feeds config
	if c.Feeds.LeaderboardURL == "" {
		return fmt.Errorf("feeds.leaderboard_url is required")
	}
	if c.Feeds.NewsEnabled && c.Feeds.NewsAPIKey == "" {
		return fmt.Errorf("feeds.news_api_key is required when the news feed is enabled")
	}
	if c.Feeds.NewsPageSize < 1 || c.Feeds.NewsPageSize > 100 {
		return fmt.Errorf("feeds.news_page_size must be between 1 and 100")
	}

	// Validate Portfolio config
	if c.Portfolio.Enabled && c.Portfolio.Interval < 1*time.Minute {
		return fmt.Errorf("portfolio.interval must be at least 1 minute")
	}

	// Validate Pipeline config
	if c.Pipeline.PollInterval < 10*time.Second {
		return fmt.Errorf("pipeline.poll_interval must be at least 10 seconds")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Storage config
	validDrivers := map[string]bool{"sqlite": true, "postgres": true}
	if !validDrivers[c.Storage.Driver] {
		return fmt.Errorf("storage.driver must be one of: sqlite, postgres")
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" {
		return fmt.Errorf("storage.dsn is required when storage.driver is postgres")
	}
	if c.Storage.Retention < 1*time.Hour {
		return fmt.Errorf("storage.retention must be at least 1 hour")
	}

	// Validate Logging config
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
