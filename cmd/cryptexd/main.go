package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/cryptex-ai/cryptex/internal/assessment"
	"github.com/cryptex-ai/cryptex/internal/config"
	"github.com/cryptex-ai/cryptex/internal/correlation"
	"github.com/cryptex-ai/cryptex/internal/dexscreener"
	"github.com/cryptex-ai/cryptex/internal/feeds"
	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/pipeline"
	"github.com/cryptex-ai/cryptex/internal/portfolio"
	"github.com/cryptex-ai/cryptex/internal/prices"
	"github.com/cryptex-ai/cryptex/internal/risk"
	"github.com/cryptex-ai/cryptex/internal/storage"
	"github.com/cryptex-ai/cryptex/internal/telegram"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Optional .env for local development; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	store, err := storage.New(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	dexClient := dexscreener.NewClient(
		cfg.Risk.DexScreenerURL,
		cfg.Risk.Timeout,
		cfg.Risk.MaxRetries,
		cfg.Risk.RetryDelayBase,
	)
	analyzer := risk.New(dexClient, risk.Config{
		LiquidityFloorUSD: cfg.Risk.LiquidityFloorUSD,
		MinPairAge:        cfg.Risk.MinPairAge,
	})

	engine := assessment.NewEngine(
		assessment.Checks{
			Legitimacy: assessment.LegitimacyCheck{},
			Herd: assessment.HerdCheck{
				History:   store,
				Window:    cfg.Correlation.Window,
				MinSample: cfg.Scoring.HerdMinSample,
			},
			History: assessment.HistoryCheck{History: store},
		},
		buildSynthesizer(cfg),
		cfg.Scoring.PromotionThreshold,
		cfg.Scoring.Timeout,
	)

	correlator := correlation.New(store, cfg.Correlation.Window)

	feedList := []feeds.Feed{
		feeds.NewLeaderboardFeed(cfg.Feeds.LeaderboardURL, cfg.Feeds.Timeout, store, store),
	}
	if cfg.Feeds.NewsEnabled {
		feedList = append(feedList, feeds.NewNewsFeed(
			cfg.Feeds.NewsAPIURL,
			cfg.Feeds.NewsAPIKey,
			cfg.Feeds.NewsQuery,
			cfg.Feeds.NewsPageSize,
			cfg.Feeds.Timeout,
			store,
		))
	} else {
		logger.Debug("News feed disabled; catalysts must arrive through other feeds")
	}

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	// Avoid wrapping a nil *Client in a non-nil interface value.
	var dispatcher pipeline.Dispatcher
	if telegramClient != nil {
		dispatcher = telegramClient
	}
	pipe := pipeline.New(feedList, correlator, analyzer, engine, store, dispatcher)

	priceService := prices.NewService(
		prices.NewKrakenFetcher(cfg.Prices.KrakenURL, cfg.Prices.Timeout),
		prices.NewCoinbaseFetcher(cfg.Prices.CoinbaseURL, cfg.Prices.Timeout),
		prices.NewBinanceFetcher(cfg.Prices.BinanceURL, cfg.Prices.Timeout),
	)
	monitor := portfolio.New(store, priceService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	if telegramClient != nil {
		telegramClient.ListenForCommands(ctx, store, store)
	}

	logger.Info("Starting signal pipeline (interval: %v, correlation window: %v, promotion threshold: %d, scoring backend: %s)",
		cfg.Pipeline.PollInterval,
		cfg.Correlation.Window,
		cfg.Scoring.PromotionThreshold,
		cfg.Scoring.Backend,
	)

	ticker := time.NewTicker(cfg.Pipeline.PollInterval)
	defer ticker.Stop()

	var portfolioTick <-chan time.Time
	if cfg.Portfolio.Enabled {
		portfolioTicker := time.NewTicker(cfg.Portfolio.Interval)
		defer portfolioTicker.Stop()
		portfolioTick = portfolioTicker.C
	}

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Pipeline cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
		} else {
			if consecutiveFailures > 0 && telegramClient != nil {
				if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
					logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
				}
			}
			consecutiveFailures = 0
		}
	}

	logger.Debug("Running initial pipeline cycle")
	handleCycleResult(runCycle(ctx, pipe))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled pipeline cycle")
			handleCycleResult(runCycle(ctx, pipe))
			cutoff := time.Now().Add(-cfg.Storage.Retention)
			if err := store.PruneEvents(ctx, cutoff); err != nil {
				logger.Warn("Failed to prune old events: %v", err)
			}

		case <-portfolioTick:
			if _, err := monitor.Check(ctx); err != nil {
				logger.Error("Portfolio check failed: %v", err)
			}
		}
	}
}

func runCycle(ctx context.Context, pipe *pipeline.Engine) error {
	startTime := time.Now()
	_, err := pipe.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info("Pipeline cycle completed in %v", time.Since(startTime))
	return nil
}

// buildSynthesizer selects the confidence synthesis backend. A nil return
// means the assessment engine falls back to its deterministic rules.
func buildSynthesizer(cfg *config.Config) assessment.Synthesizer {
	switch cfg.Scoring.Backend {
	case "openai":
		logger.Info("Using OpenAI synthesis backend (model: %s)", cfg.Scoring.OpenAIModel)
		return assessment.NewOpenAISynthesizer(cfg.Scoring.OpenAIAPIKey, cfg.Scoring.OpenAIModel)
	case "anthropic":
		logger.Info("Using Anthropic synthesis backend (model: %s)", cfg.Scoring.AnthropicModel)
		return assessment.NewAnthropicSynthesizer(cfg.Scoring.AnthropicAPIKey, cfg.Scoring.AnthropicModel)
	default:
		logger.Info("Using deterministic rules synthesis backend")
		return nil
	}
}
