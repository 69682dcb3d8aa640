// Package risk rates the tradable pair behind a correlated event by
// liquidity and pair age.
package risk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/cryptex-ai/cryptex/internal/dexscreener"
	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// MarketData is the market-data lookup consumed by the analyzer.
type MarketData interface {
	TokenPairs(ctx context.Context, address string) ([]dexscreener.Pair, error)
}

// Config holds the rating thresholds.
type Config struct {
	LiquidityFloorUSD float64       // below this the pair is rated CAUTION
	MinPairAge        time.Duration // younger pairs are rated DANGER
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		LiquidityFloorUSD: 50_000,
		MinPairAge:        24 * time.Hour,
	}
}

// Analyzer computes safety ratings for correlated events.
type Analyzer struct {
	source MarketData
	config Config
}

// New creates a risk analyzer backed by the given market-data source.
func New(source MarketData, config Config) *Analyzer {
	if config.LiquidityFloorUSD <= 0 {
		config.LiquidityFloorUSD = DefaultConfig().LiquidityFloorUSD
	}
	if config.MinPairAge <= 0 {
		config.MinPairAge = DefaultConfig().MinPairAge
	}
	return &Analyzer{source: source, config: config}
}

// Analyze resolves the trade's token contract, looks up its trading pairs,
// and rates the most liquid pair. Failures never escape: a resolution miss
// yields UNKNOWN and any lookup or transport failure yields ERROR, so the
// event always continues downstream annotated.
func (a *Analyzer) Analyze(ctx context.Context, ev models.CorrelatedEvent) models.RiskAssessment {
	contract, err := resolveContract(ev.Trade)
	if err != nil {
		logger.Warn("Could not resolve token contract for %s: %v", ev.Trade.Asset, err)
		return models.RiskAssessment{
			Rating:  models.RatingUnknown,
			Details: "Could not identify token contract.",
		}
	}

	pairs, err := a.source.TokenPairs(ctx, contract)
	if err != nil {
		logger.Error("Market-data lookup failed for %s: %v", contract, err)
		return models.RiskAssessment{
			Rating:  models.RatingError,
			Source:  dexscreener.SourceName,
			Details: err.Error(),
		}
	}
	if len(pairs) == 0 {
		return models.RiskAssessment{
			Rating:  models.RatingError,
			Source:  dexscreener.SourceName,
			Details: "Token not found on DEX Screener or has no trading pairs.",
		}
	}

	main := topLiquidityPair(pairs)
	return a.ratePair(main)
}

// topLiquidityPair picks the pair with the greatest USD liquidity; the first
// encountered wins ties.
func topLiquidityPair(pairs []dexscreener.Pair) dexscreener.Pair {
	best := pairs[0]
	for _, p := range pairs[1:] {
		if p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	return best
}

func (a *Analyzer) ratePair(pair dexscreener.Pair) models.RiskAssessment {
	rating := models.RatingSafe
	var warnings []string

	liquidity := pair.Liquidity.USD
	if liquidity < a.config.LiquidityFloorUSD {
		rating = models.RatingCaution
		warnings = append(warnings, fmt.Sprintf("Low liquidity ($%s)", humanize.Commaf(liquidity)))
	}
	createdAt := pair.CreatedTime()
	if time.Since(createdAt) < a.config.MinPairAge {
		// DANGER takes precedence over CAUTION; both warnings are kept.
		rating = models.RatingDanger
		warnings = append(warnings, "Token pair is less than 24 hours old.")
	}

	return models.RiskAssessment{
		Rating:        rating,
		LiquidityUSD:  liquidity,
		PairCreatedAt: createdAt,
		Warnings:      warnings,
		Source:        dexscreener.SourceName,
	}
}

// accountKey mirrors the account reference entries found in on-chain
// transaction payloads.
type accountKey struct {
	Account  string `json:"account"`
	Signer   bool   `json:"signer"`
	Writable bool   `json:"writable"`
}

type rawTradePayload struct {
	AccountKeys []accountKey `json:"account_keys"`
}

// resolveContract derives the token contract or lookup identifier for a
// trade. On-chain payloads yield the first non-signer writable account
// reference; CEX symbols fall back to the normalized base asset.
func resolveContract(t models.TradeEvent) (string, error) {
	if len(t.RawPayload) > 0 {
		var payload rawTradePayload
		if err := json.Unmarshal(t.RawPayload, &payload); err == nil {
			for _, key := range payload.AccountKeys {
				if !key.Signer && key.Writable && key.Account != "" {
					return key.Account, nil
				}
			}
		}
	}

	if symbol := models.BaseSymbol(t.Asset); symbol != "" {
		return symbol, nil
	}
	return "", errors.New("no contract reference in payload and no usable symbol")
}
