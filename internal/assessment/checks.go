package assessment

import (
	"context"
	"strings"
	"time"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// neutralScore is the conservative default returned when a check has no data
// to work with.
const neutralScore = 50

// EventHistory is the historical read access the rule-based checks need.
type EventHistory interface {
	RecentTrades(ctx context.Context, asset string, since time.Time) ([]models.TradeEvent, error)
	TraderWinRate(ctx context.Context, traderID string) (wins, closed int, err error)
}

var reputableSources = map[string]bool{
	"reuters":       true,
	"bloomberg":     true,
	"coindesk":      true,
	"cointelegraph": true,
	"the block":     true,
	"decrypt":       true,
}

var catalystKeywords = []string{
	"partnership", "etf", "listing", "acquisition", "merger",
	"upgrade", "mainnet", "launch", "approval", "integration",
}

// LegitimacyCheck rates how plausible a catalyst headline is as a genuine
// market-moving event: reputable source, asset actually named, and a
// recognizable catalyst keyword each add weight.
type LegitimacyCheck struct{}

func (LegitimacyCheck) Score(_ context.Context, ev models.CorrelatedEvent) int {
	headline := strings.ToLower(ev.Catalyst.Headline)
	if headline == "" {
		return neutralScore
	}

	score := 40
	if reputableSources[strings.ToLower(strings.TrimSpace(ev.Catalyst.Source))] {
		score += 25
	}
	if strings.Contains(headline, strings.ToLower(ev.Trade.Asset)) {
		score += 15
	}
	for _, kw := range catalystKeywords {
		if strings.Contains(headline, kw) {
			score += 20
			break
		}
	}
	return score
}

// HerdCheck measures what fraction of other tracked traders took the same
// directional position on the asset inside the window.
type HerdCheck struct {
	History   EventHistory
	Window    time.Duration
	MinSample int
}

func (c HerdCheck) Score(ctx context.Context, ev models.CorrelatedEvent) int {
	window := c.Window
	if window <= 0 {
		window = 5 * time.Minute
	}
	minSample := c.MinSample
	if minSample <= 0 {
		minSample = 2
	}

	trades, err := c.History.RecentTrades(ctx, ev.Trade.Asset, time.Now().Add(-window))
	if err != nil {
		logger.Warn("Herd check degraded for %s: %v", ev.Trade.Asset, err)
		return neutralScore
	}

	var others, same int
	for _, t := range trades {
		if t.TraderID == ev.Trade.TraderID {
			continue
		}
		others++
		if t.Direction == ev.Trade.Direction {
			same++
		}
	}
	if others < minSample {
		return neutralScore
	}
	return same * 100 / others
}

// HistoryCheck measures the historical win rate of the trader's closed
// signals.
type HistoryCheck struct {
	History EventHistory
}

func (c HistoryCheck) Score(ctx context.Context, ev models.CorrelatedEvent) int {
	wins, closed, err := c.History.TraderWinRate(ctx, ev.Trade.TraderID)
	if err != nil {
		logger.Warn("History check degraded for %s: %v", ev.Trade.TraderID, err)
		return neutralScore
	}
	if closed == 0 {
		return neutralScore
	}
	return wins * 100 / closed
}
