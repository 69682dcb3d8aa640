// Package correlation joins trade and catalyst event streams per asset over
// a trailing time window.
package correlation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// EventSource is the read side of the event store consumed by the engine.
type EventSource interface {
	RecentTrades(ctx context.Context, asset string, since time.Time) ([]models.TradeEvent, error)
	RecentCatalysts(ctx context.Context, asset string, since time.Time) ([]models.CatalystEvent, error)
}

// Engine correlates trades with catalysts on shared asset within the window.
type Engine struct {
	source EventSource
	window time.Duration
}

// New creates a correlation engine over the given event source. A
// non-positive window falls back to five minutes.
func New(source EventSource, window time.Duration) *Engine {
	if window <= 0 {
		window = 5 * time.Minute
	}
	return &Engine{source: source, window: window}
}

// Window returns the trailing correlation window.
func (e *Engine) Window() time.Duration {
	return e.window
}

// Correlate fetches in-window trades and catalysts for each candidate asset
// and emits the full cross-product of pairs: every trade is paired with every
// catalyst tagging that asset. The join is deliberately recall-favoring;
// downstream assessment is responsible for precision.
//
// Assets are processed concurrently and independently: a store failure on one
// asset is logged and yields no pairs for that asset only. No ordering is
// guaranteed across or within assets.
func (e *Engine) Correlate(ctx context.Context, assets []string) []models.CorrelatedEvent {
	assets = dedupe(assets)
	since := time.Now().Add(-e.window)

	var (
		mu     sync.Mutex
		events []models.CorrelatedEvent
		wg     sync.WaitGroup
	)
	for _, asset := range assets {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			pairs, err := e.correlateAsset(ctx, asset, since)
			if err != nil {
				logger.Warn("Correlation failed for %s: %v", asset, err)
				return
			}
			if len(pairs) == 0 {
				return
			}
			mu.Lock()
			events = append(events, pairs...)
			mu.Unlock()
		}(asset)
	}
	wg.Wait()

	return events
}

func (e *Engine) correlateAsset(ctx context.Context, asset string, since time.Time) ([]models.CorrelatedEvent, error) {
	trades, err := e.source.RecentTrades(ctx, asset, since)
	if err != nil {
		return nil, err
	}
	if len(trades) == 0 {
		return nil, nil
	}
	catalysts, err := e.source.RecentCatalysts(ctx, asset, since)
	if err != nil {
		return nil, err
	}
	if len(catalysts) == 0 {
		return nil, nil
	}

	pairs := make([]models.CorrelatedEvent, 0, len(trades)*len(catalysts))
	for _, t := range trades {
		for _, c := range catalysts {
			pairs = append(pairs, models.CorrelatedEvent{Trade: t, Catalyst: c})
		}
	}
	logger.Debug("Correlated %d trade(s) x %d catalyst(s) for %s", len(trades), len(catalysts), asset)
	return pairs, nil
}

func dedupe(assets []string) []string {
	seen := make(map[string]bool, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}
