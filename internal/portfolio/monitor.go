// Package portfolio marks open signals to market and keeps their PnL
// current.
package portfolio

import (
	"context"
	"fmt"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
	"github.com/cryptex-ai/cryptex/internal/prices"
)

// SignalBook is the signal store access the monitor needs.
type SignalBook interface {
	OpenSignals(ctx context.Context) ([]models.EnrichedSignal, error)
	UpdateSignalOutcome(ctx context.Context, signalID string, status models.SignalStatus, pnlUSD float64) error
}

// PriceSource provides live quotes.
type PriceSource interface {
	Best(ctx context.Context, asset string) (prices.Quote, error)
}

// Monitor tracks the open positions derived from promoted signals.
type Monitor struct {
	book   SignalBook
	prices PriceSource
}

// New creates a portfolio monitor.
func New(book SignalBook, prices PriceSource) *Monitor {
	return &Monitor{book: book, prices: prices}
}

// Report summarizes one monitoring pass.
type Report struct {
	Tracked  int
	Skipped  int
	TotalPnL float64
}

// Check marks every OPEN signal to market and updates its stored PnL. A
// price failure on one signal is logged and skipped; it never blocks the
// rest of the book.
func (m *Monitor) Check(ctx context.Context) (Report, error) {
	open, err := m.book.OpenSignals(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("failed to load open signals: %w", err)
	}
	if len(open) == 0 {
		logger.Debug("No open positions to monitor")
		return Report{}, nil
	}

	var report Report
	for _, sig := range open {
		if sig.EntryPrice <= 0 {
			logger.Debug("Signal %s has no entry price, skipping mark-to-market", sig.SignalID)
			report.Skipped++
			continue
		}
		quote, err := m.prices.Best(ctx, sig.Asset)
		if err != nil {
			logger.Warn("Could not price %s for signal %s: %v", sig.Asset, sig.SignalID, err)
			report.Skipped++
			continue
		}

		pnl := PnL(sig, quote.Price)
		if err := m.book.UpdateSignalOutcome(ctx, sig.SignalID, models.StatusOpen, pnl); err != nil {
			logger.Warn("Failed to update PnL for signal %s: %v", sig.SignalID, err)
			report.Skipped++
			continue
		}
		logger.Info("Position %s (%s) PnL: $%.2f via %s", sig.SignalID, sig.Asset, pnl, quote.Exchange)
		report.Tracked++
		report.TotalPnL += pnl
	}
	logger.Info("Portfolio check complete: %d tracked, %d skipped, total PnL $%.2f",
		report.Tracked, report.Skipped, report.TotalPnL)
	return report, nil
}

// PnL computes the mark-to-market profit of a signal at the given price.
func PnL(sig models.EnrichedSignal, currentPrice float64) float64 {
	units := sig.TradeSizeUSD / sig.EntryPrice
	if sig.Direction == models.DirectionShort {
		return (sig.EntryPrice - currentPrice) * units
	}
	return (currentPrice - sig.EntryPrice) * units
}
