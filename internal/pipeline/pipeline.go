// Package pipeline orchestrates one end-to-end run: poll feeds, correlate
// trades with catalysts, risk-rate and assess each pair, persist promoted
// signals, and hand fresh ones to the dispatcher.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/cryptex-ai/cryptex/internal/feeds"
	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// Correlator joins the two event streams per asset.
type Correlator interface {
	Correlate(ctx context.Context, assets []string) []models.CorrelatedEvent
}

// RiskAnalyzer rates the tradable pair behind a correlated event. It never
// fails; failures surface as UNKNOWN/ERROR ratings.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, ev models.CorrelatedEvent) models.RiskAssessment
}

// Assessor scores a correlated event and reports whether it clears the
// promotion threshold.
type Assessor interface {
	Assess(ctx context.Context, ev models.CorrelatedEvent, risk models.RiskAssessment) (models.ConfidenceAssessment, bool)
}

// SignalStore persists promoted signals idempotently.
type SignalStore interface {
	InsertSignal(ctx context.Context, sig *models.EnrichedSignal) (inserted bool, err error)
}

// Dispatcher delivers freshly persisted signals. May be nil when alerting is
// disabled.
type Dispatcher interface {
	DispatchSignal(sig models.EnrichedSignal) error
}

// Engine wires the stages of one pipeline run. Runs are stateless: all state
// lives in the stores.
type Engine struct {
	feeds      []feeds.Feed
	correlator Correlator
	risk       RiskAnalyzer
	assessor   Assessor
	store      SignalStore
	dispatcher Dispatcher
}

// New creates a pipeline engine.
func New(feedList []feeds.Feed, correlator Correlator, risk RiskAnalyzer, assessor Assessor, store SignalStore, dispatcher Dispatcher) *Engine {
	return &Engine{
		feeds:      feedList,
		correlator: correlator,
		risk:       risk,
		assessor:   assessor,
		store:      store,
		dispatcher: dispatcher,
	}
}

// Stats summarizes one run.
type Stats struct {
	Assets     int
	Correlated int
	Promoted   int
	Inserted   int
}

// Run executes one full pipeline cycle. Per-feed and per-event failures are
// isolated; an error is returned only when every feed failed, which signals
// an upstream outage to the caller's failure notifier.
func (e *Engine) Run(ctx context.Context) (Stats, error) {
	assets, feedErrs := e.pollFeeds(ctx)
	if len(e.feeds) > 0 && feedErrs == len(e.feeds) {
		return Stats{}, fmt.Errorf("all %d feeds failed this cycle", feedErrs)
	}

	events := e.correlator.Correlate(ctx, assets)
	stats := Stats{Assets: len(assets), Correlated: len(events)}
	if len(events) == 0 {
		logger.Info("No correlated events this cycle (%d candidate assets)", len(assets))
		return stats, nil
	}
	logger.Info("Found %d correlated event(s) across %d asset(s)", len(events), len(assets))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, ev := range events {
		wg.Add(1)
		go func(ev models.CorrelatedEvent) {
			defer wg.Done()
			promoted, inserted := e.processEvent(ctx, ev)
			mu.Lock()
			if promoted {
				stats.Promoted++
			}
			if inserted {
				stats.Inserted++
			}
			mu.Unlock()
		}(ev)
	}
	wg.Wait()

	logger.Info("Cycle complete: %d correlated, %d promoted, %d newly persisted",
		stats.Correlated, stats.Promoted, stats.Inserted)
	return stats, nil
}

// pollFeeds gathers candidate assets from every feed concurrently.
func (e *Engine) pollFeeds(ctx context.Context) (assets []string, failures int) {
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, f := range e.feeds {
		wg.Add(1)
		go func(f feeds.Feed) {
			defer wg.Done()
			touched, err := f.Poll(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Error("Feed %s failed: %v", f.Name(), err)
				failures++
				return
			}
			assets = append(assets, touched...)
		}(f)
	}
	wg.Wait()
	return assets, failures
}

// processEvent runs risk, assessment, persistence and dispatch for one
// correlated event. Failures never escape the event's own unit of work.
func (e *Engine) processEvent(ctx context.Context, ev models.CorrelatedEvent) (promoted, inserted bool) {
	risk := e.risk.Analyze(ctx, ev)
	if risk.Rating != models.RatingSafe {
		logger.Debug("Risk rating for %s/%s: %s %v",
			ev.Trade.TraderID, ev.Trade.Asset, risk.Rating, risk.Warnings)
	}

	assessment, promoted := e.assessor.Assess(ctx, ev, risk)
	if !promoted {
		return false, false
	}

	sig := models.NewEnrichedSignal(ev, risk, assessment)
	inserted, err := e.store.InsertSignal(ctx, &sig)
	if err != nil {
		logger.Error("Failed to persist signal %s: %v", sig.SignalID, err)
		return true, false
	}
	if !inserted {
		logger.Debug("Signal %s already persisted, skipping alert", sig.SignalID)
		return true, false
	}
	logger.Info("Persisted signal %s (confidence %d, safety %s)",
		sig.SignalID, sig.Confidence, sig.SafetyRating)

	if e.dispatcher != nil {
		if err := e.dispatcher.DispatchSignal(sig); err != nil {
			logger.Error("Failed to dispatch alert for %s: %v", sig.SignalID, err)
		}
	}
	return true, true
}
