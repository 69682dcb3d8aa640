// Package assessment runs the plausibility checks on a correlated event and
// synthesizes them into a single confidence verdict.
//
// Each check is a named scoring stage behind a small interface, so a
// rule-based stub and a model-backed scorer are interchangeable; tests
// exercise the contract, not a specific backend.
package assessment

import (
	"context"
	"time"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// DefaultPromotionThreshold is the confidence a signal must exceed to be
// persisted.
const DefaultPromotionThreshold = 85

// Scorer rates one dimension of a correlated event on a 0-100 scale. A
// scorer must degrade gracefully: when its data is unavailable it returns a
// conservative default instead of failing the pipeline.
type Scorer interface {
	Score(ctx context.Context, ev models.CorrelatedEvent) int
}

// Verdict is the synthesized confidence result.
type Verdict struct {
	Confidence int    `json:"confidence_score"`
	Summary    string `json:"summary"`
}

// Synthesizer combines the check scores and the risk rating into a final
// verdict. Implementations may be rule-based or model-backed.
type Synthesizer interface {
	Synthesize(ctx context.Context, ev models.CorrelatedEvent, risk models.RiskAssessment, scores models.ConfidenceAssessment) (Verdict, error)
}

// Checks bundles the three independent scoring stages.
type Checks struct {
	Legitimacy Scorer
	Herd       Scorer
	History    Scorer
}

// Engine runs the checks and the synthesis for correlated events.
type Engine struct {
	checks    Checks
	synth     Synthesizer
	fallback  Synthesizer
	threshold int
	timeout   time.Duration
}

// NewEngine creates an assessment engine. The synthesizer may be model
// backed; a deterministic rules synthesizer is always kept as fallback so a
// failed scoring call degrades instead of dropping the event. A non-positive
// threshold falls back to the default.
func NewEngine(checks Checks, synth Synthesizer, threshold int, timeout time.Duration) *Engine {
	if threshold <= 0 {
		threshold = DefaultPromotionThreshold
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	fallback := NewRulesSynthesizer(threshold)
	if synth == nil {
		synth = fallback
	}
	return &Engine{
		checks:    checks,
		synth:     synth,
		fallback:  fallback,
		threshold: threshold,
		timeout:   timeout,
	}
}

// Threshold returns the promotion threshold.
func (e *Engine) Threshold() int {
	return e.threshold
}

// Assess runs the three checks plus synthesis and reports whether the event
// clears the promotion threshold. It never fails: scoring errors degrade to
// the deterministic fallback synthesizer.
func (e *Engine) Assess(ctx context.Context, ev models.CorrelatedEvent, risk models.RiskAssessment) (models.ConfidenceAssessment, bool) {
	scores := models.ConfidenceAssessment{
		Legitimacy:        clampScore(e.checks.Legitimacy.Score(ctx, ev)),
		HerdIndex:         clampScore(e.checks.Herd.Score(ctx, ev)),
		HistoricalWinRate: clampScore(e.checks.History.Score(ctx, ev)),
	}

	synthCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	verdict, err := e.synth.Synthesize(synthCtx, ev, risk, scores)
	if err != nil {
		logger.Warn("Synthesis failed for %s/%s, using rule-based fallback: %v",
			ev.Trade.TraderID, ev.Trade.Asset, err)
		verdict, err = e.fallback.Synthesize(ctx, ev, risk, scores)
		if err != nil {
			// The rules synthesizer cannot fail; keep the conservative floor.
			verdict = Verdict{Confidence: 0, Summary: "Assessment unavailable."}
		}
	}

	scores.Confidence = clampScore(verdict.Confidence)
	scores.Summary = verdict.Summary

	// The risk cap holds for every backend: a DANGER or ERROR rated event
	// must not clear the strict promotion test, whatever the model said.
	if (risk.Rating == models.RatingDanger || risk.Rating == models.RatingError) && scores.Confidence > e.threshold {
		logger.Debug("Capping confidence for %s/%s at %d on %s risk rating",
			ev.Trade.TraderID, ev.Trade.Asset, e.threshold, risk.Rating)
		scores.Confidence = e.threshold
	}

	promoted := scores.Confidence > e.threshold
	if !promoted {
		logger.Debug("Dropping sub-threshold correlation %s/%s: confidence %d <= %d",
			ev.Trade.TraderID, ev.Trade.Asset, scores.Confidence, e.threshold)
	}
	return scores, promoted
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}
