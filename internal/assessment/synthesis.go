package assessment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/cryptex-ai/cryptex/internal/models"
)

// RulesSynthesizer is the deterministic synthesis backend: a weighted blend
// of the three check scores with a risk adjustment. It is monotonic
// non-decreasing in each score, and a DANGER or ERROR risk rating caps the
// confidence at the promotion threshold so such events can never promote.
type RulesSynthesizer struct {
	cap int
}

// NewRulesSynthesizer creates the rule-based synthesizer with the given
// promotion threshold as the risk cap.
func NewRulesSynthesizer(threshold int) *RulesSynthesizer {
	if threshold <= 0 {
		threshold = DefaultPromotionThreshold
	}
	return &RulesSynthesizer{cap: threshold}
}

// Synthesize blends the scores 40/30/30 and applies the risk adjustment.
func (s *RulesSynthesizer) Synthesize(_ context.Context, ev models.CorrelatedEvent, risk models.RiskAssessment, scores models.ConfidenceAssessment) (Verdict, error) {
	confidence := (40*scores.Legitimacy + 30*scores.HerdIndex + 30*scores.HistoricalWinRate) / 100

	switch risk.Rating {
	case models.RatingSafe:
	case models.RatingUnknown:
		confidence -= 5
	case models.RatingCaution:
		confidence -= 10
	case models.RatingDanger, models.RatingError:
		if confidence > s.cap {
			confidence = s.cap
		}
	}
	confidence = clampScore(confidence)

	summary := fmt.Sprintf("%s went %s %s for $%s after %q (legitimacy %d, herd index %d, historical win rate %d%%).",
		ev.Trade.TraderID, ev.Trade.Direction, ev.Trade.Asset,
		humanize.Commaf(ev.Trade.NotionalUSD), truncate(ev.Catalyst.Headline, 80),
		scores.Legitimacy, scores.HerdIndex, scores.HistoricalWinRate,
	)
	return Verdict{Confidence: confidence, Summary: summary}, nil
}

// buildSynthesisPrompt renders the data points handed to a model-backed
// synthesizer.
func buildSynthesisPrompt(ev models.CorrelatedEvent, risk models.RiskAssessment, scores models.ConfidenceAssessment) string {
	trade, _ := json.Marshal(ev.Trade)
	return fmt.Sprintf(`You are a master risk analyst. Synthesize the following data points into a final confidence score and a one-sentence summary.
- Trade Details: %s
- Catalyst: %s (Legitimacy Score: %d/100)
- Herd Index (other smart money making similar trades): %d%%
- Historical Win Rate for this pattern: %d%%
- Safety Rating of the underlying pair: %s

Based on this, what is the final confidence score (0-100) and a summary for a Telegram alert?
Respond ONLY with a valid JSON object with keys "confidence_score" and "summary".`,
		trade, ev.Catalyst.Headline, scores.Legitimacy,
		scores.HerdIndex, scores.HistoricalWinRate, risk.Rating,
	)
}

// parseVerdict decodes and validates a model verdict. Out-of-range scores
// are rejected, not clamped, so a misbehaving backend falls through to the
// deterministic fallback.
func parseVerdict(content string) (Verdict, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var v Verdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &v); err != nil {
		return Verdict{}, fmt.Errorf("malformed verdict: %w", err)
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return Verdict{}, fmt.Errorf("verdict confidence %d out of range", v.Confidence)
	}
	if v.Summary == "" {
		return Verdict{}, fmt.Errorf("verdict summary is empty")
	}
	return v, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
