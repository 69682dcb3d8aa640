package models

import (
	"errors"
	"fmt"
	"time"
)

// SafetyRating is the risk analyzer's verdict on an asset's tradable pair.
type SafetyRating string

const (
	RatingSafe    SafetyRating = "SAFE"
	RatingCaution SafetyRating = "CAUTION"
	RatingDanger  SafetyRating = "DANGER"
	RatingUnknown SafetyRating = "UNKNOWN"
	RatingError   SafetyRating = "ERROR"
)

// RiskAssessment describes the liquidity/age risk of the asset behind a
// correlated event. Produced once per CorrelatedEvent; a failed scan is
// reported as an UNKNOWN or ERROR rating, never as a pipeline error.
type RiskAssessment struct {
	Rating        SafetyRating `json:"safety_rating"`
	LiquidityUSD  float64      `json:"liquidity_usd,omitempty"`
	PairCreatedAt time.Time    `json:"pair_created_at,omitempty"`
	Warnings      []string     `json:"warnings,omitempty"`
	Source        string       `json:"source,omitempty"`
	Details       string       `json:"details,omitempty"`
}

// ConfidenceAssessment holds the scores from the independent plausibility
// checks plus the synthesized verdict. All scores are on a 0-100 scale.
type ConfidenceAssessment struct {
	Legitimacy        int    `json:"legitimacy_score"`
	HerdIndex         int    `json:"herd_index"`
	HistoricalWinRate int    `json:"historical_win_rate"`
	Confidence        int    `json:"ai_confidence_score"`
	Summary           string `json:"ai_summary"`
}

// SignalStatus is the lifecycle state of a persisted signal. The pipeline
// only ever creates NEW_VALIDATED rows; later transitions belong to the
// portfolio monitor.
type SignalStatus string

const (
	StatusNewValidated SignalStatus = "NEW_VALIDATED"
	StatusOpen         SignalStatus = "OPEN"
	StatusClosed       SignalStatus = "CLOSED"
)

// EnrichedSignal is the terminal, persisted entity of the pipeline.
type EnrichedSignal struct {
	SignalID          string       `json:"signal_id"`
	TraderID          string       `json:"trader_id"`
	Asset             string       `json:"asset"`
	Direction         Direction    `json:"direction"`
	TradeSizeUSD      float64      `json:"trade_size_usd"`
	Leverage          int          `json:"leverage"`
	EntryPrice        float64      `json:"entry_price,omitempty"`
	CatalystHeadline  string       `json:"catalyst_headline"`
	SafetyRating      SafetyRating `json:"safety_rating"`
	Legitimacy        int          `json:"legitimacy_score"`
	HerdIndex         int          `json:"herd_index"`
	HistoricalWinRate int          `json:"historical_win_rate"`
	Confidence        int          `json:"ai_confidence_score"`
	Summary           string       `json:"ai_summary"`
	Status            SignalStatus `json:"trade_status"`
	PnLUSD            float64      `json:"pnl_usd,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
}

// SignalID builds the deterministic identity key for a trade/catalyst pair.
// Repeated correlation of the same pair always maps to the same key, which is
// what makes the signal store's insert-if-absent dedup work.
func SignalID(traderID, asset string, catalystAt time.Time) string {
	return fmt.Sprintf("%s-%s-%d", traderID, asset, catalystAt.Unix())
}

// NewEnrichedSignal assembles the persisted signal from a correlated event
// and its two assessments.
func NewEnrichedSignal(ev CorrelatedEvent, risk RiskAssessment, conf ConfidenceAssessment) EnrichedSignal {
	return EnrichedSignal{
		SignalID:          SignalID(ev.Trade.TraderID, ev.Trade.Asset, ev.Catalyst.IngestedAt),
		TraderID:          ev.Trade.TraderID,
		Asset:             ev.Trade.Asset,
		Direction:         ev.Trade.Direction,
		TradeSizeUSD:      ev.Trade.NotionalUSD,
		Leverage:          ev.Trade.Leverage,
		EntryPrice:        ev.Trade.EntryPrice,
		CatalystHeadline:  ev.Catalyst.Headline,
		SafetyRating:      risk.Rating,
		Legitimacy:        conf.Legitimacy,
		HerdIndex:         conf.HerdIndex,
		HistoricalWinRate: conf.HistoricalWinRate,
		Confidence:        conf.Confidence,
		Summary:           conf.Summary,
		Status:            StatusNewValidated,
		CreatedAt:         time.Now(),
	}
}

// Validate checks signal field constraints.
func (s *EnrichedSignal) Validate() error {
	if s.SignalID == "" {
		return errors.New("signal ID must not be empty")
	}
	if s.TraderID == "" {
		return errors.New("trader ID must not be empty")
	}
	if s.Asset == "" {
		return errors.New("asset must not be empty")
	}
	if s.Direction != DirectionLong && s.Direction != DirectionShort {
		return errors.New("direction must be LONG or SHORT")
	}
	for name, score := range map[string]int{
		"legitimacy score":    s.Legitimacy,
		"herd index":          s.HerdIndex,
		"historical win rate": s.HistoricalWinRate,
		"confidence score":    s.Confidence,
	} {
		if score < 0 || score > 100 {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	switch s.Status {
	case StatusNewValidated, StatusOpen, StatusClosed:
	default:
		return fmt.Errorf("unknown trade status: %s", s.Status)
	}
	return nil
}
