// Package models defines the core domain entities flowing through the
// signal pipeline: raw feed events, correlated pairs, assessments, and the
// final enriched signal.
package models

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Quote suffixes recognized when normalizing exchange symbols, longest first.
var quoteSuffixes = []string{"USDT", "USDC", "BUSD", "PERP", "USD"}

// BaseSymbol normalizes an exchange symbol to its base asset: uppercased,
// with any quote suffix stripped ("solusdt" and "SOL" both map to "SOL").
// Trade and catalyst events must store this form so the two streams share a
// join key.
func BaseSymbol(symbol string) string {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	for _, suffix := range quoteSuffixes {
		if base, ok := strings.CutSuffix(upper, suffix); ok && base != "" {
			return base
		}
	}
	return upper
}

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// TradeEvent is a single observed position or trade from an exchange feed.
// Immutable once stored.
type TradeEvent struct {
	ID          string          `json:"id"`
	TraderID    string          `json:"trader_id"`
	Asset       string          `json:"asset"`
	Direction   Direction       `json:"direction"`
	NotionalUSD float64         `json:"notional_usd"`
	Leverage    int             `json:"leverage"`
	EntryPrice  float64         `json:"entry_price,omitempty"`
	RawPayload  json.RawMessage `json:"raw_payload,omitempty"`
	IngestedAt  time.Time       `json:"ingested_at"`
}

// Validate checks trade event field constraints.
func (t *TradeEvent) Validate() error {
	if t.TraderID == "" {
		return errors.New("trader ID must not be empty")
	}
	if t.Asset == "" {
		return errors.New("asset must not be empty")
	}
	if t.Direction != DirectionLong && t.Direction != DirectionShort {
		return errors.New("direction must be LONG or SHORT")
	}
	if t.NotionalUSD < 0 {
		return errors.New("notional size must not be negative")
	}
	if t.Leverage < 0 {
		return errors.New("leverage must not be negative")
	}
	return nil
}

// CatalystEvent is a news item tagged with the asset symbols it concerns.
// Immutable once stored.
type CatalystEvent struct {
	ID         string          `json:"id"`
	Headline   string          `json:"headline"`
	Source     string          `json:"source"`
	AssetTags  []string        `json:"asset_tags"`
	RawPayload json.RawMessage `json:"raw_payload,omitempty"`
	IngestedAt time.Time       `json:"ingested_at"`
}

// Validate checks catalyst event field constraints.
func (c *CatalystEvent) Validate() error {
	if c.Headline == "" {
		return errors.New("headline must not be empty")
	}
	if len(c.AssetTags) == 0 {
		return errors.New("catalyst must carry at least one asset tag")
	}
	for _, tag := range c.AssetTags {
		if tag == "" {
			return errors.New("asset tags must not contain empty symbols")
		}
	}
	return nil
}

// HasTag reports whether the catalyst is tagged with the given asset symbol.
func (c *CatalystEvent) HasTag(asset string) bool {
	for _, tag := range c.AssetTags {
		if tag == asset {
			return true
		}
	}
	return false
}

// CorrelatedEvent is a trade/catalyst pair that satisfied the correlation
// predicate. Transient: it exists only in flight between pipeline stages and
// is never persisted on its own.
type CorrelatedEvent struct {
	Trade    TradeEvent    `json:"trade"`
	Catalyst CatalystEvent `json:"catalyst"`
}

// WatchedTrader is a watchlist entry naming a trader to follow.
type WatchedTrader struct {
	Identifier  string    `json:"identifier"`
	Exchange    string    `json:"exchange"`
	Description string    `json:"description"`
	Active      bool      `json:"active"`
	AddedAt     time.Time `json:"added_at"`
}
