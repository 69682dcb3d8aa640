package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/cryptex-ai/cryptex/internal/models"
)

type signalRow struct {
	SignalID          string  `db:"signal_id"`
	TraderID          string  `db:"trader_id"`
	Asset             string  `db:"asset"`
	Direction         string  `db:"direction"`
	TradeSizeUSD      float64 `db:"trade_size_usd"`
	Leverage          int     `db:"leverage"`
	EntryPrice        float64 `db:"entry_price"`
	CatalystHeadline  string  `db:"catalyst_headline"`
	SafetyRating      string  `db:"safety_rating"`
	Legitimacy        int     `db:"legitimacy_score"`
	HerdIndex         int     `db:"herd_index"`
	HistoricalWinRate int     `db:"historical_win_rate"`
	Confidence        int     `db:"ai_confidence_score"`
	Summary           string  `db:"ai_summary"`
	Status            string  `db:"trade_status"`
	PnLUSD            float64 `db:"pnl_usd"`
	CreatedAt         int64   `db:"created_at"`
}

func fromSignal(s *models.EnrichedSignal) signalRow {
	return signalRow{
		SignalID:          s.SignalID,
		TraderID:          s.TraderID,
		Asset:             s.Asset,
		Direction:         string(s.Direction),
		TradeSizeUSD:      s.TradeSizeUSD,
		Leverage:          s.Leverage,
		EntryPrice:        s.EntryPrice,
		CatalystHeadline:  s.CatalystHeadline,
		SafetyRating:      string(s.SafetyRating),
		Legitimacy:        s.Legitimacy,
		HerdIndex:         s.HerdIndex,
		HistoricalWinRate: s.HistoricalWinRate,
		Confidence:        s.Confidence,
		Summary:           s.Summary,
		Status:            string(s.Status),
		PnLUSD:            s.PnLUSD,
		CreatedAt:         s.CreatedAt.UnixNano(),
	}
}

func (r signalRow) toModel() models.EnrichedSignal {
	return models.EnrichedSignal{
		SignalID:          r.SignalID,
		TraderID:          r.TraderID,
		Asset:             r.Asset,
		Direction:         models.Direction(r.Direction),
		TradeSizeUSD:      r.TradeSizeUSD,
		Leverage:          r.Leverage,
		EntryPrice:        r.EntryPrice,
		CatalystHeadline:  r.CatalystHeadline,
		SafetyRating:      models.SafetyRating(r.SafetyRating),
		Legitimacy:        r.Legitimacy,
		HerdIndex:         r.HerdIndex,
		HistoricalWinRate: r.HistoricalWinRate,
		Confidence:        r.Confidence,
		Summary:           r.Summary,
		Status:            models.SignalStatus(r.Status),
		PnLUSD:            r.PnLUSD,
		CreatedAt:         time.Unix(0, r.CreatedAt),
	}
}

const signalCols = `signal_id, trader_id, asset, direction, trade_size_usd, leverage,
	entry_price, catalyst_headline, safety_rating, legitimacy_score, herd_index,
	historical_win_rate, ai_confidence_score, ai_summary, trade_status, pnl_usd, created_at`

// InsertSignal persists an enriched signal with insert-if-absent semantics on
// the signal ID. It reports whether a new row was written; a conflicting
// insert is a no-op and never overwrites existing fields.
func (s *Storage) InsertSignal(ctx context.Context, sig *models.EnrichedSignal) (bool, error) {
	if sig.CreatedAt.IsZero() {
		sig.CreatedAt = time.Now()
	}
	if err := sig.Validate(); err != nil {
		return false, fmt.Errorf("invalid signal: %w", err)
	}
	res, err := sqlx.NamedExecContext(ctx, s.db, `
		INSERT INTO signals (`+signalCols+`)
		VALUES (:signal_id, :trader_id, :asset, :direction, :trade_size_usd, :leverage,
			:entry_price, :catalyst_headline, :safety_rating, :legitimacy_score, :herd_index,
			:historical_win_rate, :ai_confidence_score, :ai_summary, :trade_status, :pnl_usd, :created_at)
		ON CONFLICT (signal_id) DO NOTHING`,
		fromSignal(sig),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert signal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// GetSignal returns the signal with the given ID.
func (s *Storage) GetSignal(ctx context.Context, signalID string) (*models.EnrichedSignal, error) {
	var row signalRow
	err := s.db.GetContext(ctx, &row,
		s.db.Rebind(`SELECT `+signalCols+` FROM signals WHERE signal_id = ?`), signalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get signal %s: %w", signalID, err)
	}
	sig := row.toModel()
	return &sig, nil
}

// RecentSignals returns the newest signals, most recent first.
func (s *Storage) RecentSignals(ctx context.Context, limit int) ([]models.EnrichedSignal, error) {
	var rows []signalRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+signalCols+` FROM signals ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	signals := make([]models.EnrichedSignal, 0, len(rows))
	for _, r := range rows {
		signals = append(signals, r.toModel())
	}
	return signals, nil
}

// OpenSignals returns all signals currently in the OPEN state.
func (s *Storage) OpenSignals(ctx context.Context) ([]models.EnrichedSignal, error) {
	var rows []signalRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT `+signalCols+` FROM signals WHERE trade_status = ?`),
		string(models.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("failed to query open signals: %w", err)
	}
	signals := make([]models.EnrichedSignal, 0, len(rows))
	for _, r := range rows {
		signals = append(signals, r.toModel())
	}
	return signals, nil
}

// UpdateSignalOutcome sets the lifecycle status and mark-to-market PnL of a
// signal. This is the portfolio monitor's mutation path; the pipeline itself
// never touches a signal after creation.
func (s *Storage) UpdateSignalOutcome(ctx context.Context, signalID string, status models.SignalStatus, pnlUSD float64) error {
	res, err := s.db.ExecContext(ctx,
		s.db.Rebind(`UPDATE signals SET trade_status = ?, pnl_usd = ? WHERE signal_id = ?`),
		string(status), pnlUSD, signalID)
	if err != nil {
		return fmt.Errorf("failed to update signal outcome: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("signal not found: %s", signalID)
	}
	return nil
}

// TraderWinRate reports the number of closed signals for the trader and how
// many of them closed profitable.
func (s *Storage) TraderWinRate(ctx context.Context, traderID string) (wins, closed int, err error) {
	err = s.db.GetContext(ctx, &closed,
		s.db.Rebind(`SELECT COUNT(*) FROM signals WHERE trader_id = ? AND trade_status = ?`),
		traderID, string(models.StatusClosed))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count closed signals: %w", err)
	}
	err = s.db.GetContext(ctx, &wins,
		s.db.Rebind(`SELECT COUNT(*) FROM signals WHERE trader_id = ? AND trade_status = ? AND pnl_usd > 0`),
		traderID, string(models.StatusClosed))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count winning signals: %w", err)
	}
	return wins, closed, nil
}
