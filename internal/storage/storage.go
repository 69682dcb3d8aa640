// Package storage provides SQL-backed persistence for trade events, catalyst
// events, enriched signals, and the trader watchlist. It runs on SQLite by
// default and on PostgreSQL when configured; all statements are written with
// "?" placeholders and rebound per driver.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/cryptex-ai/cryptex/internal/models"
)

// Storage wraps a SQL database for all persistence operations.
type Storage struct {
	db     *sqlx.DB
	driver string
}

// New opens the database for the given driver ("sqlite" or "postgres").
// For SQLite an empty DSN defaults to $TMPDIR/cryptex/data.db.
func New(driver, dsn string) (*Storage, error) {
	switch driver {
	case "sqlite":
		if dsn == "" {
			dsn = filepath.Join(os.TempDir(), "cryptex", "data.db")
		}
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
	case "postgres":
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w", err)
		}
	}
	s := &Storage{db: db, driver: driver}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trade_events (
			id           TEXT PRIMARY KEY,
			trader_id    TEXT NOT NULL,
			asset        TEXT NOT NULL,
			direction    TEXT NOT NULL,
			notional_usd REAL NOT NULL,
			leverage     INTEGER NOT NULL,
			entry_price  REAL NOT NULL DEFAULT 0,
			raw_payload  TEXT NOT NULL DEFAULT '',
			ingested_at  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_asset_time ON trade_events(asset, ingested_at)`,
		`CREATE TABLE IF NOT EXISTS catalyst_events (
			id          TEXT PRIMARY KEY,
			headline    TEXT NOT NULL,
			source      TEXT NOT NULL DEFAULT '',
			asset_tags  TEXT NOT NULL,
			raw_payload TEXT NOT NULL DEFAULT '',
			ingested_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalysts_time ON catalyst_events(ingested_at)`,
		`CREATE TABLE IF NOT EXISTS signals (
			signal_id           TEXT PRIMARY KEY,
			trader_id           TEXT NOT NULL,
			asset               TEXT NOT NULL,
			direction           TEXT NOT NULL,
			trade_size_usd      REAL NOT NULL,
			leverage            INTEGER NOT NULL,
			entry_price         REAL NOT NULL DEFAULT 0,
			catalyst_headline   TEXT NOT NULL,
			safety_rating       TEXT NOT NULL,
			legitimacy_score    INTEGER NOT NULL,
			herd_index          INTEGER NOT NULL,
			historical_win_rate INTEGER NOT NULL,
			ai_confidence_score INTEGER NOT NULL,
			ai_summary          TEXT NOT NULL,
			trade_status        TEXT NOT NULL,
			pnl_usd             REAL NOT NULL DEFAULT 0,
			created_at          BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signals_status ON signals(trade_status)`,
		`CREATE TABLE IF NOT EXISTS watchlist (
			identifier  TEXT PRIMARY KEY,
			exchange    TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_active   INTEGER NOT NULL DEFAULT 1,
			added_at    BIGINT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertTrade appends a trade event. A missing ID is assigned, a zero
// ingestion time is stamped with now.
func (s *Storage) InsertTrade(ctx context.Context, t *models.TradeEvent) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.IngestedAt.IsZero() {
		t.IngestedAt = time.Now()
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid trade event: %w", err)
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO trade_events
			(id, trader_id, asset, direction, notional_usd, leverage, entry_price, raw_payload, ingested_at)
		VALUES (?,?,?,?,?,?,?,?,?)`),
		t.ID, t.TraderID, t.Asset, string(t.Direction), t.NotionalUSD, t.Leverage,
		t.EntryPrice, string(t.RawPayload), t.IngestedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade event: %w", err)
	}
	return nil
}

// InsertCatalyst appends a catalyst event. A missing ID is assigned, a zero
// ingestion time is stamped with now.
func (s *Storage) InsertCatalyst(ctx context.Context, c *models.CatalystEvent) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.IngestedAt.IsZero() {
		c.IngestedAt = time.Now()
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid catalyst event: %w", err)
	}
	tags, err := json.Marshal(c.AssetTags)
	if err != nil {
		return fmt.Errorf("failed to marshal asset tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO catalyst_events
			(id, headline, source, asset_tags, raw_payload, ingested_at)
		VALUES (?,?,?,?,?,?)`),
		c.ID, c.Headline, c.Source, string(tags), string(c.RawPayload), c.IngestedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert catalyst event: %w", err)
	}
	return nil
}

type tradeRow struct {
	ID          string  `db:"id"`
	TraderID    string  `db:"trader_id"`
	Asset       string  `db:"asset"`
	Direction   string  `db:"direction"`
	NotionalUSD float64 `db:"notional_usd"`
	Leverage    int     `db:"leverage"`
	EntryPrice  float64 `db:"entry_price"`
	RawPayload  string  `db:"raw_payload"`
	IngestedAt  int64   `db:"ingested_at"`
}

func (r tradeRow) toModel() models.TradeEvent {
	t := models.TradeEvent{
		ID:          r.ID,
		TraderID:    r.TraderID,
		Asset:       r.Asset,
		Direction:   models.Direction(r.Direction),
		NotionalUSD: r.NotionalUSD,
		Leverage:    r.Leverage,
		EntryPrice:  r.EntryPrice,
		IngestedAt:  time.Unix(0, r.IngestedAt),
	}
	if r.RawPayload != "" {
		t.RawPayload = json.RawMessage(r.RawPayload)
	}
	return t
}

// RecentTrades returns trade events for the asset ingested after since.
func (s *Storage) RecentTrades(ctx context.Context, asset string, since time.Time) ([]models.TradeEvent, error) {
	var rows []tradeRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, trader_id, asset, direction, notional_usd, leverage, entry_price, raw_payload, ingested_at
		FROM trade_events WHERE asset = ? AND ingested_at > ?`),
		asset, since.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query trade events: %w", err)
	}
	trades := make([]models.TradeEvent, 0, len(rows))
	for _, r := range rows {
		trades = append(trades, r.toModel())
	}
	return trades, nil
}

// RecentCatalysts returns catalyst events tagged with the asset and ingested
// after since.
func (s *Storage) RecentCatalysts(ctx context.Context, asset string, since time.Time) ([]models.CatalystEvent, error) {
	// Tags are stored as a JSON array, so a containment check is a LIKE on
	// the quoted symbol; this stays portable across both drivers.
	pattern := `%"` + asset + `"%`
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT id, headline, source, asset_tags, raw_payload, ingested_at
		FROM catalyst_events WHERE asset_tags LIKE ? AND ingested_at > ?`),
		pattern, since.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalyst events: %w", err)
	}
	defer rows.Close()

	catalysts := []models.CatalystEvent{}
	for rows.Next() {
		var c models.CatalystEvent
		var tags, raw string
		var ingestedAtNano int64
		if err := rows.Scan(&c.ID, &c.Headline, &c.Source, &tags, &raw, &ingestedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan catalyst event: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.AssetTags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal asset tags: %w", err)
		}
		if raw != "" {
			c.RawPayload = json.RawMessage(raw)
		}
		c.IngestedAt = time.Unix(0, ingestedAtNano)
		if !c.HasTag(asset) {
			continue // LIKE can overmatch on substrings of longer symbols
		}
		catalysts = append(catalysts, c)
	}
	return catalysts, rows.Err()
}

// PruneEvents deletes trade and catalyst events ingested before cutoff.
func (s *Storage) PruneEvents(ctx context.Context, cutoff time.Time) error {
	for _, table := range []string{"trade_events", "catalyst_events"} {
		q := s.db.Rebind(fmt.Sprintf(`DELETE FROM %s WHERE ingested_at < ?`, table))
		if _, err := s.db.ExecContext(ctx, q, cutoff.UnixNano()); err != nil {
			return fmt.Errorf("failed to prune %s: %w", table, err)
		}
	}
	return nil
}
