package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptex-ai/cryptex/internal/models"
)

// AddTrader adds a trader to the watchlist. Adding an identifier that is
// already present is a no-op.
func (s *Storage) AddTrader(ctx context.Context, t models.WatchedTrader) error {
	if t.Identifier == "" {
		return fmt.Errorf("trader identifier must not be empty")
	}
	if t.AddedAt.IsZero() {
		t.AddedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO watchlist (identifier, exchange, description, is_active, added_at)
		VALUES (?,?,?,1,?)
		ON CONFLICT (identifier) DO NOTHING`),
		t.Identifier, t.Exchange, t.Description, t.AddedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to add trader: %w", err)
	}
	return nil
}

// RemoveTrader deletes a trader from the watchlist.
func (s *Storage) RemoveTrader(ctx context.Context, identifier string) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`DELETE FROM watchlist WHERE identifier = ?`), identifier)
	if err != nil {
		return fmt.Errorf("failed to remove trader: %w", err)
	}
	return nil
}

// ListTraders returns all active watchlist entries.
func (s *Storage) ListTraders(ctx context.Context) ([]models.WatchedTrader, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identifier, exchange, description, is_active, added_at
		FROM watchlist WHERE is_active = 1 ORDER BY added_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	traders := []models.WatchedTrader{}
	for rows.Next() {
		var t models.WatchedTrader
		var active int
		var addedAtNano int64
		if err := rows.Scan(&t.Identifier, &t.Exchange, &t.Description, &active, &addedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		t.Active = active != 0
		t.AddedAt = time.Unix(0, addedAtNano)
		traders = append(traders, t)
	}
	return traders, rows.Err()
}
