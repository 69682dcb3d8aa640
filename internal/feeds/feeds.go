// Package feeds polls the external trade and news sources and appends their
// events to the event store. Feeds tolerate outages: a failed poll is logged
// by the caller and simply yields no events for that cycle.
package feeds

import (
	"context"

	"github.com/cryptex-ai/cryptex/internal/models"
)

// EventSink is the append side of the event store.
type EventSink interface {
	InsertTrade(ctx context.Context, t *models.TradeEvent) error
	InsertCatalyst(ctx context.Context, c *models.CatalystEvent) error
}

// Feed is one polled event source. Poll ingests the latest events into the
// sink and returns the asset symbols it touched, which seed the correlation
// candidates for the cycle.
type Feed interface {
	Name() string
	Poll(ctx context.Context) ([]string, error)
}
