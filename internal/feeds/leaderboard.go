package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/cryptex-ai/cryptex/internal/logger"
	"github.com/cryptex-ai/cryptex/internal/models"
)

// WatchlistSource provides the traders to poll.
type WatchlistSource interface {
	ListTraders(ctx context.Context) ([]models.WatchedTrader, error)
}

// LeaderboardFeed polls the futures leaderboard positions of every
// watchlisted trader and records them as trade events.
type LeaderboardFeed struct {
	baseURL    string
	httpClient *http.Client
	watchlist  WatchlistSource
	sink       EventSink
}

// NewLeaderboardFeed creates the leaderboard trade feed.
func NewLeaderboardFeed(baseURL string, timeout time.Duration, watchlist WatchlistSource, sink EventSink) *LeaderboardFeed {
	return &LeaderboardFeed{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		watchlist:  watchlist,
		sink:       sink,
	}
}

// Name implements Feed.
func (f *LeaderboardFeed) Name() string { return "cex-leaderboard" }

type leaderboardPosition struct {
	Symbol     string  `json:"symbol"`
	Amount     float64 `json:"amount"`
	EntryPrice float64 `json:"entryPrice"`
	MarkPrice  float64 `json:"markPrice"`
	Leverage   float64 `json:"leverage"`
}

type leaderboardResponse struct {
	Data struct {
		OtherPositionRetList []leaderboardPosition `json:"otherPositionRetList"`
	} `json:"data"`
}

// Poll fetches every watchlisted trader's open positions. A failure on one
// trader is logged and does not block the rest.
func (f *LeaderboardFeed) Poll(ctx context.Context) ([]string, error) {
	traders, err := f.watchlist.ListTraders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	if len(traders) == 0 {
		logger.Debug("Leaderboard feed has no watchlisted traders")
		return nil, nil
	}

	var assets []string
	for _, trader := range traders {
		touched, err := f.pollTrader(ctx, trader)
		if err != nil {
			logger.Warn("Leaderboard poll failed for %s: %v", trader.Identifier, err)
			continue
		}
		assets = append(assets, touched...)
	}
	return assets, nil
}

func (f *LeaderboardFeed) pollTrader(ctx context.Context, trader models.WatchedTrader) ([]string, error) {
	endpoint := f.baseURL + "/fapi/v1/leaderboard/getOtherPosition?encryptedUid=" + url.QueryEscape(trader.Identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("leaderboard request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("leaderboard returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard response: %w", err)
	}
	var parsed leaderboardResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard response: %w", err)
	}

	var assets []string
	for _, pos := range parsed.Data.OtherPositionRetList {
		trade, err := positionToTrade(trader, pos)
		if err != nil {
			logger.Debug("Skipping leaderboard position for %s: %v", trader.Identifier, err)
			continue
		}
		if err := f.sink.InsertTrade(ctx, &trade); err != nil {
			logger.Warn("Failed to store trade event for %s: %v", trader.Identifier, err)
			continue
		}
		assets = append(assets, trade.Asset)
	}
	return assets, nil
}

func positionToTrade(trader models.WatchedTrader, pos leaderboardPosition) (models.TradeEvent, error) {
	if pos.Symbol == "" {
		return models.TradeEvent{}, fmt.Errorf("position has no symbol")
	}
	if pos.Amount == 0 {
		return models.TradeEvent{}, fmt.Errorf("position %s has zero amount", pos.Symbol)
	}

	direction := models.DirectionLong
	if pos.Amount < 0 {
		direction = models.DirectionShort
	}
	price := pos.MarkPrice
	if price == 0 {
		price = pos.EntryPrice
	}
	raw, err := json.Marshal(pos)
	if err != nil {
		return models.TradeEvent{}, fmt.Errorf("failed to marshal raw position: %w", err)
	}

	traderID := trader.Description
	if traderID == "" {
		traderID = trader.Identifier
	}
	return models.TradeEvent{
		TraderID:    traderID,
		Asset:       models.BaseSymbol(pos.Symbol),
		Direction:   direction,
		NotionalUSD: math.Abs(pos.Amount) * price,
		Leverage:    int(pos.Leverage),
		EntryPrice:  pos.EntryPrice,
		RawPayload:  raw,
	}, nil
}
