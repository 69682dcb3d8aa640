package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/cryptex-ai/cryptex/internal/models"
)

type fakeSink struct {
	trades    []models.TradeEvent
	catalysts []models.CatalystEvent
	err       error
}

func (f *fakeSink) InsertTrade(_ context.Context, t *models.TradeEvent) error {
	if f.err != nil {
		return f.err
	}
	f.trades = append(f.trades, *t)
	return nil
}

func (f *fakeSink) InsertCatalyst(_ context.Context, c *models.CatalystEvent) error {
	if f.err != nil {
		return f.err
	}
	f.catalysts = append(f.catalysts, *c)
	return nil
}

type fakeWatchlist struct {
	traders []models.WatchedTrader
	err     error
}

func (f *fakeWatchlist) ListTraders(context.Context) ([]models.WatchedTrader, error) {
	return f.traders, f.err
}

const leaderboardBody = `{
	"data": {
		"otherPositionRetList": [
			{"symbol": "SOLUSDT", "amount": 1000, "entryPrice": 140.5, "markPrice": 145.2, "leverage": 10},
			{"symbol": "ETHUSDT", "amount": -50, "entryPrice": 3200, "markPrice": 3150, "leverage": 5},
			{"symbol": "", "amount": 10, "entryPrice": 1, "markPrice": 1, "leverage": 1},
			{"symbol": "BTCUSDT", "amount": 0, "entryPrice": 65000, "markPrice": 65000, "leverage": 3}
		]
	}
}`

func TestLeaderboardFeed_Poll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("encryptedUid"); got != "uid-1" {
			t.Errorf("encryptedUid = %q", got)
		}
		w.Write([]byte(leaderboardBody))
	}))
	t.Cleanup(srv.Close)

	sink := &fakeSink{}
	watchlist := &fakeWatchlist{traders: []models.WatchedTrader{
		{Identifier: "uid-1", Exchange: "binance", Description: "whale one"},
	}}
	f := NewLeaderboardFeed(srv.URL, 5*time.Second, watchlist, sink)

	assets, err := f.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	// Empty symbol and zero amount positions are skipped; symbols are
	// normalized to the base asset.
	if !reflect.DeepEqual(assets, []string{"SOL", "ETH"}) {
		t.Errorf("assets = %v", assets)
	}
	if len(sink.trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(sink.trades))
	}

	long := sink.trades[0]
	if long.TraderID != "whale one" {
		t.Errorf("trader ID = %q, want description", long.TraderID)
	}
	if long.Direction != models.DirectionLong {
		t.Errorf("direction = %s, want LONG", long.Direction)
	}
	if long.NotionalUSD != 1000*145.2 {
		t.Errorf("notional = %f, want amount x mark price", long.NotionalUSD)
	}
	if long.EntryPrice != 140.5 || long.Leverage != 10 {
		t.Errorf("entry/leverage not carried: %+v", long)
	}

	short := sink.trades[1]
	if short.Direction != models.DirectionShort {
		t.Errorf("direction = %s, want SHORT for negative amount", short.Direction)
	}
	if short.NotionalUSD != 50*3150 {
		t.Errorf("short notional = %f", short.NotionalUSD)
	}
}

func TestLeaderboardFeed_AssetMatchesCatalystTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": {"otherPositionRetList": [
			{"symbol": "BTCUSDT", "amount": 2, "entryPrice": 65000, "markPrice": 65100, "leverage": 5}
		]}}`))
	}))
	t.Cleanup(srv.Close)

	sink := &fakeSink{}
	watchlist := &fakeWatchlist{traders: []models.WatchedTrader{{Identifier: "uid-1"}}}
	f := NewLeaderboardFeed(srv.URL, 5*time.Second, watchlist, sink)

	if _, err := f.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(sink.trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(sink.trades))
	}

	// The stored trade asset and the news tagger must agree on the symbol,
	// or trade and catalyst events for the same asset never correlate.
	catalyst := models.CatalystEvent{
		Headline:  "Bitcoin ETF approval imminent",
		AssetTags: TagAssets("Bitcoin ETF approval imminent"),
	}
	if got := sink.trades[0].Asset; got != "BTC" {
		t.Errorf("trade asset = %q, want base symbol BTC", got)
	}
	if !catalyst.HasTag(sink.trades[0].Asset) {
		t.Errorf("catalyst tags %v do not include trade asset %q",
			catalyst.AssetTags, sink.trades[0].Asset)
	}
}

func TestLeaderboardFeed_TraderFailureIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("encryptedUid") == "uid-bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(leaderboardBody))
	}))
	t.Cleanup(srv.Close)

	sink := &fakeSink{}
	watchlist := &fakeWatchlist{traders: []models.WatchedTrader{
		{Identifier: "uid-bad"},
		{Identifier: "uid-1"},
	}}
	f := NewLeaderboardFeed(srv.URL, 5*time.Second, watchlist, sink)

	assets, err := f.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(assets) != 2 {
		t.Errorf("assets = %v, want the healthy trader's positions", assets)
	}
}

func TestLeaderboardFeed_EmptyWatchlist(t *testing.T) {
	f := NewLeaderboardFeed("http://unused", time.Second, &fakeWatchlist{}, &fakeSink{})
	assets, err := f.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(assets) != 0 {
		t.Errorf("assets = %v, want none", assets)
	}
}

func TestLeaderboardFeed_WatchlistError(t *testing.T) {
	f := NewLeaderboardFeed("http://unused", time.Second, &fakeWatchlist{err: errors.New("db down")}, &fakeSink{})
	if _, err := f.Poll(context.Background()); err == nil {
		t.Error("expected error when watchlist is unavailable")
	}
}

const newsBody = `{
	"status": "ok",
	"articles": [
		{"title": "Solana ETF approval rumored", "source": {"name": "Reuters"}, "url": "https://example.com/1"},
		{"title": "Stocks rally on jobs report", "source": {"name": "AP"}, "url": "https://example.com/2"},
		{"title": "Bitcoin and Ethereum diverge", "source": {"name": "CoinDesk"}, "url": "https://example.com/3"}
	]
}`

func TestNewsFeed_Poll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("apiKey") != "test-key" || q.Get("q") != "crypto" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(newsBody))
	}))
	t.Cleanup(srv.Close)

	sink := &fakeSink{}
	f := NewNewsFeed(srv.URL, "test-key", "", 0, 5*time.Second, sink)

	assets, err := f.Poll(context.Background())
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	// The untagged jobs-report article must be dropped.
	if len(sink.catalysts) != 2 {
		t.Fatalf("got %d catalysts, want 2", len(sink.catalysts))
	}
	if sink.catalysts[0].Headline != "Solana ETF approval rumored" {
		t.Errorf("headline = %q", sink.catalysts[0].Headline)
	}
	if !reflect.DeepEqual(sink.catalysts[0].AssetTags, []string{"SOL"}) {
		t.Errorf("tags = %v", sink.catalysts[0].AssetTags)
	}
	if !reflect.DeepEqual(assets, []string{"SOL", "BTC", "ETH"}) {
		t.Errorf("assets = %v", assets)
	}
}

func TestNewsFeed_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	f := NewNewsFeed(srv.URL, "bad-key", "crypto", 20, 5*time.Second, &fakeSink{})
	if _, err := f.Poll(context.Background()); err == nil {
		t.Error("expected error for non-200 response")
	}
}
