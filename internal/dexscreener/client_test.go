package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const pairsBody = `{
	"pairs": [
		{
			"chainId": "solana",
			"dexId": "raydium",
			"baseToken": {"address": "So1abc", "name": "Bonk", "symbol": "BONK"},
			"quoteToken": {"address": "So1usdc", "name": "USD Coin", "symbol": "USDC"},
			"priceUsd": "0.000021",
			"liquidity": {"usd": 125000.5, "base": 100, "quote": 200},
			"pairCreatedAt": 1700000000000
		},
		{
			"chainId": "solana",
			"dexId": "orca",
			"baseToken": {"address": "So1abc", "name": "Bonk", "symbol": "BONK"},
			"quoteToken": {"address": "So1sol", "name": "Wrapped SOL", "symbol": "SOL"},
			"priceUsd": "0.000020",
			"liquidity": {"usd": 42000, "base": 50, "quote": 75},
			"pairCreatedAt": 1700005000000
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, 3, time.Millisecond)
}

func TestTokenPairs_Decode(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(pairsBody))
	})

	pairs, err := c.TokenPairs(context.Background(), "So1abc")
	if err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}
	if gotPath != "/latest/dex/tokens/So1abc" {
		t.Errorf("got path %s", gotPath)
	}
	if len(pairs) != 2 {
		t.Fatalf("got %d pairs, want 2", len(pairs))
	}
	if pairs[0].Liquidity.USD != 125000.5 {
		t.Errorf("liquidity = %f, want 125000.5", pairs[0].Liquidity.USD)
	}
	if pairs[0].BaseToken.Symbol != "BONK" {
		t.Errorf("base symbol = %s", pairs[0].BaseToken.Symbol)
	}
	want := time.UnixMilli(1700000000000)
	if !pairs[0].CreatedTime().Equal(want) {
		t.Errorf("created time = %v, want %v", pairs[0].CreatedTime(), want)
	}
}

func TestTokenPairs_EmptyResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs": null}`))
	})

	pairs, err := c.TokenPairs(context.Background(), "unknown-token")
	if err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}
	if len(pairs) != 0 {
		t.Errorf("got %d pairs, want 0", len(pairs))
	}
}

func TestTokenPairs_EmptyAddress(t *testing.T) {
	c := NewClient("http://unused", time.Second, 1, time.Millisecond)
	if _, err := c.TokenPairs(context.Background(), ""); err == nil {
		t.Error("expected error for empty address")
	}
}

func TestTokenPairs_RetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(pairsBody))
	})

	pairs, err := c.TokenPairs(context.Background(), "So1abc")
	if err != nil {
		t.Fatalf("TokenPairs: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("got %d calls, want 3", calls.Load())
	}
	if len(pairs) != 2 {
		t.Errorf("got %d pairs, want 2", len(pairs))
	}
}

func TestTokenPairs_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.TokenPairs(context.Background(), "So1abc"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if calls.Load() != 3 {
		t.Errorf("got %d calls, want 3", calls.Load())
	}
}

func TestTokenPairs_NoRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if _, err := c.TokenPairs(context.Background(), "So1abc"); err == nil {
		t.Fatal("expected error for 429")
	}
	if calls.Load() != 1 {
		t.Errorf("got %d calls, want 1 (4xx must not retry)", calls.Load())
	}
}
