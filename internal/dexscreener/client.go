// Package dexscreener provides a client for the public DexScreener API,
// which is keyless and serves per-token trading pair data.
package dexscreener

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// SourceName identifies this provider in risk assessment provenance.
const SourceName = "DEX Screener"

// Token identifies one side of a trading pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity is the pooled liquidity of a pair.
type Liquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Pair is a single trading pair for a token.
type Pair struct {
	ChainID       string    `json:"chainId"`
	DexID         string    `json:"dexId"`
	URL           string    `json:"url"`
	BaseToken     Token     `json:"baseToken"`
	QuoteToken    Token     `json:"quoteToken"`
	PriceUSD      string    `json:"priceUsd"`
	Liquidity     Liquidity `json:"liquidity"`
	PairCreatedAt int64     `json:"pairCreatedAt"` // epoch millis
}

// CreatedTime converts the pair creation timestamp to a time.Time.
func (p Pair) CreatedTime() time.Time {
	return time.UnixMilli(p.PairCreatedAt)
}

// Client provides access to the DexScreener API.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new DexScreener client.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		baseURL:        baseURL,
		httpClient:     &http.Client{Timeout: timeout},
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

type tokenPairsResponse struct {
	Pairs []Pair `json:"pairs"`
}

// TokenPairs retrieves all trading pairs for a token contract address or
// symbol-derived identifier. An empty result is returned as an empty slice,
// not an error; the caller decides how to rate it.
func (c *Client) TokenPairs(ctx context.Context, address string) ([]Pair, error) {
	if address == "" {
		return nil, fmt.Errorf("token address must not be empty")
	}
	endpoint := c.baseURL + "/latest/dex/tokens/" + url.PathEscape(address)

	resp, err := c.doRequest(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token pairs: %w", err)
	}
	defer resp.Body.Close()

	var parsed tokenPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode token pairs: %w", err)
	}
	return parsed.Pairs, nil
}

// doRequest performs an HTTP GET with linear-backoff retry on transport
// errors and 5xx responses. Non-5xx error statuses are returned immediately.
func (c *Client) doRequest(ctx context.Context, urlStr string) (*http.Response, error) {
	var lastErr error

	for i := 0; i < c.maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if !sleepCtx(ctx, c.retryDelayBase*time.Duration(i+1)) {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
			if !sleepCtx(ctx, c.retryDelayBase*time.Duration(i+1)) {
				return nil, ctx.Err()
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
		}
		return resp, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
