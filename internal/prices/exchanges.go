package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cryptex-ai/cryptex/internal/models"
)

func getJSON(ctx context.Context, client *http.Client, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// BinanceFetcher reads spot tickers from the Binance public API.
type BinanceFetcher struct {
	BaseURL string
	client  *http.Client
}

// NewBinanceFetcher creates the Binance spot price fetcher.
func NewBinanceFetcher(baseURL string, timeout time.Duration) *BinanceFetcher {
	return &BinanceFetcher{BaseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) Ticker(ctx context.Context, asset string) (float64, error) {
	var parsed struct {
		Price string `json:"price"`
	}
	endpoint := f.BaseURL + "/api/v3/ticker/price?symbol=" + models.BaseSymbol(asset) + "USDT"
	if err := getJSON(ctx, f.client, endpoint, &parsed); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(parsed.Price, 64)
}

// CoinbaseFetcher reads product tickers from the Coinbase Exchange API.
type CoinbaseFetcher struct {
	BaseURL string
	client  *http.Client
}

// NewCoinbaseFetcher creates the Coinbase spot price fetcher.
func NewCoinbaseFetcher(baseURL string, timeout time.Duration) *CoinbaseFetcher {
	return &CoinbaseFetcher{BaseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (f *CoinbaseFetcher) Name() string { return "coinbase" }

func (f *CoinbaseFetcher) Ticker(ctx context.Context, asset string) (float64, error) {
	var parsed struct {
		Price string `json:"price"`
	}
	endpoint := f.BaseURL + "/products/" + models.BaseSymbol(asset) + "-USD/ticker"
	if err := getJSON(ctx, f.client, endpoint, &parsed); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(parsed.Price, 64)
}

// KrakenFetcher reads tickers from the Kraken public API.
type KrakenFetcher struct {
	BaseURL string
	client  *http.Client
}

// NewKrakenFetcher creates the Kraken spot price fetcher.
func NewKrakenFetcher(baseURL string, timeout time.Duration) *KrakenFetcher {
	return &KrakenFetcher{BaseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

func (f *KrakenFetcher) Name() string { return "kraken" }

func (f *KrakenFetcher) Ticker(ctx context.Context, asset string) (float64, error) {
	var parsed struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			C []string `json:"c"` // last trade closed: [price, lot volume]
		} `json:"result"`
	}
	endpoint := f.BaseURL + "/0/public/Ticker?pair=" + models.BaseSymbol(asset) + "USD"
	if err := getJSON(ctx, f.client, endpoint, &parsed); err != nil {
		return 0, err
	}
	if len(parsed.Error) > 0 {
		return 0, fmt.Errorf("kraken error: %s", strings.Join(parsed.Error, "; "))
	}
	for _, ticker := range parsed.Result {
		if len(ticker.C) == 0 {
			continue
		}
		return strconv.ParseFloat(ticker.C[0], 64)
	}
	return 0, fmt.Errorf("no ticker data for %s", asset)
}
