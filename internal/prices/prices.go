// Package prices fetches live spot quotes from multiple exchanges
// concurrently and picks the best one.
package prices

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cryptex-ai/cryptex/internal/logger"
)

// Quote is one exchange's last price for an asset.
type Quote struct {
	Exchange string  `json:"exchange"`
	Price    float64 `json:"price"`
}

// Fetcher retrieves the last traded price of an asset from one exchange.
type Fetcher interface {
	Name() string
	Ticker(ctx context.Context, asset string) (float64, error)
}

// Service fans a quote request out to all configured exchanges.
type Service struct {
	fetchers []Fetcher
}

// NewService creates a price service over the given exchange fetchers.
func NewService(fetchers ...Fetcher) *Service {
	return &Service{fetchers: fetchers}
}

// Quotes queries every exchange concurrently and returns the successful
// quotes sorted by price ascending. Per-exchange failures are logged and
// skipped; the gather barrier waits for all fetchers.
func (s *Service) Quotes(ctx context.Context, asset string) []Quote {
	var (
		mu     sync.Mutex
		quotes []Quote
		wg     sync.WaitGroup
	)
	for _, f := range s.fetchers {
		wg.Add(1)
		go func(f Fetcher) {
			defer wg.Done()
			price, err := f.Ticker(ctx, asset)
			if err != nil {
				logger.Debug("Price fetch failed on %s for %s: %v", f.Name(), asset, err)
				return
			}
			mu.Lock()
			quotes = append(quotes, Quote{Exchange: f.Name(), Price: price})
			mu.Unlock()
		}(f)
	}
	wg.Wait()

	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Price < quotes[j].Price })
	return quotes
}

// Best returns the lowest live quote for the asset. It fails only when every
// exchange failed.
func (s *Service) Best(ctx context.Context, asset string) (Quote, error) {
	quotes := s.Quotes(ctx, asset)
	if len(quotes) == 0 {
		return Quote{}, fmt.Errorf("no live price for %s on any exchange", asset)
	}
	return quotes[0], nil
}
