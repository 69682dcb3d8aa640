package portfolio

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/cryptex-ai/cryptex/internal/models"
	"github.com/cryptex-ai/cryptex/internal/prices"
)

type fakeBook struct {
	open    []models.EnrichedSignal
	openErr error
	updates map[string]float64
}

func (f *fakeBook) OpenSignals(context.Context) ([]models.EnrichedSignal, error) {
	return f.open, f.openErr
}

func (f *fakeBook) UpdateSignalOutcome(_ context.Context, signalID string, _ models.SignalStatus, pnlUSD float64) error {
	if f.updates == nil {
		f.updates = make(map[string]float64)
	}
	f.updates[signalID] = pnlUSD
	return nil
}

type fakePrices struct {
	quotes map[string]prices.Quote
}

func (f *fakePrices) Best(_ context.Context, asset string) (prices.Quote, error) {
	q, ok := f.quotes[asset]
	if !ok {
		return prices.Quote{}, errors.New("no live price")
	}
	return q, nil
}

func openSignal(id, asset string, dir models.Direction, size, entry float64) models.EnrichedSignal {
	return models.EnrichedSignal{
		SignalID: id, TraderID: "0xabc", Asset: asset, Direction: dir,
		TradeSizeUSD: size, EntryPrice: entry, Status: models.StatusOpen,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestPnL(t *testing.T) {
	long := openSignal("l", "SOL", models.DirectionLong, 10000, 100)
	if got := PnL(long, 110); !almostEqual(got, 1000) {
		t.Errorf("long PnL = %f, want 1000", got)
	}
	if got := PnL(long, 90); !almostEqual(got, -1000) {
		t.Errorf("long PnL = %f, want -1000", got)
	}

	short := openSignal("s", "SOL", models.DirectionShort, 10000, 100)
	if got := PnL(short, 90); !almostEqual(got, 1000) {
		t.Errorf("short PnL = %f, want 1000", got)
	}
	if got := PnL(short, 110); !almostEqual(got, -1000) {
		t.Errorf("short PnL = %f, want -1000", got)
	}

	if got := PnL(long, 100); !almostEqual(got, 0) {
		t.Errorf("flat PnL = %f, want 0", got)
	}
}

func TestCheck_MarksOpenPositions(t *testing.T) {
	book := &fakeBook{open: []models.EnrichedSignal{
		openSignal("sig-1", "SOL", models.DirectionLong, 10000, 100),
		openSignal("sig-2", "ETH", models.DirectionShort, 20000, 4000),
	}}
	quotes := &fakePrices{quotes: map[string]prices.Quote{
		"SOL": {Exchange: "kraken", Price: 110},
		"ETH": {Exchange: "coinbase", Price: 3800},
	}}
	m := New(book, quotes)

	report, err := m.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Tracked != 2 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
	if !almostEqual(book.updates["sig-1"], 1000) {
		t.Errorf("sig-1 PnL = %f, want 1000", book.updates["sig-1"])
	}
	if !almostEqual(book.updates["sig-2"], 1000) {
		t.Errorf("sig-2 PnL = %f, want 1000", book.updates["sig-2"])
	}
	if !almostEqual(report.TotalPnL, 2000) {
		t.Errorf("total PnL = %f, want 2000", report.TotalPnL)
	}
}

func TestCheck_SkipsUnpriceable(t *testing.T) {
	book := &fakeBook{open: []models.EnrichedSignal{
		openSignal("sig-1", "SOL", models.DirectionLong, 10000, 100),
		openSignal("sig-2", "OBSCURE", models.DirectionLong, 5000, 10),
	}}
	quotes := &fakePrices{quotes: map[string]prices.Quote{
		"SOL": {Exchange: "kraken", Price: 110},
	}}
	m := New(book, quotes)

	report, err := m.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Tracked != 1 || report.Skipped != 1 {
		t.Errorf("report = %+v", report)
	}
	if _, ok := book.updates["sig-2"]; ok {
		t.Error("unpriceable signal must not be updated")
	}
}

func TestCheck_SkipsMissingEntryPrice(t *testing.T) {
	book := &fakeBook{open: []models.EnrichedSignal{
		openSignal("sig-1", "SOL", models.DirectionLong, 10000, 0),
	}}
	m := New(book, &fakePrices{})

	report, err := m.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Skipped != 1 || report.Tracked != 0 {
		t.Errorf("report = %+v", report)
	}
}

func TestCheck_BookError(t *testing.T) {
	m := New(&fakeBook{openErr: errors.New("db down")}, &fakePrices{})
	if _, err := m.Check(context.Background()); err == nil {
		t.Error("expected error when the signal book is unavailable")
	}
}

func TestCheck_EmptyBook(t *testing.T) {
	m := New(&fakeBook{}, &fakePrices{})
	report, err := m.Check(context.Background())
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if report.Tracked != 0 || report.Skipped != 0 {
		t.Errorf("report = %+v", report)
	}
}
