package ws

import (
	"context"
	"sync"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// fakeFeed is a minimal in-memory MarketFeed for driving the stream from
// tests. It starts ready with an empty book.
type fakeFeed struct {
	mu      sync.Mutex
	asks    map[float64]float64
	bids    map[float64]float64
	bookSig chan struct{}
	trades  chan domain.Record
	events  chan domain.Record
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{
		asks:    map[float64]float64{},
		bids:    map[float64]float64{},
		bookSig: make(chan struct{}, 16),
		trades:  make(chan domain.Record, 16),
		events:  make(chan domain.Record, 16),
	}
}

func (f *fakeFeed) setBook(asks, bids map[float64]float64) {
	f.mu.Lock()
	f.asks, f.bids = asks, bids
	f.mu.Unlock()
	f.bookSig <- struct{}{}
}

func (f *fakeFeed) WaitReady(ctx context.Context) error { return nil }

func (f *fakeFeed) WaitBookChange(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.bookSig:
		return nil
	}
}

func (f *fakeFeed) Book() (map[float64]float64, map[float64]float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asks := make(map[float64]float64, len(f.asks))
	for p, s := range f.asks {
		asks[p] = s
	}
	bids := make(map[float64]float64, len(f.bids))
	for p, s := range f.bids {
		bids[p] = s
	}
	return asks, bids
}

func (f *fakeFeed) WatchTrades(ctx context.Context) <-chan domain.Record { return f.trades }
func (f *fakeFeed) WatchEvents(ctx context.Context) <-chan domain.Record { return f.events }

func (f *fakeFeed) Positions(ctx context.Context) ([]domain.Record, error) { return nil, nil }

func (f *fakeFeed) Close() error { return nil }

// fakeAdapter exposes a fakeFeed under the exchange name "fakex".
type fakeAdapter struct {
	feed *fakeFeed
}

func (a *fakeAdapter) Name() string { return "fakex" }

func (a *fakeAdapter) Connect(ctx context.Context, symbol string) (domain.MarketFeed, error) {
	return a.feed, nil
}

func (a *fakeAdapter) NormalizeTrade(rec domain.Record) domain.TradeEvent {
	return domain.TradeEvent{
		Price: rec.Float("price"),
		Side:  domain.Side(rec.String("side")),
		Size:  rec.Float("size"),
		Extra: rec,
	}
}

func (a *fakeAdapter) NormalizeEvent(rec domain.Record) domain.AccountEvent {
	return domain.AccountEvent{Name: rec.String("kind"), Extra: rec}
}

func (a *fakeAdapter) NormalizeLots(recs []domain.Record) []domain.PositionLot { return nil }

func (a *fakeAdapter) PlaceMarket(ctx context.Context, symbol string, side domain.Side, size float64) (string, error) {
	return "MKT-1", nil
}

func (a *fakeAdapter) PlaceLimit(ctx context.Context, symbol string, side domain.Side, size, price float64) (string, error) {
	return "LMT-1", nil
}

func (a *fakeAdapter) CancelOrder(ctx context.Context, symbol, id string) error { return nil }
