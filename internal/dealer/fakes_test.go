package dealer

import (
	"context"
	"fmt"
	"sync"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// fakeFeed is an in-memory MarketFeed driven directly by tests.
type fakeFeed struct {
	mu   sync.Mutex
	asks map[float64]float64
	bids map[float64]float64

	ready    chan struct{}
	bookSig  chan struct{}
	trades   chan domain.Record
	events   chan domain.Record
	lots     []domain.Record
	posErr   error
	closed   bool
	closeErr error
}

func newFakeFeed() *fakeFeed {
	f := &fakeFeed{
		asks:    map[float64]float64{},
		bids:    map[float64]float64{},
		ready:   make(chan struct{}),
		bookSig: make(chan struct{}, 16),
		trades:  make(chan domain.Record, 16),
		events:  make(chan domain.Record, 16),
	}
	close(f.ready)
	return f
}

// newWarmingFeed returns a feed whose WaitReady blocks until markReady.
func newWarmingFeed() *fakeFeed {
	f := newFakeFeed()
	f.ready = make(chan struct{})
	return f
}

func (f *fakeFeed) markReady() { close(f.ready) }

func (f *fakeFeed) setBook(asks, bids map[float64]float64) {
	f.mu.Lock()
	f.asks, f.bids = asks, bids
	f.mu.Unlock()
	f.bookSig <- struct{}{}
}

func (f *fakeFeed) setLots(lots []domain.Record, err error) {
	f.mu.Lock()
	f.lots, f.posErr = lots, err
	f.mu.Unlock()
}

func (f *fakeFeed) WaitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-f.ready:
		return nil
	}
}

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

func (f *fakeFeed) Positions(ctx context.Context) ([]domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lots, f.posErr
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

// fakeAdapter is a scriptable ExchangeAdapter backed by a fakeFeed.
type fakeAdapter struct {
	name       string
	feed       *fakeFeed
	connectErr error
	placeErr   error
	cancelErr  error

	mu        sync.Mutex
	placed    []string
	cancelled []string
}

func newFakeAdapter(feed *fakeFeed) *fakeAdapter {
	return &fakeAdapter{name: "fakex", feed: feed}
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Connect(ctx context.Context, symbol string) (domain.MarketFeed, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
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
	return domain.AccountEvent{
		Name:    rec.String("kind"),
		OrderID: rec.String("ref"),
		Extra:   rec,
	}
}

func (a *fakeAdapter) NormalizeLots(recs []domain.Record) []domain.PositionLot {
	lots := make([]domain.PositionLot, 0, len(recs))
	for _, rec := range recs {
		lots = append(lots, domain.PositionLot{
			Side:  domain.Side(rec.String("side")),
			Size:  rec.Float("size"),
			Price: rec.Float("price"),
		})
	}
	return lots
}

func (a *fakeAdapter) PlaceMarket(ctx context.Context, symbol string, side domain.Side, size float64) (string, error) {
	if a.placeErr != nil {
		return "", a.placeErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := fmt.Sprintf("MKT-%d", len(a.placed)+1)
	a.placed = append(a.placed, id)
	return id, nil
}

func (a *fakeAdapter) PlaceLimit(ctx context.Context, symbol string, side domain.Side, size, price float64) (string, error) {
	if a.placeErr != nil {
		return "", a.placeErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	id := fmt.Sprintf("LMT-%d", len(a.placed)+1)
	a.placed = append(a.placed, id)
	return id, nil
}

func (a *fakeAdapter) CancelOrder(ctx context.Context, symbol, id string) error {
	if a.cancelErr != nil {
		return a.cancelErr
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancelled = append(a.cancelled, id)
	return nil
}
