package bitflyer

import (
	"context"
	"sync"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// Feed implements domain.MarketFeed for one bitFlyer product. Realtime data
// arrives through the ws client into the store; position lots are fetched on
// demand over REST.
type Feed struct {
	symbol string
	store  *store
	ws     *wsClient
	rest   *restClient

	closeOnce sync.Once
	closeErr  error
}

var _ domain.MarketFeed = (*Feed)(nil)

func (f *Feed) WaitReady(ctx context.Context) error {
	return f.store.waitReady(ctx)
}

func (f *Feed) WaitBookChange(ctx context.Context) error {
	return f.store.waitBookChange(ctx)
}

func (f *Feed) Book() (asks, bids map[float64]float64) {
	return f.store.book()
}

func (f *Feed) WatchTrades(ctx context.Context) <-chan domain.Record {
	return f.store.watchTrades(ctx)
}

func (f *Feed) WatchEvents(ctx context.Context) <-chan domain.Record {
	return f.store.watchEvents(ctx)
}

func (f *Feed) Positions(ctx context.Context) ([]domain.Record, error) {
	return f.rest.positions(ctx, f.symbol)
}

func (f *Feed) Close() error {
	f.closeOnce.Do(func() {
		f.closeErr = f.ws.close()
		f.store.close()
	})
	return f.closeErr
}
