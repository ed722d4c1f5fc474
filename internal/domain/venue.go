package domain

import "context"

// MarketFeed is a live, venue-agnostic view of one symbol's market data. A
// feed is owned by a single session and is not shared.
//
// WatchTrades and WatchEvents return append-only streams: one Record per
// inserted row, in venue order. The returned channels are closed when the
// context is cancelled or the feed is closed.
type MarketFeed interface {
	// WaitReady blocks until the feed has received its first book snapshot.
	// Sessions use this as the warm-up barrier during construction.
	WaitReady(ctx context.Context) error

	// WaitBookChange blocks until the raw book changes.
	WaitBookChange(ctx context.Context) error

	// Book returns the current raw book as price-to-size maps. The returned
	// maps are copies and safe to read without coordination.
	Book() (asks, bids map[float64]float64)

	WatchTrades(ctx context.Context) <-chan Record
	WatchEvents(ctx context.Context) <-chan Record

	// Positions fetches all currently open position lots, raw.
	Positions(ctx context.Context) ([]Record, error)

	Close() error
}

// ExchangeAdapter is the per-venue capability set: feed construction, message
// normalization, and order placement. Exactly one implementation exists per
// supported exchange; the session resolves one at build time.
type ExchangeAdapter interface {
	Name() string

	// Connect establishes the venue connection for symbol and returns its
	// market feed. The feed may still be warming up; callers gate on
	// MarketFeed.WaitReady.
	Connect(ctx context.Context, symbol string) (MarketFeed, error)

	// NormalizeTrade maps a raw execution record to the canonical shape.
	NormalizeTrade(rec Record) TradeEvent

	// NormalizeEvent maps a raw account event record to the canonical shape,
	// renaming venue-specific fields.
	NormalizeEvent(rec Record) AccountEvent

	// NormalizeLots maps raw position records to canonical lots.
	NormalizeLots(recs []Record) []PositionLot

	// PlaceMarket and PlaceLimit return the venue-assigned order identifier.
	// Venue rejections wrap ErrOrderRejected.
	PlaceMarket(ctx context.Context, symbol string, side Side, size float64) (string, error)
	PlaceLimit(ctx context.Context, symbol string, side Side, size, price float64) (string, error)
	CancelOrder(ctx context.Context, symbol, id string) error
}
