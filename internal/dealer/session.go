// Package dealer is the per-session aggregation engine: it normalizes a
// venue's independent real-time feeds into one ordered message stream and
// exposes the order-command surface against the same venue.
package dealer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ktmaeda/dealerdesk/internal/book"
	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// Config is the immutable per-session configuration.
type Config struct {
	Exchange string
	Symbol   string
	Pips     float64
	Lower    float64
	Upper    float64

	// PollInterval paces the position producer. Zero selects the default.
	PollInterval time.Duration
}

// Validate reports configuration problems.
func (c Config) Validate() error {
	if c.Exchange == "" {
		return fmt.Errorf("dealer: exchange must not be empty")
	}
	if c.Symbol == "" {
		return fmt.Errorf("dealer: symbol must not be empty")
	}
	return book.Window{Pips: c.Pips, Lower: c.Lower, Upper: c.Upper}.Validate()
}

// Session composes one dashboard consumer's view of a venue: a market feed,
// the fan-in multiplexer over it, and an order gateway. Sessions are built
// with Build, consumed with Get, and torn down with Stop.
type Session struct {
	id      string
	cfg     Config
	adapter domain.ExchangeAdapter
	feed    domain.MarketFeed
	mux     *Mux
	gateway *Gateway
	logger  *slog.Logger

	stopOnce sync.Once
}

// Build constructs and starts a session: it resolves the exchange adapter,
// connects the venue feed, waits for the book warm-up barrier, and spawns the
// producers. ctx bounds construction only, so callers can deadline the venue
// connect and warm-up wait; once Build returns, the producers run until Stop.
//
// Unknown exchanges fail fast with domain.ErrUnsupportedExchange; any later
// failure tears the partially built session down before returning.
func Build(ctx context.Context, adapters *Adapters, cfg Config, logger *slog.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	adapter, err := adapters.Get(cfg.Exchange)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger = logger.With(
		slog.String("session_id", id),
		slog.String("exchange", cfg.Exchange),
		slog.String("symbol", cfg.Symbol),
	)

	feed, err := adapter.Connect(ctx, cfg.Symbol)
	if err != nil {
		return nil, fmt.Errorf("dealer: connect %s: %w", cfg.Exchange, err)
	}

	if err := feed.WaitReady(ctx); err != nil {
		_ = feed.Close()
		return nil, fmt.Errorf("dealer: book warm-up: %w", err)
	}

	leveler, err := book.NewLeveler(book.Window{Pips: cfg.Pips, Lower: cfg.Lower, Upper: cfg.Upper})
	if err != nil {
		_ = feed.Close()
		return nil, err
	}

	s := &Session{
		id:      id,
		cfg:     cfg,
		adapter: adapter,
		feed:    feed,
		mux:     NewMux(feed, adapter, leveler, cfg.PollInterval, logger),
		gateway: NewGateway(adapter, logger),
		logger:  logger,
	}
	// The producers must outlive the build deadline; their lifetime belongs
	// to Stop, not to the construction ctx.
	s.mux.Start(context.WithoutCancel(ctx))

	logger.Info("dealer: session started",
		slog.Float64("pips", cfg.Pips),
		slog.Float64("lower", cfg.Lower),
		slog.Float64("upper", cfg.Upper),
	)
	return s, nil
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the session's immutable configuration.
func (s *Session) Config() Config {
	return s.cfg
}

// Get returns the next queued message in arrival order. It blocks until one
// is available; after Stop it fails with domain.ErrSessionStopped.
func (s *Session) Get(ctx context.Context) (domain.ChannelMessage, error) {
	return s.mux.Next(ctx)
}

// SubmitMarket places a market order through the session's venue.
func (s *Session) SubmitMarket(ctx context.Context, o domain.MarketOrder) (string, error) {
	return s.gateway.SubmitMarket(ctx, o)
}

// SubmitLimit places a limit order through the session's venue.
func (s *Session) SubmitLimit(ctx context.Context, o domain.LimitOrder) (string, error) {
	return s.gateway.SubmitLimit(ctx, o)
}

// Cancel cancels an order through the session's venue.
func (s *Session) Cancel(ctx context.Context, o domain.CancelOrder) error {
	return s.gateway.Cancel(ctx, o)
}

// Stop cancels all producer tasks and releases the venue feed. Safe to call
// more than once; any blocked Get resolves with domain.ErrSessionStopped.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mux.Stop()
		if err := s.feed.Close(); err != nil {
			s.logger.Warn("dealer: feed close failed", slog.String("error", err.Error()))
		}
		s.logger.Info("dealer: session stopped")
	})
}
