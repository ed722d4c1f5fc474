package dealer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// Gateway is the stateless order-command surface of a session. Each call is a
// thin translation onto the exchange adapter; no order state is tracked
// between calls, and venue rejections surface to the caller unretried.
type Gateway struct {
	adapter domain.ExchangeAdapter
	logger  *slog.Logger
}

// NewGateway creates a Gateway bound to one adapter.
func NewGateway(adapter domain.ExchangeAdapter, logger *slog.Logger) *Gateway {
	return &Gateway{
		adapter: adapter,
		logger:  logger.With(slog.String("component", "gateway")),
	}
}

// SubmitMarket forwards a market order and returns the venue-assigned id.
func (g *Gateway) SubmitMarket(ctx context.Context, o domain.MarketOrder) (string, error) {
	id, err := g.adapter.PlaceMarket(ctx, o.Symbol, o.Side, o.Size)
	if err != nil {
		return "", fmt.Errorf("dealer: market order: %w", err)
	}
	g.logger.Info("dealer: market order accepted",
		slog.String("symbol", o.Symbol),
		slog.String("side", string(o.Side)),
		slog.Float64("size", o.Size),
		slog.String("order_id", id),
	)
	return id, nil
}

// SubmitLimit forwards a limit order and returns the venue-assigned id.
func (g *Gateway) SubmitLimit(ctx context.Context, o domain.LimitOrder) (string, error) {
	id, err := g.adapter.PlaceLimit(ctx, o.Symbol, o.Side, o.Size, o.Price)
	if err != nil {
		return "", fmt.Errorf("dealer: limit order: %w", err)
	}
	g.logger.Info("dealer: limit order accepted",
		slog.String("symbol", o.Symbol),
		slog.String("side", string(o.Side)),
		slog.Float64("size", o.Size),
		slog.Float64("price", o.Price),
		slog.String("order_id", id),
	)
	return id, nil
}

// Cancel forwards a cancellation by symbol and venue order id.
func (g *Gateway) Cancel(ctx context.Context, o domain.CancelOrder) error {
	if err := g.adapter.CancelOrder(ctx, o.Symbol, o.ID); err != nil {
		return fmt.Errorf("dealer: cancel order %s: %w", o.ID, err)
	}
	g.logger.Info("dealer: order cancelled",
		slog.String("symbol", o.Symbol),
		slog.String("order_id", o.ID),
	)
	return nil
}
