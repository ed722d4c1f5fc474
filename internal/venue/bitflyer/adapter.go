package bitflyer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// Config carries bitFlyer credentials and endpoint overrides. Endpoints
// default to production when empty.
type Config struct {
	APIKey       string
	APISecret    string
	RESTEndpoint string
	WSEndpoint   string
}

// Adapter implements domain.ExchangeAdapter for bitFlyer Lightning.
type Adapter struct {
	cfg    Config
	rest   *restClient
	logger *slog.Logger
}

var _ domain.ExchangeAdapter = (*Adapter)(nil)

// NewAdapter builds a bitFlyer adapter. Credentials may be empty, in which
// case order placement fails at the venue and private channels stay silent.
func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	if cfg.RESTEndpoint == "" {
		cfg.RESTEndpoint = DefaultRESTEndpoint
	}
	if cfg.WSEndpoint == "" {
		cfg.WSEndpoint = DefaultWSEndpoint
	}
	return &Adapter{
		cfg:    cfg,
		rest:   newRESTClient(cfg.RESTEndpoint, cfg.APIKey, cfg.APISecret),
		logger: logger.With(slog.String("component", "bitflyer")),
	}
}

func (a *Adapter) Name() string { return "bitflyer" }

// Connect opens the realtime connection for symbol and returns the feed. The
// feed is warming up on return; callers gate on WaitReady.
func (a *Adapter) Connect(ctx context.Context, symbol string) (domain.MarketFeed, error) {
	st := newStore()
	ws := newWSClient(a.cfg.WSEndpoint, a.cfg.APIKey, a.cfg.APISecret, symbol, st, a.logger)

	if err := ws.connect(ctx); err != nil {
		return nil, fmt.Errorf("bitflyer: connect %s: %w", symbol, err)
	}

	a.logger.Info("bitflyer: feed connected", slog.String("symbol", symbol))
	return &Feed{symbol: symbol, store: st, ws: ws, rest: a.rest}, nil
}

// NormalizeTrade maps a lightning_executions row. The raw record rides along
// as passthrough.
func (a *Adapter) NormalizeTrade(rec domain.Record) domain.TradeEvent {
	return domain.TradeEvent{
		Price: rec.Float("price"),
		Side:  domain.Side(rec.String("side")),
		Size:  rec.Float("size"),
		Extra: rec,
	}
}

// NormalizeEvent maps a child_order_events row. The acceptance id is only
// surfaced for executions, matching what the dashboard keys fills on.
func (a *Adapter) NormalizeEvent(rec domain.Record) domain.AccountEvent {
	ev := domain.AccountEvent{
		Name:  rec.String("event_type"),
		Extra: rec,
	}
	if ev.Name == "EXECUTION" {
		ev.OrderID = rec.String("child_order_acceptance_id")
	}
	return ev
}

// NormalizeLots maps getpositions rows to canonical lots.
func (a *Adapter) NormalizeLots(recs []domain.Record) []domain.PositionLot {
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

func (a *Adapter) PlaceMarket(ctx context.Context, symbol string, side domain.Side, size float64) (string, error) {
	return a.rest.sendChildOrder(ctx, childOrderRequest{
		ProductCode:    symbol,
		ChildOrderType: "MARKET",
		Side:           string(side),
		Size:           size,
	})
}

func (a *Adapter) PlaceLimit(ctx context.Context, symbol string, side domain.Side, size, price float64) (string, error) {
	return a.rest.sendChildOrder(ctx, childOrderRequest{
		ProductCode:    symbol,
		ChildOrderType: "LIMIT",
		Side:           string(side),
		Price:          price,
		Size:           size,
	})
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol, id string) error {
	return a.rest.cancelChildOrder(ctx, cancelChildOrderRequest{
		ProductCode:            symbol,
		ChildOrderAcceptanceID: id,
	})
}
