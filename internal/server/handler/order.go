package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// OrderSession is the slice of a dealer session the order surface needs.
type OrderSession interface {
	SubmitMarket(ctx context.Context, o domain.MarketOrder) (string, error)
	SubmitLimit(ctx context.Context, o domain.LimitOrder) (string, error)
	Cancel(ctx context.Context, o domain.CancelOrder) error
}

// SessionSource yields the currently active session, if any.
type SessionSource interface {
	Current() (OrderSession, bool)
}

// OrderHandler serves the order-command endpoints. Commands act on the active
// session's venue; with no active session they fail with 409.
type OrderHandler struct {
	sessions SessionSource
	journal  domain.OrderJournal // optional
	logger   *slog.Logger
}

// NewOrderHandler creates an OrderHandler. journal may be nil, in which case
// commands are not persisted.
func NewOrderHandler(sessions SessionSource, journal domain.OrderJournal, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		sessions: sessions,
		journal:  journal,
		logger:   logger,
	}
}

// orderResponse is the body returned for accepted order commands.
type orderResponse struct {
	OrderID string `json:"orderId,omitempty"`
	Status  string `json:"status"`
}

// PlaceMarket submits a market order against the active session.
// POST /api/market
func (h *OrderHandler) PlaceMarket(w http.ResponseWriter, r *http.Request) {
	var o domain.MarketOrder
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if o.Side != domain.SideBuy && o.Side != domain.SideSell {
		writeError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	if o.Size <= 0 {
		writeError(w, http.StatusBadRequest, "size must be positive")
		return
	}

	sess, ok := h.sessions.Current()
	if !ok {
		writeError(w, http.StatusConflict, domain.ErrNoActiveSession.Error())
		return
	}

	id, err := sess.SubmitMarket(r.Context(), o)
	h.record(r.Context(), domain.OrderCommand{
		Exchange: o.Exchange, Symbol: o.Symbol, Kind: domain.OrderCommandMarket,
		Side: o.Side, Size: o.Size, VenueOrderID: id,
	}, err)
	if err != nil {
		h.writeOrderError(w, r, "market order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{OrderID: id, Status: "accepted"})
}

// PlaceLimit submits a limit order against the active session.
// POST /api/limit
func (h *OrderHandler) PlaceLimit(w http.ResponseWriter, r *http.Request) {
	var o domain.LimitOrder
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if o.Side != domain.SideBuy && o.Side != domain.SideSell {
		writeError(w, http.StatusBadRequest, "side must be BUY or SELL")
		return
	}
	if o.Size <= 0 || o.Price <= 0 {
		writeError(w, http.StatusBadRequest, "size and price must be positive")
		return
	}

	sess, ok := h.sessions.Current()
	if !ok {
		writeError(w, http.StatusConflict, domain.ErrNoActiveSession.Error())
		return
	}

	id, err := sess.SubmitLimit(r.Context(), o)
	h.record(r.Context(), domain.OrderCommand{
		Exchange: o.Exchange, Symbol: o.Symbol, Kind: domain.OrderCommandLimit,
		Side: o.Side, Size: o.Size, Price: o.Price, VenueOrderID: id,
	}, err)
	if err != nil {
		h.writeOrderError(w, r, "limit order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{OrderID: id, Status: "accepted"})
}

// Cancel cancels an order on the active session's venue.
// POST /api/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var o domain.CancelOrder
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if o.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	sess, ok := h.sessions.Current()
	if !ok {
		writeError(w, http.StatusConflict, domain.ErrNoActiveSession.Error())
		return
	}

	err := sess.Cancel(r.Context(), o)
	h.record(r.Context(), domain.OrderCommand{
		Symbol: o.Symbol, Kind: domain.OrderCommandCancel, VenueOrderID: o.ID,
	}, err)
	if err != nil {
		h.writeOrderError(w, r, "cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Status: "cancelled"})
}

// listCommandsResponse wraps the command history response.
type listCommandsResponse struct {
	Orders []orderCommandJSON `json:"orders"`
}

type orderCommandJSON struct {
	ID           string  `json:"id"`
	Exchange     string  `json:"exchange,omitempty"`
	Symbol       string  `json:"symbol"`
	Kind         string  `json:"kind"`
	Side         string  `json:"side,omitempty"`
	Size         float64 `json:"size,omitempty"`
	Price        float64 `json:"price,omitempty"`
	VenueOrderID string  `json:"venueOrderId,omitempty"`
	Accepted     bool    `json:"accepted"`
	Error        string  `json:"error,omitempty"`
	CreatedAt    string  `json:"createdAt"`
}

// ListCommands returns the most recent journaled order commands.
// GET /api/orders?limit=50
func (h *OrderHandler) ListCommands(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, listCommandsResponse{Orders: []orderCommandJSON{}})
		return
	}

	cmds, err := h.journal.Recent(r.Context(), parseLimit(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list order commands failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderCommandJSON, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, orderCommandJSON{
			ID:           cmd.ID,
			Exchange:     cmd.Exchange,
			Symbol:       cmd.Symbol,
			Kind:         string(cmd.Kind),
			Side:         string(cmd.Side),
			Size:         cmd.Size,
			Price:        cmd.Price,
			VenueOrderID: cmd.VenueOrderID,
			Accepted:     cmd.Accepted,
			Error:        cmd.Error,
			CreatedAt:    cmd.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}
	writeJSON(w, http.StatusOK, listCommandsResponse{Orders: out})
}

// record journals the command verdict. Journal failures are logged, never
// surfaced: the venue's answer already happened.
func (h *OrderHandler) record(ctx context.Context, cmd domain.OrderCommand, cmdErr error) {
	if h.journal == nil {
		return
	}

	cmd.ID = uuid.NewString()
	cmd.Accepted = cmdErr == nil
	if cmdErr != nil {
		cmd.Error = cmdErr.Error()
	}
	cmd.CreatedAt = time.Now().UTC()

	if err := h.journal.Record(ctx, cmd); err != nil {
		h.logger.WarnContext(ctx, "handler: order journal write failed",
			slog.String("error", err.Error()),
		)
	}
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.ErrorContext(r.Context(), "handler: "+op+" failed",
		slog.String("error", err.Error()),
	)

	switch {
	case errors.Is(err, domain.ErrOrderRejected):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrSessionStopped):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, "venue request failed")
	}
}
