package domain

import (
	"context"
	"time"
)

// OrderCommandKind enumerates the three order-command shapes.
type OrderCommandKind string

const (
	OrderCommandMarket OrderCommandKind = "MARKET"
	OrderCommandLimit  OrderCommandKind = "LIMIT"
	OrderCommandCancel OrderCommandKind = "CANCEL"
)

// OrderCommand is one order command submitted through the gateway, recorded
// for audit. It captures the request and the venue's verdict, never live
// order state.
type OrderCommand struct {
	ID           string
	Exchange     string
	Symbol       string
	Kind         OrderCommandKind
	Side         Side
	Size         float64
	Price        float64
	VenueOrderID string
	Accepted     bool
	Error        string
	CreatedAt    time.Time
}

// OrderJournal persists submitted order commands. Implementations are
// best-effort collaborators: the command surface must not fail because the
// journal does.
type OrderJournal interface {
	Record(ctx context.Context, cmd OrderCommand) error
	Recent(ctx context.Context, limit int) ([]OrderCommand, error)
}
