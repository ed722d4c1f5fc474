package domain

import "context"

// BookCache stores the most recent leveled book view per symbol so the REST
// surface can serve it without touching a live session.
type BookCache interface {
	SetView(ctx context.Context, symbol string, view BookView) error
	// GetView returns ErrNotFound when no view has been cached for symbol.
	GetView(ctx context.Context, symbol string) (BookView, error)
}
