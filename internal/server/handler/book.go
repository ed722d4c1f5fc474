package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// BookHandler serves the cached leveled book view.
type BookHandler struct {
	cache  domain.BookCache
	logger *slog.Logger
}

// NewBookHandler creates a BookHandler. cache may be nil, in which case every
// lookup answers 404.
func NewBookHandler(cache domain.BookCache, logger *slog.Logger) *BookHandler {
	return &BookHandler{cache: cache, logger: logger}
}

// bookResponse mirrors the ws book message so dashboard clients can share
// decoding.
type bookResponse struct {
	Symbol string              `json:"symbol"`
	Book   []domain.PriceLevel `json:"book"`
	Mid    float64             `json:"mid"`
	Best   domain.Quote        `json:"best"`
}

// GetBook returns the most recently cached view for a symbol.
// GET /api/book/{symbol}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	if h.cache == nil {
		writeError(w, http.StatusNotFound, "book cache not configured")
		return
	}

	view, err := h.cache.GetView(r.Context(), symbol)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no cached book for "+symbol)
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get book failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read book cache")
		return
	}

	writeJSON(w, http.StatusOK, bookResponse{
		Symbol: symbol,
		Book:   view.Levels,
		Mid:    view.Mid,
		Best:   view.Best,
	})
}
