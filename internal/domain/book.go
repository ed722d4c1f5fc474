package domain

// Side indicates the direction of a trade, order, or position.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// PriceLevel is one bucketed level of the leveled book. Both sizes are
// carried so the window can be zero-padded; at most one of the two is
// economically meaningful at a given price.
type PriceLevel struct {
	Price   float64 `json:"price"`
	AskSize float64 `json:"ask"`
	BidSize float64 `json:"bid"`
}

// Quote is the best executable price on each side of the raw book. These are
// the true unbucketed prices, not bucket boundaries.
type Quote struct {
	Ask float64 `json:"ask"`
	Bid float64 `json:"bid"`
}

// BookView is a bounded, bucketed rendering of the raw order book. Levels
// always span the configured price window in descending price order. Ready is
// false until the raw book has at least one ask and one bid; a view that is
// not Ready has no meaningful Mid and must not be delivered downstream.
type BookView struct {
	Levels []PriceLevel `json:"book"`
	Mid    float64      `json:"mid"`
	Best   Quote        `json:"best"`
	Ready  bool         `json:"-"`
}
