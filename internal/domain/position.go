package domain

// PositionLot is one open position record as reported by the venue, before
// aggregation.
type PositionLot struct {
	Side  Side
	Size  float64
	Price float64
}

// PositionSummary is the size- and price-weighted aggregate of all open lots.
// Price is the size-weighted average entry price, or 0 when Size is 0. Side is
// empty when there are no open lots.
type PositionSummary struct {
	Size  float64 `json:"size"`
	Price float64 `json:"price"`
	Side  Side    `json:"side"`
}
