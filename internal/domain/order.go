package domain

// MarketOrder requests immediate execution at the best available price.
type MarketOrder struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Size     float64 `json:"size"`
}

// LimitOrder requests execution at Price or better. Price is in venue-native
// units (integer yen for bitFlyer FX_BTC_JPY).
type LimitOrder struct {
	Exchange string  `json:"exchange"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Size     float64 `json:"size"`
	Price    float64 `json:"price"`
}

// CancelOrder requests cancellation of a previously accepted order by its
// venue-assigned identifier.
type CancelOrder struct {
	Symbol string `json:"symbol"`
	ID     string `json:"id"`
}
