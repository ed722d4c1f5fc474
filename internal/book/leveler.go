// Package book turns a raw, arbitrarily granular order book into a bounded,
// bucketed view suitable for a depth chart.
package book

import (
	"fmt"
	"math"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// Window configures the leveled view: bucket width and the inclusive price
// range the view spans.
type Window struct {
	Pips  float64
	Lower float64
	Upper float64
}

// Validate reports configuration problems.
func (w Window) Validate() error {
	if w.Pips <= 0 {
		return fmt.Errorf("book: pips must be > 0, got %v", w.Pips)
	}
	if w.Lower > w.Upper {
		return fmt.Errorf("book: lower %v exceeds upper %v", w.Lower, w.Upper)
	}
	return nil
}

// Leveler buckets raw book prices into fixed pips-wide levels.
//
// Bucket rule: a raw price p belongs to the bucket whose boundary is
// floor(p/pips)*pips, i.e. prices round down to the nearest multiple of pips.
// Boundaries are multiples of pips and independent of the current book, so
// repeated calls over unchanged input produce identical views. Contributions
// whose bucket falls outside [lower, upper] are dropped.
type Leveler struct {
	win   Window
	base  int // bucket index of the lowest boundary in the window
	count int // number of buckets in the window
}

// NewLeveler validates the window and precomputes the bucket grid.
func NewLeveler(win Window) (*Leveler, error) {
	if err := win.Validate(); err != nil {
		return nil, err
	}

	base := int(math.Ceil(win.Lower / win.Pips))
	top := int(math.Floor(win.Upper / win.Pips))
	count := top - base + 1
	if count < 1 {
		return nil, fmt.Errorf("book: window [%v, %v] holds no %v-pip bucket", win.Lower, win.Upper, win.Pips)
	}

	return &Leveler{win: win, base: base, count: count}, nil
}

// Levels returns the number of buckets a view will contain.
func (l *Leveler) Levels() int {
	return l.count
}

// View renders the current raw book as a BookView. Levels are price-descending
// and zero-filled across the whole window. Mid and Best come from the raw
// unbucketed prices; the view is not Ready until both sides are populated.
func (l *Leveler) View(asks, bids map[float64]float64) domain.BookView {
	levels := make([]domain.PriceLevel, l.count)
	for i := range levels {
		// levels[0] is the top of the window.
		levels[i].Price = float64(l.base+l.count-1-i) * l.win.Pips
	}

	bestAsk := math.Inf(1)
	for price, size := range asks {
		if price < bestAsk {
			bestAsk = price
		}
		if i, ok := l.slot(price); ok {
			levels[i].AskSize += size
		}
	}

	bestBid := math.Inf(-1)
	for price, size := range bids {
		if price > bestBid {
			bestBid = price
		}
		if i, ok := l.slot(price); ok {
			levels[i].BidSize += size
		}
	}

	view := domain.BookView{Levels: levels}
	if len(asks) == 0 || len(bids) == 0 {
		return view
	}

	view.Ready = true
	view.Best = domain.Quote{Ask: bestAsk, Bid: bestBid}
	view.Mid = (bestAsk + bestBid) / 2
	return view
}

// slot maps a raw price to its index in the descending levels slice.
func (l *Leveler) slot(price float64) (int, bool) {
	bucket := int(math.Floor(price / l.win.Pips))
	if bucket < l.base || bucket > l.base+l.count-1 {
		return 0, false
	}
	return l.base + l.count - 1 - bucket, true
}
