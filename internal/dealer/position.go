package dealer

import "github.com/ktmaeda/dealerdesk/internal/domain"

// SummarizePositions folds all open lots into one summary: total size and
// size-weighted average price, in a single O(n) pass.
//
// Side is the side of the last lot iterated. With mixed-side lot sets this
// reflects venue iteration order rather than any netting rule; downstream
// consumers rely on this behavior, so it is kept as is.
func SummarizePositions(lots []domain.PositionLot) domain.PositionSummary {
	var sum domain.PositionSummary
	var weighted float64

	for _, lot := range lots {
		sum.Size += lot.Size
		weighted += lot.Price * lot.Size
		sum.Side = lot.Side
	}

	if sum.Size != 0 {
		sum.Price = weighted / sum.Size
	}
	return sum
}
