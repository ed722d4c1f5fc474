package handler

import "github.com/ktmaeda/dealerdesk/internal/dealer"

// activeSource adapts dealer.Active to the SessionSource interface.
type activeSource struct {
	active *dealer.Active
}

// NewActiveSource wraps the dealer's active-session tracker.
func NewActiveSource(active *dealer.Active) SessionSource {
	return activeSource{active: active}
}

func (s activeSource) Current() (OrderSession, bool) {
	sess, ok := s.active.Current()
	if !ok {
		return nil, false
	}
	return sess, true
}
