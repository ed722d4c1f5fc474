package domain

import "errors"

var (
	ErrUnsupportedExchange = errors.New("unsupported exchange")
	ErrSessionStopped      = errors.New("session stopped")
	ErrNoActiveSession     = errors.New("no active session")
	ErrOrderRejected       = errors.New("order rejected")
	ErrFeedClosed          = errors.New("market feed closed")
	ErrNotFound            = errors.New("not found")
)
