package domain

import (
	"encoding/json"
	"fmt"
)

// Channel identifies which feed a ChannelMessage came from.
type Channel string

const (
	ChannelBook     Channel = "book"
	ChannelTrade    Channel = "trade"
	ChannelEvent    Channel = "event"
	ChannelPosition Channel = "position"
)

// Record is one raw venue message, decoded from JSON but not yet normalized.
type Record map[string]any

// Float returns the named field as a float64, tolerating the numeric types
// encoding/json produces.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

// String returns the named field as a string, or "" when absent.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// TradeEvent is one public execution on the venue. Extra carries
// venue-specific passthrough fields verbatim.
type TradeEvent struct {
	Price float64
	Side  Side
	Size  float64
	Extra Record
}

// AccountEvent is one private account notification (order accepted, execution,
// cancellation). OrderID is set for executions. Extra carries venue-specific
// passthrough fields verbatim.
type AccountEvent struct {
	Name    string
	OrderID string
	Extra   Record
}

// ChannelMessage is the tagged union delivered to the session consumer.
// Exactly one payload field is set, matching Channel.
type ChannelMessage struct {
	Channel  Channel
	Book     *BookView
	Trade    *TradeEvent
	Event    *AccountEvent
	Position *PositionSummary
}

// MarshalJSON flattens the message into the dashboard wire shape: one object
// with a "channel" tag and the payload fields at the top level, e.g.
// {"channel":"trade","price":100,"side":"BUY","size":0.1,...}.
func (m ChannelMessage) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)

	switch m.Channel {
	case ChannelBook:
		if m.Book == nil {
			return nil, fmt.Errorf("domain: book message without payload")
		}
		out["book"] = m.Book.Levels
		out["mid"] = m.Book.Mid
		out["best"] = m.Book.Best

	case ChannelTrade:
		if m.Trade == nil {
			return nil, fmt.Errorf("domain: trade message without payload")
		}
		for k, v := range m.Trade.Extra {
			out[k] = v
		}
		out["price"] = m.Trade.Price
		out["side"] = m.Trade.Side
		out["size"] = m.Trade.Size

	case ChannelEvent:
		if m.Event == nil {
			return nil, fmt.Errorf("domain: event message without payload")
		}
		for k, v := range m.Event.Extra {
			out[k] = v
		}
		out["name"] = m.Event.Name
		if m.Event.OrderID != "" {
			out["orderId"] = m.Event.OrderID
		}

	case ChannelPosition:
		if m.Position == nil {
			return nil, fmt.Errorf("domain: position message without payload")
		}
		out["size"] = m.Position.Size
		out["price"] = m.Position.Price
		if m.Position.Side == "" {
			out["side"] = nil
		} else {
			out["side"] = m.Position.Side
		}

	default:
		return nil, fmt.Errorf("domain: unknown channel %q", m.Channel)
	}

	out["channel"] = m.Channel
	return json.Marshal(out)
}

// BookMessage wraps a BookView as a ChannelMessage.
func BookMessage(view BookView) ChannelMessage {
	return ChannelMessage{Channel: ChannelBook, Book: &view}
}

// TradeMessage wraps a TradeEvent as a ChannelMessage.
func TradeMessage(t TradeEvent) ChannelMessage {
	return ChannelMessage{Channel: ChannelTrade, Trade: &t}
}

// EventMessage wraps an AccountEvent as a ChannelMessage.
func EventMessage(e AccountEvent) ChannelMessage {
	return ChannelMessage{Channel: ChannelEvent, Event: &e}
}

// PositionMessage wraps a PositionSummary as a ChannelMessage.
func PositionMessage(p PositionSummary) ChannelMessage {
	return ChannelMessage{Channel: ChannelPosition, Position: &p}
}
