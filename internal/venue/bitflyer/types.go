package bitflyer

import "encoding/json"

// Default bitFlyer Lightning endpoints.
const (
	DefaultRESTEndpoint = "https://api.bitflyer.com"
	DefaultWSEndpoint   = "wss://ws.lightstream.bitflyer.com/json-rpc"
)

// Realtime API channel name prefixes. The symbol is appended for public
// channels; child_order_events is account-wide.
const (
	channelBoardSnapshot = "lightning_board_snapshot_"
	channelBoard         = "lightning_board_"
	channelExecutions    = "lightning_executions_"
	channelOrderEvents   = "child_order_events"
)

// rpcRequest is an outbound JSON-RPC 2.0 request frame.
type rpcRequest struct {
	Version string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id,omitempty"`
}

// rpcFrame is an inbound frame: either a channelMessage notification or a
// response to one of our requests.
type rpcFrame struct {
	Method string `json:"method"`
	Params struct {
		Channel string          `json:"channel"`
		Message json.RawMessage `json:"message"`
	} `json:"params"`
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

// rpcError is the JSON-RPC error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// subscribeParams is the payload for the subscribe method.
type subscribeParams struct {
	Channel string `json:"channel"`
}

// authParams is the payload for the auth method. Signature is
// HMAC-SHA256(secret, timestamp + nonce).
type authParams struct {
	APIKey    string `json:"api_key"`
	Timestamp int64  `json:"timestamp"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// boardLevel is one price level in a board message.
type boardLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
}

// boardMessage is the payload of both the board snapshot and board diff
// channels. In diffs, a size of 0 removes the level.
type boardMessage struct {
	MidPrice float64      `json:"mid_price"`
	Bids     []boardLevel `json:"bids"`
	Asks     []boardLevel `json:"asks"`
}

// childOrderRequest is the body of POST /v1/me/sendchildorder.
type childOrderRequest struct {
	ProductCode    string  `json:"product_code"`
	ChildOrderType string  `json:"child_order_type"` // "MARKET" or "LIMIT"
	Side           string  `json:"side"`
	Price          float64 `json:"price,omitempty"`
	Size           float64 `json:"size"`
}

// childOrderResponse is the body of a successful sendchildorder call.
type childOrderResponse struct {
	ChildOrderAcceptanceID string `json:"child_order_acceptance_id"`
}

// cancelChildOrderRequest is the body of POST /v1/me/cancelchildorder.
type cancelChildOrderRequest struct {
	ProductCode            string `json:"product_code"`
	ChildOrderAcceptanceID string `json:"child_order_acceptance_id"`
}

// apiError is bitFlyer's REST error body.
type apiError struct {
	Status       int    `json:"status"`
	ErrorMessage string `json:"error_message"`
}
