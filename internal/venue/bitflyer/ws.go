package bitflyer

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

const (
	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// pongWait is the time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// reconnectDelay is the base delay before attempting to reconnect.
	reconnectDelay = 2 * time.Second

	// maxReconnectDelay caps the exponential backoff for reconnection.
	maxReconnectDelay = 60 * time.Second

	// authRequestID identifies our auth request among response frames.
	authRequestID = 1
)

// wsClient speaks the bitFlyer Lightning realtime JSON-RPC protocol for one
// symbol and writes everything it receives into a store.
type wsClient struct {
	url    string
	key    string
	secret string
	symbol string
	store  *store
	logger *slog.Logger

	mu     sync.RWMutex
	conn   *websocket.Conn
	closed bool
	nextID int

	// done is closed when the client is shut down.
	done chan struct{}
}

func newWSClient(url, key, secret, symbol string, st *store, logger *slog.Logger) *wsClient {
	return &wsClient{
		url:    url,
		key:    key,
		secret: secret,
		symbol: symbol,
		store:  st,
		logger: logger.With(slog.String("component", "bitflyer_ws")),
		nextID: authRequestID + 1,
		done:   make(chan struct{}),
	}
}

// connect dials the realtime endpoint, starts the read and ping loops, and
// subscribes to the public channels. Private channels are subscribed once the
// auth handshake completes.
func (w *wsClient) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return fmt.Errorf("bitflyer: ws: %w", domain.ErrFeedClosed)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("bitflyer: ws connect: %w", err)
	}
	w.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go w.readLoop(conn)
	go w.pingLoop(conn)

	if w.key != "" && w.secret != "" {
		if err := w.sendAuth(); err != nil {
			return fmt.Errorf("bitflyer: ws auth: %w", err)
		}
	}

	for _, ch := range []string{
		channelBoardSnapshot + w.symbol,
		channelBoard + w.symbol,
		channelExecutions + w.symbol,
	} {
		if err := w.sendSubscribe(ch); err != nil {
			return fmt.Errorf("bitflyer: ws subscribe %s: %w", ch, err)
		}
	}

	return nil
}

// close shuts the connection down and stops the loops.
func (w *wsClient) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	close(w.done)

	if w.conn != nil {
		_ = w.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		return w.conn.Close()
	}
	return nil
}

// sendAuth signs timestamp+nonce with the API secret. Caller must hold w.mu.
func (w *wsClient) sendAuth() error {
	now := time.Now().UnixMilli()
	nonce := randomNonce()

	mac := hmac.New(sha256.New, []byte(w.secret))
	fmt.Fprintf(mac, "%d%s", now, nonce)

	return w.send(rpcRequest{
		Version: "2.0",
		Method:  "auth",
		Params: authParams{
			APIKey:    w.key,
			Timestamp: now,
			Nonce:     nonce,
			Signature: hex.EncodeToString(mac.Sum(nil)),
		},
		ID: authRequestID,
	})
}

// sendSubscribe issues one subscribe request. Caller must hold w.mu.
func (w *wsClient) sendSubscribe(channel string) error {
	w.nextID++
	return w.send(rpcRequest{
		Version: "2.0",
		Method:  "subscribe",
		Params:  subscribeParams{Channel: channel},
		ID:      w.nextID,
	})
}

// send writes one JSON frame. Caller must hold w.mu.
func (w *wsClient) send(req rpcRequest) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// readLoop reads frames from one connection and routes them into the store
// until the connection drops, then reconnects with backoff.
func (w *wsClient) readLoop(conn *websocket.Conn) {
	for {
		select {
		case <-w.done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-w.done:
				return
			default:
			}
			w.logger.Warn("bitflyer: ws read failed, reconnecting",
				slog.String("error", err.Error()),
			)
			w.reconnect()
			return
		}

		w.handleFrame(raw)
	}
}

// pingLoop keeps one connection alive. It exits when its connection dies.
func (w *wsClient) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame routes one inbound frame: channel notifications go to the
// store, the auth response triggers the private-channel subscription.
func (w *wsClient) handleFrame(raw []byte) {
	var frame rpcFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return // drop unparseable frames
	}

	if frame.Method != "channelMessage" {
		w.handleResponse(frame)
		return
	}

	channel := frame.Params.Channel
	switch {
	case strings.HasPrefix(channel, channelBoardSnapshot):
		var msg boardMessage
		if err := json.Unmarshal(frame.Params.Message, &msg); err != nil {
			return
		}
		w.store.applySnapshot(msg)

	case strings.HasPrefix(channel, channelBoard):
		var msg boardMessage
		if err := json.Unmarshal(frame.Params.Message, &msg); err != nil {
			return
		}
		w.store.applyDiff(msg)

	case strings.HasPrefix(channel, channelExecutions):
		var recs []domain.Record
		if err := json.Unmarshal(frame.Params.Message, &recs); err != nil {
			return
		}
		w.store.insertTrades(recs)

	case channel == channelOrderEvents:
		var recs []domain.Record
		if err := json.Unmarshal(frame.Params.Message, &recs); err != nil {
			return
		}
		w.store.insertEvents(recs)
	}
}

// handleResponse reacts to request results. On a successful auth we are
// allowed to subscribe to the account-wide private channel.
func (w *wsClient) handleResponse(frame rpcFrame) {
	if frame.Error != nil {
		w.logger.Error("bitflyer: ws request failed",
			slog.Int("id", frame.ID),
			slog.Int("code", frame.Error.Code),
			slog.String("message", frame.Error.Message),
		)
		return
	}

	if frame.ID == authRequestID {
		w.mu.Lock()
		err := w.sendSubscribe(channelOrderEvents)
		w.mu.Unlock()
		if err != nil {
			w.logger.Error("bitflyer: ws subscribe private channel failed",
				slog.String("error", err.Error()),
			)
		}
	}
}

// reconnect re-establishes the connection with exponential backoff. It
// blocks until successful or the client is closed. Board state re-syncs from
// the snapshot channel on resubscription.
func (w *wsClient) reconnect() {
	delay := reconnectDelay

	for {
		select {
		case <-w.done:
			return
		default:
		}

		time.Sleep(delay)

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := w.connect(ctx)
		cancel()
		if err == nil {
			return
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// randomNonce returns a 16-byte hex nonce for the auth handshake.
func randomNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
