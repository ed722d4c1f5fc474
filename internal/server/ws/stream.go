// Package ws serves the dashboard stream: one WebSocket connection owns one
// dealer session, built from the connection's query parameters and torn down
// when the connection closes.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ktmaeda/dealerdesk/internal/dealer"
	"github.com/ktmaeda/dealerdesk/internal/domain"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize is the maximum size of an incoming message.
	maxMessageSize = 1024

	// sendBufferSize is the channel buffer for outgoing messages.
	sendBufferSize = 256

	// buildTimeout bounds session construction, including the book warm-up
	// barrier.
	buildTimeout = 30 * time.Second
)

// upgrader configures the WebSocket upgrade parameters. Origin checks are
// delegated to the CORS layer.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Stream builds dealer sessions for WebSocket clients and pumps their
// channel messages out as JSON text frames.
type Stream struct {
	adapters *dealer.Adapters
	active   *dealer.Active
	cache    domain.BookCache // optional
	defaults dealer.Config
	logger   *slog.Logger
}

// NewStream creates a Stream. defaults fills in any session parameter the
// client omits; cache may be nil.
func NewStream(adapters *dealer.Adapters, active *dealer.Active, cache domain.BookCache, defaults dealer.Config, logger *slog.Logger) *Stream {
	return &Stream{
		adapters: adapters,
		active:   active,
		cache:    cache,
		defaults: defaults,
		logger:   logger.With(slog.String("component", "ws")),
	}
}

// sessionConfig merges query parameters over the configured defaults.
func (s *Stream) sessionConfig(r *http.Request) dealer.Config {
	cfg := s.defaults
	q := r.URL.Query()

	if v := q.Get("exchange"); v != "" {
		cfg.Exchange = v
	}
	if v := q.Get("symbol"); v != "" {
		cfg.Symbol = v
	}
	if v := q.Get("pips"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Pips = f
		}
	}
	if v := q.Get("lower"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Lower = f
		}
	}
	if v := q.Get("upper"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Upper = f
		}
	}
	return cfg
}

// HandleWS upgrades the request and runs one session for the life of the
// connection.
// GET /ws?exchange=bitflyer&symbol=FX_BTC_JPY&pips=500&lower=2700000&upper=2800000
func (s *Stream) HandleWS(w http.ResponseWriter, r *http.Request) {
	cfg := s.sessionConfig(r)
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	// The session outlives the request context; its lifetime is the
	// connection's.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	buildCtx, buildCancel := context.WithTimeout(ctx, buildTimeout)
	sess, err := dealer.Build(buildCtx, s.adapters, cfg, s.logger)
	buildCancel()
	if err != nil {
		s.logger.Error("ws: session build failed",
			slog.String("exchange", cfg.Exchange),
			slog.String("symbol", cfg.Symbol),
			slog.String("error", err.Error()),
		)
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session build failed"),
			time.Now().Add(writeWait),
		)
		conn.Close()
		return
	}

	s.active.Set(sess)
	defer func() {
		s.active.Drop(sess)
		sess.Stop()
	}()

	send := make(chan []byte, sendBufferSize)
	go s.fetchPump(ctx, sess, send)
	go s.writePump(conn, send, cancel)
	s.readPump(conn, cancel)
}

// fetchPump drains the session into the send buffer, mirroring book views
// into the cache along the way. It closes send when the session ends.
func (s *Stream) fetchPump(ctx context.Context, sess *dealer.Session, send chan<- []byte) {
	defer close(send)

	for {
		msg, err := sess.Get(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, domain.ErrSessionStopped) {
				s.logger.Warn("ws: session read failed", slog.String("error", err.Error()))
			}
			return
		}

		if msg.Channel == domain.ChannelBook && s.cache != nil {
			if err := s.cache.SetView(ctx, sess.Config().Symbol, *msg.Book); err != nil {
				s.logger.Warn("ws: book cache write failed", slog.String("error", err.Error()))
			}
		}

		data, err := json.Marshal(msg)
		if err != nil {
			s.logger.Error("ws: marshal message failed", slog.String("error", err.Error()))
			continue
		}

		select {
		case send <- data:
		case <-ctx.Done():
			return
		}
	}
}

// writePump is the connection's single writer: queued messages as text
// frames, periodic pings for keepalive.
func (s *Stream) writePump(conn *websocket.Conn, send <-chan []byte, cancel context.CancelFunc) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(
					websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				)
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump consumes inbound frames until the client goes away. The stream is
// one-directional; anything the client sends is discarded.
func (s *Stream) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
	}
}
