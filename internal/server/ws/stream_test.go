package ws

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktmaeda/dealerdesk/internal/dealer"
	"github.com/ktmaeda/dealerdesk/internal/domain"
)

func testStream() *Stream {
	defaults := dealer.Config{
		Exchange:     "bitflyer",
		Symbol:       "FX_BTC_JPY",
		Pips:         500,
		Lower:        2_700_000,
		Upper:        2_800_000,
		PollInterval: 500 * time.Millisecond,
	}
	return NewStream(dealer.NewAdapters(), dealer.NewActive(), nil, defaults, slog.New(slog.DiscardHandler))
}

func TestSessionConfigDefaults(t *testing.T) {
	s := testStream()

	r := httptest.NewRequest("GET", "/ws", nil)
	cfg := s.sessionConfig(r)

	assert.Equal(t, s.defaults, cfg)
}

func TestSessionConfigQueryOverrides(t *testing.T) {
	s := testStream()

	r := httptest.NewRequest("GET", "/ws?symbol=BTC_JPY&pips=1000&lower=2000000&upper=2200000", nil)
	cfg := s.sessionConfig(r)

	assert.Equal(t, "bitflyer", cfg.Exchange)
	assert.Equal(t, "BTC_JPY", cfg.Symbol)
	assert.Equal(t, 1000.0, cfg.Pips)
	assert.Equal(t, 2_000_000.0, cfg.Lower)
	assert.Equal(t, 2_200_000.0, cfg.Upper)
	assert.Equal(t, s.defaults.PollInterval, cfg.PollInterval)
}

func TestSessionConfigIgnoresUnparseableNumbers(t *testing.T) {
	s := testStream()

	r := httptest.NewRequest("GET", "/ws?pips=lots&lower=cheap", nil)
	cfg := s.sessionConfig(r)

	assert.Equal(t, s.defaults.Pips, cfg.Pips)
	assert.Equal(t, s.defaults.Lower, cfg.Lower)
}

func TestHandleWSRejectsInvalidConfig(t *testing.T) {
	s := testStream()

	r := httptest.NewRequest("GET", "/ws?pips=-1", nil)
	rec := httptest.NewRecorder()
	s.HandleWS(rec, r)

	assert.Equal(t, 400, rec.Code)
}

func TestHandleWSStreamsSessionMessages(t *testing.T) {
	feed := newFakeFeed()
	adapters := dealer.NewAdapters()
	adapters.Register(&fakeAdapter{feed: feed})
	active := dealer.NewActive()

	defaults := dealer.Config{
		Exchange:     "fakex",
		Symbol:       "FX_BTC_JPY",
		Pips:         500,
		Lower:        2_700_000,
		Upper:        2_800_000,
		PollInterval: time.Hour,
	}
	s := NewStream(adapters, active, nil, defaults, slog.New(slog.DiscardHandler))

	srv := httptest.NewServer(http.HandlerFunc(s.HandleWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// The initial flat position arrives before any market data.
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "position", msg["channel"])
	assert.Nil(t, msg["side"])

	_, ok := active.Current()
	assert.True(t, ok, "session must be registered while the connection lives")

	// Book updates keep flowing for the life of the connection, well past
	// the session build deadline.
	feed.setBook(
		map[float64]float64{2_750_300: 1},
		map[float64]float64{2_740_000: 2},
	)
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "book", msg["channel"])
	assert.Equal(t, 2_745_150.0, msg["mid"])

	feed.trades <- domain.Record{"price": 2_745_000.0, "side": "BUY", "size": 0.01}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "trade", msg["channel"])

	// Closing the connection tears the session down and clears the tracker.
	conn.Close()
	assert.Eventually(t, func() bool {
		_, ok := active.Current()
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}
