package dealer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

func testConfig() Config {
	return Config{
		Exchange: "fakex",
		Symbol:   "FX_BTC_JPY",
		Pips:     500,
		Lower:    2_700_000,
		Upper:    2_800_000,
	}
}

func testAdapters(a *fakeAdapter) *Adapters {
	adapters := NewAdapters()
	adapters.Register(a)
	return adapters
}

func TestBuildUnknownExchange(t *testing.T) {
	cfg := testConfig()
	cfg.Exchange = "mtgox"

	_, err := Build(context.Background(), NewAdapters(), cfg, testLogger())
	assert.ErrorIs(t, err, domain.ErrUnsupportedExchange)
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	adapters := testAdapters(newFakeAdapter(newFakeFeed()))

	cfg := testConfig()
	cfg.Pips = 0
	_, err := Build(context.Background(), adapters, cfg, testLogger())
	require.Error(t, err)

	cfg = testConfig()
	cfg.Lower, cfg.Upper = cfg.Upper, cfg.Lower
	_, err = Build(context.Background(), adapters, cfg, testLogger())
	require.Error(t, err)
}

func TestBuildWaitsForBookWarmup(t *testing.T) {
	feed := newWarmingFeed()
	adapters := testAdapters(newFakeAdapter(feed))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := Build(ctx, adapters, testConfig(), testLogger())
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, feed.closed, "feed must be released when warm-up fails")
}

func TestSessionStreamsAndStops(t *testing.T) {
	feed := newFakeFeed()
	adapters := testAdapters(newFakeAdapter(feed))

	cfg := testConfig()
	cfg.PollInterval = time.Hour

	s, err := Build(context.Background(), adapters, cfg, testLogger())
	require.NoError(t, err)
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelPosition, msg.Channel)

	feed.setBook(
		map[float64]float64{2_750_300: 1},
		map[float64]float64{2_740_000: 2},
	)
	msg, err = s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.ChannelBook, msg.Channel)
	assert.Equal(t, 2_745_150.0, msg.Book.Mid)

	s.Stop()
	s.Stop() // idempotent

	_, err = s.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrSessionStopped)
	assert.True(t, feed.closed)
}

func TestSessionOutlivesBuildDeadline(t *testing.T) {
	feed := newFakeFeed()
	adapters := testAdapters(newFakeAdapter(feed))

	cfg := testConfig()
	cfg.PollInterval = time.Hour

	buildCtx, buildCancel := context.WithTimeout(context.Background(), time.Second)
	s, err := Build(buildCtx, adapters, cfg, testLogger())
	buildCancel()
	require.NoError(t, err)
	defer s.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelPosition, msg.Channel)

	// Producers keep running after the construction ctx is dead.
	feed.setBook(
		map[float64]float64{2_750_300: 1},
		map[float64]float64{2_740_000: 2},
	)
	msg, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelBook, msg.Channel)

	feed.trades <- domain.Record{"price": 2_745_000.0, "side": "BUY", "size": 0.01}
	msg, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelTrade, msg.Channel)
}

func TestSessionOrderCommands(t *testing.T) {
	feed := newFakeFeed()
	adapter := newFakeAdapter(feed)
	adapters := testAdapters(adapter)

	cfg := testConfig()
	cfg.PollInterval = time.Hour

	s, err := Build(context.Background(), adapters, cfg, testLogger())
	require.NoError(t, err)
	defer s.Stop()

	ctx := context.Background()

	id, err := s.SubmitMarket(ctx, domain.MarketOrder{
		Exchange: "fakex", Symbol: "FX_BTC_JPY", Side: domain.SideBuy, Size: 0.01,
	})
	require.NoError(t, err)
	assert.Equal(t, "MKT-1", id)

	id, err = s.SubmitLimit(ctx, domain.LimitOrder{
		Exchange: "fakex", Symbol: "FX_BTC_JPY", Side: domain.SideSell, Size: 0.01, Price: 2_750_000,
	})
	require.NoError(t, err)
	assert.Equal(t, "LMT-2", id)

	require.NoError(t, s.Cancel(ctx, domain.CancelOrder{Symbol: "FX_BTC_JPY", ID: "JRF00001"}))
	assert.Equal(t, []string{"JRF00001"}, adapter.cancelled)
}

func TestSessionSurfacesOrderRejection(t *testing.T) {
	feed := newFakeFeed()
	adapter := newFakeAdapter(feed)
	adapter.cancelErr = fmt.Errorf("not found: %w", domain.ErrOrderRejected)
	adapters := testAdapters(adapter)

	cfg := testConfig()
	cfg.PollInterval = time.Hour

	s, err := Build(context.Background(), adapters, cfg, testLogger())
	require.NoError(t, err)
	defer s.Stop()

	err = s.Cancel(context.Background(), domain.CancelOrder{Symbol: "FX_BTC_JPY", ID: "JRF99999"})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
}

func TestActiveTracksCurrentSession(t *testing.T) {
	feed := newFakeFeed()
	adapters := testAdapters(newFakeAdapter(feed))

	cfg := testConfig()
	cfg.PollInterval = time.Hour

	s, err := Build(context.Background(), adapters, cfg, testLogger())
	require.NoError(t, err)
	defer s.Stop()

	active := NewActive()
	_, ok := active.Current()
	assert.False(t, ok)

	active.Set(s)
	got, ok := active.Current()
	require.True(t, ok)
	assert.Equal(t, s.ID(), got.ID())

	// Dropping a stale pointer does not clear a newer session.
	feed2 := newFakeFeed()
	adapters2 := testAdapters(newFakeAdapter(feed2))
	s2, err := Build(context.Background(), adapters2, cfg, testLogger())
	require.NoError(t, err)
	defer s2.Stop()

	active.Set(s2)
	active.Drop(s)
	got, ok = active.Current()
	require.True(t, ok)
	assert.Equal(t, s2.ID(), got.ID())

	active.Drop(s2)
	_, ok = active.Current()
	assert.False(t, ok)
}
