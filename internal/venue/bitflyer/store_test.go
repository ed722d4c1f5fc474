package bitflyer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestStoreReadyAfterFirstSnapshot(t *testing.T) {
	s := newStore()

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, s.waitReady(shortCtx), context.DeadlineExceeded)

	s.applySnapshot(boardMessage{
		Asks: []boardLevel{{Price: 2_750_000, Size: 1}},
		Bids: []boardLevel{{Price: 2_740_000, Size: 2}},
	})
	require.NoError(t, s.waitReady(waitCtx(t)))

	asks, bids := s.book()
	assert.Equal(t, map[float64]float64{2_750_000: 1}, asks)
	assert.Equal(t, map[float64]float64{2_740_000: 2}, bids)
}

func TestStoreSnapshotReplacesBoard(t *testing.T) {
	s := newStore()
	s.applySnapshot(boardMessage{
		Asks: []boardLevel{{Price: 2_750_000, Size: 1}, {Price: 2_751_000, Size: 1}},
	})
	s.applySnapshot(boardMessage{
		Asks: []boardLevel{{Price: 2_760_000, Size: 3}},
		Bids: []boardLevel{{Price: 2_740_000, Size: 2}},
	})

	asks, bids := s.book()
	assert.Equal(t, map[float64]float64{2_760_000: 3}, asks)
	assert.Equal(t, map[float64]float64{2_740_000: 2}, bids)
}

func TestStoreDiffMergesAndRemoves(t *testing.T) {
	s := newStore()
	s.applySnapshot(boardMessage{
		Asks: []boardLevel{{Price: 2_750_000, Size: 1}},
		Bids: []boardLevel{{Price: 2_740_000, Size: 2}},
	})

	s.applyDiff(boardMessage{
		Asks: []boardLevel{
			{Price: 2_750_000, Size: 0},   // removed
			{Price: 2_750_500, Size: 1.5}, // added
		},
		Bids: []boardLevel{
			{Price: 2_740_000, Size: 4}, // updated
		},
	})

	asks, bids := s.book()
	assert.Equal(t, map[float64]float64{2_750_500: 1.5}, asks)
	assert.Equal(t, map[float64]float64{2_740_000: 4}, bids)
}

func TestStoreBookReturnsCopies(t *testing.T) {
	s := newStore()
	s.applySnapshot(boardMessage{Asks: []boardLevel{{Price: 100, Size: 1}}})

	asks, _ := s.book()
	asks[100] = 999

	again, _ := s.book()
	assert.Equal(t, 1.0, again[100])
}

func TestStoreBookChangePulse(t *testing.T) {
	s := newStore()
	ctx := waitCtx(t)

	done := make(chan error, 1)
	go func() { done <- s.waitBookChange(ctx) }()

	time.Sleep(10 * time.Millisecond)
	s.applyDiff(boardMessage{Asks: []boardLevel{{Price: 100, Size: 1}}})

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("waitBookChange did not wake on diff")
	}
}

func TestStoreWatchersReceiveInOrder(t *testing.T) {
	s := newStore()
	ch := s.watchTrades(waitCtx(t))

	s.insertTrades([]domain.Record{
		{"price": 1.0}, {"price": 2.0}, {"price": 3.0},
	})

	for want := 1.0; want <= 3.0; want++ {
		select {
		case rec := <-ch:
			assert.Equal(t, want, rec.Float("price"))
		case <-time.After(time.Second):
			t.Fatal("trade not delivered")
		}
	}
}

func TestStoreWatcherAbsorbsBurstLosslessly(t *testing.T) {
	s := newStore()
	ch := s.watchTrades(waitCtx(t))

	// A full-buffer burst inserted before the consumer runs must arrive
	// complete and in order.
	recs := make([]domain.Record, watcherBuffer)
	for i := range recs {
		recs[i] = domain.Record{"price": float64(i)}
	}
	s.insertTrades(recs)

	for i := 0; i < watcherBuffer; i++ {
		select {
		case rec := <-ch:
			require.Equal(t, float64(i), rec.Float("price"))
		case <-time.After(time.Second):
			t.Fatalf("trade %d not delivered", i)
		}
	}
}

func TestStoreWatcherClosedOnCtxCancel(t *testing.T) {
	s := newStore()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.watchEvents(ctx)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must close on cancel")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Inserting after unregistration must not panic.
	s.insertEvents([]domain.Record{{"event_type": "ORDER"}})
}

func TestStoreCloseReleasesWatchers(t *testing.T) {
	s := newStore()
	trades := s.watchTrades(context.Background())
	events := s.watchEvents(context.Background())

	s.close()
	s.close() // idempotent

	_, ok := <-trades
	assert.False(t, ok)
	_, ok = <-events
	assert.False(t, ok)

	// A watcher registered after close gets an already-closed channel.
	late := s.watchTrades(context.Background())
	_, ok = <-late
	assert.False(t, ok)
}
