package bitflyer

import (
	"context"
	"sync"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// watcherBuffer is the per-watcher channel capacity. The session's producers
// drain their watcher into an unbounded queue on every delivery, so the
// buffer only has to absorb scheduling jitter, not sustained backlog. A
// watcher that still falls this far behind starts losing records; blocking
// here would stall board processing on the same read loop.
const watcherBuffer = 1024

// pulse is a broadcast edge: Wait blocks until the next Notify, regardless of
// how many waiters there are.
type pulse struct {
	mu sync.Mutex
	ch chan struct{}
}

func newPulse() *pulse {
	return &pulse{ch: make(chan struct{})}
}

func (p *pulse) Notify() {
	p.mu.Lock()
	close(p.ch)
	p.ch = make(chan struct{})
	p.mu.Unlock()
}

func (p *pulse) Wait(ctx context.Context) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// store is the in-memory realtime state for one symbol: the raw board plus
// append-only trade and account-event streams. The ws read loop writes into
// it; the session's producers read from it.
type store struct {
	mu   sync.RWMutex
	asks map[float64]float64
	bids map[float64]float64

	bookPulse *pulse
	ready     chan struct{}
	readyOnce sync.Once

	watchMu       sync.Mutex
	tradeWatchers map[chan domain.Record]struct{}
	eventWatchers map[chan domain.Record]struct{}
	closed        bool
}

func newStore() *store {
	return &store{
		asks:          make(map[float64]float64),
		bids:          make(map[float64]float64),
		bookPulse:     newPulse(),
		ready:         make(chan struct{}),
		tradeWatchers: make(map[chan domain.Record]struct{}),
		eventWatchers: make(map[chan domain.Record]struct{}),
	}
}

// applySnapshot replaces the whole board. The first snapshot marks the store
// ready, releasing the session's warm-up barrier.
func (s *store) applySnapshot(msg boardMessage) {
	s.mu.Lock()
	s.asks = make(map[float64]float64, len(msg.Asks))
	for _, lv := range msg.Asks {
		s.asks[lv.Price] = lv.Size
	}
	s.bids = make(map[float64]float64, len(msg.Bids))
	for _, lv := range msg.Bids {
		s.bids[lv.Price] = lv.Size
	}
	s.mu.Unlock()

	s.readyOnce.Do(func() { close(s.ready) })
	s.bookPulse.Notify()
}

// applyDiff merges an incremental board update; a zero size removes the
// level.
func (s *store) applyDiff(msg boardMessage) {
	s.mu.Lock()
	for _, lv := range msg.Asks {
		if lv.Size == 0 {
			delete(s.asks, lv.Price)
		} else {
			s.asks[lv.Price] = lv.Size
		}
	}
	for _, lv := range msg.Bids {
		if lv.Size == 0 {
			delete(s.bids, lv.Price)
		} else {
			s.bids[lv.Price] = lv.Size
		}
	}
	s.mu.Unlock()

	s.bookPulse.Notify()
}

// book returns copies of both sides of the raw board.
func (s *store) book() (asks, bids map[float64]float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asks = make(map[float64]float64, len(s.asks))
	for p, sz := range s.asks {
		asks[p] = sz
	}
	bids = make(map[float64]float64, len(s.bids))
	for p, sz := range s.bids {
		bids[p] = sz
	}
	return asks, bids
}

func (s *store) waitReady(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ready:
		return nil
	}
}

func (s *store) waitBookChange(ctx context.Context) error {
	return s.bookPulse.Wait(ctx)
}

// insertTrades fans executions out to all trade watchers.
func (s *store) insertTrades(recs []domain.Record) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, rec := range recs {
		for ch := range s.tradeWatchers {
			select {
			case ch <- rec:
			default: // watcher too slow, drop
			}
		}
	}
}

// insertEvents fans account events out to all event watchers.
func (s *store) insertEvents(recs []domain.Record) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, rec := range recs {
		for ch := range s.eventWatchers {
			select {
			case ch <- rec:
			default:
			}
		}
	}
}

// watchTrades registers a trade watcher. The returned channel closes when ctx
// is cancelled or the store closes.
func (s *store) watchTrades(ctx context.Context) <-chan domain.Record {
	return s.watch(ctx, s.tradeWatchers)
}

// watchEvents registers an account-event watcher.
func (s *store) watchEvents(ctx context.Context) <-chan domain.Record {
	return s.watch(ctx, s.eventWatchers)
}

func (s *store) watch(ctx context.Context, watchers map[chan domain.Record]struct{}) <-chan domain.Record {
	ch := make(chan domain.Record, watcherBuffer)

	s.watchMu.Lock()
	if s.closed {
		s.watchMu.Unlock()
		close(ch)
		return ch
	}
	watchers[ch] = struct{}{}
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		if _, ok := watchers[ch]; ok {
			delete(watchers, ch)
			close(ch)
		}
		s.watchMu.Unlock()
	}()

	return ch
}

// close releases every watcher. Further inserts are no-ops.
func (s *store) close() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.tradeWatchers {
		delete(s.tradeWatchers, ch)
		close(ch)
	}
	for ch := range s.eventWatchers {
		delete(s.eventWatchers, ch)
		close(ch)
	}
}
