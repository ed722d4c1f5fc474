package dealer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ktmaeda/dealerdesk/internal/book"
	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// defaultPollInterval is how often the position producer polls the venue.
const defaultPollInterval = 500 * time.Millisecond

// Mux fans four independently paced producers (book, trade, event, position)
// into one FIFO delivery queue. It owns the producer goroutines: Start spawns
// them under a shared cancellation scope and Stop cancels them all.
//
// Ordering is guaranteed only within a single producer's output; across
// producers, Next returns messages in queue-arrival order.
type Mux struct {
	feed         domain.MarketFeed
	adapter      domain.ExchangeAdapter
	leveler      *book.Leveler
	pollInterval time.Duration
	logger       *slog.Logger

	q        *queue
	cancel   context.CancelFunc
	g        *errgroup.Group
	stopOnce sync.Once
}

// NewMux assembles a multiplexer. pollInterval <= 0 selects the default.
func NewMux(feed domain.MarketFeed, adapter domain.ExchangeAdapter, leveler *book.Leveler, pollInterval time.Duration, logger *slog.Logger) *Mux {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Mux{
		feed:         feed,
		adapter:      adapter,
		leveler:      leveler,
		pollInterval: pollInterval,
		logger:       logger.With(slog.String("component", "mux")),
		q:            newQueue(),
	}
}

// Start spawns the four producers. They run until ctx is cancelled or Stop is
// called.
func (m *Mux) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.g, ctx = errgroup.WithContext(ctx)

	m.g.Go(m.guard(ctx, "book", m.runBook))
	m.g.Go(m.guard(ctx, "trade", m.runTrades))
	m.g.Go(m.guard(ctx, "event", m.runEvents))
	m.g.Go(m.guard(ctx, "position", m.runPositions))
}

// guard wraps a producer so a source failure terminates only that producer.
// The channel then stays silent until the whole session is rebuilt; siblings
// keep running.
func (m *Mux) guard(ctx context.Context, name string, run func(context.Context) error) func() error {
	return func() error {
		err := run(ctx)
		if err != nil && ctx.Err() == nil {
			m.logger.Error("dealer: producer stopped",
				slog.String("producer", name),
				slog.String("error", err.Error()),
			)
		}
		return nil
	}
}

// Next blocks until one message is available and returns it. After Stop it
// fails with domain.ErrSessionStopped.
func (m *Mux) Next(ctx context.Context) (domain.ChannelMessage, error) {
	return m.q.pop(ctx)
}

// Stop cancels all producers and abandons the queue. Safe to call more than
// once.
func (m *Mux) Stop() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.q.close()
		if m.g != nil {
			_ = m.g.Wait()
		}
	})
}

// runBook recomputes the leveled view on every book change notification.
// Views are suppressed until the raw book has both sides, which models "book
// not warmed up yet".
func (m *Mux) runBook(ctx context.Context) error {
	for {
		if err := m.feed.WaitBookChange(ctx); err != nil {
			return err
		}

		asks, bids := m.feed.Book()
		view := m.leveler.View(asks, bids)
		if !view.Ready {
			continue
		}
		m.q.push(domain.BookMessage(view))
	}
}

// runTrades forwards one normalized TradeEvent per inserted execution.
func (m *Mux) runTrades(ctx context.Context) error {
	ch := m.feed.WatchTrades(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-ch:
			if !ok {
				return domain.ErrFeedClosed
			}
			m.q.push(domain.TradeMessage(m.adapter.NormalizeTrade(rec)))
		}
	}
}

// runEvents forwards one normalized AccountEvent per inserted record.
func (m *Mux) runEvents(ctx context.Context) error {
	ch := m.feed.WatchEvents(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-ch:
			if !ok {
				return domain.ErrFeedClosed
			}
			m.q.push(domain.EventMessage(m.adapter.NormalizeEvent(rec)))
		}
	}
}

// runPositions emits a zero summary immediately so the consumer has an
// initial value, then polls the venue on a fixed interval.
func (m *Mux) runPositions(ctx context.Context) error {
	m.q.push(domain.PositionMessage(domain.PositionSummary{}))

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			recs, err := m.feed.Positions(ctx)
			if err != nil {
				return err
			}
			lots := m.adapter.NormalizeLots(recs)
			m.q.push(domain.PositionMessage(SummarizePositions(lots)))
		}
	}
}
