package dealer

import (
	"context"
	"sync"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// queue is the session's delivery queue: many producers, one consumer,
// unbounded so producers never block. FIFO in arrival order across all
// producers combined.
type queue struct {
	mu     sync.Mutex
	items  []domain.ChannelMessage
	closed bool

	// wake carries at most one pending wakeup for the single consumer.
	wake chan struct{}
}

func newQueue() *queue {
	return &queue{wake: make(chan struct{}, 1)}
}

// push appends a message. Pushes after close are dropped.
func (q *queue) push(msg domain.ChannelMessage) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, msg)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop blocks until a message is available, the context is cancelled, or the
// queue is closed. A closed queue fails immediately with ErrSessionStopped.
func (q *queue) pop(ctx context.Context) (domain.ChannelMessage, error) {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return domain.ChannelMessage{}, domain.ErrSessionStopped
		}
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.ChannelMessage{}, ctx.Err()
		case <-q.wake:
		}
	}
}

// close abandons the queue. Idempotent; a blocked pop observes the close.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}
