package dealer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ktmaeda/dealerdesk/internal/domain"
)

// Adapters holds the exchange adapters available for session builds, keyed by
// exchange name. Registration happens once at wire time; lookups of unknown
// names fail fast with domain.ErrUnsupportedExchange.
type Adapters struct {
	mu       sync.RWMutex
	adapters map[string]domain.ExchangeAdapter
}

// NewAdapters returns an empty registry. Call Register to add venues.
func NewAdapters() *Adapters {
	return &Adapters{adapters: make(map[string]domain.ExchangeAdapter)}
}

// Register adds an adapter under its own name.
func (a *Adapters) Register(adapter domain.ExchangeAdapter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.adapters[adapter.Name()] = adapter
}

// Get returns the adapter for the given exchange name.
func (a *Adapters) Get(name string) (domain.ExchangeAdapter, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	adapter, ok := a.adapters[name]
	if !ok {
		return nil, fmt.Errorf("dealer: exchange %q: %w", name, domain.ErrUnsupportedExchange)
	}
	return adapter, nil
}

// List returns all registered exchange names, sorted.
func (a *Adapters) List() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	names := make([]string, 0, len(a.adapters))
	for n := range a.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Active tracks the session currently streaming to the dashboard so the
// order-command endpoints can reach it. The session handle itself is owned by
// whoever built it; Active only points at it.
type Active struct {
	mu      sync.RWMutex
	session *Session
}

// NewActive returns an empty tracker.
func NewActive() *Active {
	return &Active{}
}

// Set makes s the current session.
func (a *Active) Set(s *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session = s
}

// Drop clears the current session, but only if it still is s. A newer
// session registered by a reconnecting consumer is left untouched.
func (a *Active) Drop(s *Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.session == s {
		a.session = nil
	}
}

// Current returns the current session, or false when none is streaming.
func (a *Active) Current() (*Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.session, a.session != nil
}
