package viewmodel

import (
	"context"
	"sync"
)

// Ticket identifies one issued fetch.
type Ticket uint64

// Sequencer lets only the most recently issued fetch apply its result.
// Starting a fetch cancels the context of the one before it.
type Sequencer struct {
	mu     sync.Mutex
	latest Ticket
	cancel context.CancelFunc
}

// Start issues a new ticket and a context that is cancelled when the next
// fetch starts or Done is called.
func (s *Sequencer) Start(parent context.Context) (context.Context, Ticket) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.latest++
	s.cancel = cancel
	return ctx, s.latest
}

// IsLatest reports whether t is still the newest ticket.
func (s *Sequencer) IsLatest(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t == s.latest
}

// Done releases the context of t if it is still the newest.
func (s *Sequencer) Done(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t == s.latest && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Stop cancels any fetch in flight and invalidates its ticket.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.latest++
}
