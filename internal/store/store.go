package store

import "sync"

// Store owns the application [State]. It is single-writer (the effect
// orchestrator) and multi-reader (views, CLI commands): every transition is an
// atomic replace of the state value, so readers never observe a
// partially-applied transition.
type Store struct {
	mu    sync.RWMutex
	state State
	subs  []chan State
}

// NewStore creates a store in the initial (unauthenticated, empty) state.
func NewStore() *Store {
	return &Store{}
}

// State returns a snapshot of the current state. Slices inside the snapshot
// are never mutated after publication.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply runs an event through the reducer and notifies subscribers.
func (s *Store) Apply(ev Event) {
	s.mu.Lock()
	s.state = reduce(s.state, ev)
	next := s.state
	subs := s.subs
	s.mu.Unlock()

	for _, ch := range subs {
		// Subscribers that lag are skipped rather than blocking the writer;
		// they will observe the next transition instead.
		select {
		case ch <- next:
		default:
		}
	}
}

// Subscribe registers a channel that receives a state snapshot after each
// transition. The channel is buffered; a slow consumer may miss intermediate
// snapshots but always eventually observes the latest state it reads.
func (s *Store) Subscribe() <-chan State {
	ch := make(chan State, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}
