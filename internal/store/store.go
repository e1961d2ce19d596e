// Package store is the single coordinator of arena state. Every mutation runs
// under one exclusive lock against a private copy of the state; the copy replaces
// the committed state only when the mutation succeeds.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Persister loads and saves whole-state snapshots.
type Persister interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, st *State) error
}

// Store owns the committed state.
type Store struct {
	mu      sync.RWMutex
	state   *State
	version uint64

	flushMu sync.Mutex
	saved   uint64
}

// New creates a store holding initial, or an empty state when initial is nil.
func New(initial *State) *Store {
	if initial == nil {
		initial = NewState()
	}
	return &Store{state: initial}
}

// Update runs fn against a copy of the committed state. If fn returns nil the
// copy is committed; otherwise it is discarded and the committed state is untouched.
func (s *Store) Update(fn func(tx *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	if err := fn(next); err != nil {
		next.ledger.rollback(s.state.ledger)
		return err
	}
	s.state = next
	s.version++
	return nil
}

// View runs fn against the committed state. fn must not mutate it.
func (s *Store) View(fn func(st *State)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.state)
}

// Version returns the number of committed updates.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the committed state and its version. Committed states are
// never modified in place, so the result stays consistent after the lock is released.
func (s *Store) Snapshot() (*State, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state, s.version
}

// Restore replaces the committed state wholesale, e.g. after loading from disk.
// The restored state counts as saved.
func (s *Store) Restore(st *State) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.state = st
	s.version++
	s.saved = s.version
	s.mu.Unlock()
}

// Dirty reports whether commits happened since the last successful flush.
func (s *Store) Dirty() bool {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.Version() != s.saved
}

// Flush saves the committed state through p if it changed since the last
// successful flush. It reports whether a save happened.
func (s *Store) Flush(ctx context.Context, p Persister) (bool, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	st, version := s.Snapshot()
	if version == s.saved {
		return false, nil
	}
	if err := p.Save(ctx, st); err != nil {
		return false, fmt.Errorf("failed to save state version %d: %w", version, err)
	}
	s.saved = version
	return true, nil
}

// RunFlusher flushes every interval until ctx is cancelled, then flushes once more.
func (s *Store) RunFlusher(ctx context.Context, p Persister, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if _, err := s.Flush(shutdownCtx, p); err != nil {
				log.Error().Err(err).Msg("Final state flush failed")
			} else {
				log.Info().Uint64("version", s.Version()).Msg("State flushed on shutdown")
			}
			cancel()
			return
		case <-ticker.C:
			saved, err := s.Flush(ctx, p)
			if err != nil {
				log.Error().Err(err).Msg("State flush failed")
				continue
			}
			if saved {
				log.Debug().Uint64("version", s.Version()).Msg("State flushed")
			}
		}
	}
}
