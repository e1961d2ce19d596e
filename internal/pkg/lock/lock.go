// Package lock provides per-chat-user in-flight guards for slow commands.
package lock

import "sync"

// InFlight tracks which chat users have a slow command running. A user
// holds at most one slot; entries are removed on release so the map only
// ever contains running commands.
type InFlight struct {
	mu      sync.Mutex
	running map[int64]struct{}
}

// NewInFlight creates an empty guard.
func NewInFlight() *InFlight {
	return &InFlight{running: make(map[int64]struct{})}
}

// TryAcquire claims the slot for userID without blocking.
// It reports false when the user already has a command running.
func (g *InFlight) TryAcquire(userID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.running[userID]; busy {
		return false
	}
	g.running[userID] = struct{}{}
	return true
}

// Release frees the slot for userID. Releasing a free slot is a no-op.
func (g *InFlight) Release(userID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, userID)
}

// Do runs fn while holding the slot for userID, or returns ErrBusy at once
// when the user already has a command running.
func (g *InFlight) Do(userID int64, fn func() error) error {
	if !g.TryAcquire(userID) {
		return ErrBusy
	}
	defer g.Release(userID)
	return fn()
}
