package game

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrCodeInUse    = errors.New("game code already in use")
)

// DefaultEvictDelay keeps a finished game around long enough for late
// reconnections wanting the final results.
const DefaultEvictDelay = 60 * time.Second

// Registry is the process-wide index of running games keyed by game
// code. It holds no persistence: a process restart loses every live
// game, and resuming on another process instance is unsupported.
type Registry struct {
	mu         sync.RWMutex
	games      map[string]*LiveGame
	evictDelay time.Duration
}

func NewRegistry(evictDelay time.Duration) *Registry {
	if evictDelay <= 0 {
		evictDelay = DefaultEvictDelay
	}
	return &Registry{games: make(map[string]*LiveGame), evictDelay: evictDelay}
}

// Add registers a live game under its code. The store's collision check
// should make duplicates impossible; this is a defensive recheck.
func (r *Registry) Add(g *LiveGame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.games[g.Code] != nil {
		return ErrCodeInUse
	}
	r.games[g.Code] = g
	return nil
}

// Get returns the live game for a code. A missing entry is reported the
// same whether the code never existed or the game was already evicted.
func (r *Registry) Get(code string) (*LiveGame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g := r.games[code]
	if g == nil {
		return nil, ErrGameNotFound
	}
	return g, nil
}

// ScheduleEvict removes the entry after the grace window. The code may
// be reused by a new session once the durable record is also finished.
func (r *Registry) ScheduleEvict(code string) *time.Timer {
	return time.AfterFunc(r.evictDelay, func() {
		r.Remove(code)
	})
}

func (r *Registry) Remove(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.games, code)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
