// Package sessions hosts one dashboard session per viewer.
package sessions

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"trafficlens/internal/dashboard"
)

// ErrSessionNotFound is returned for ids that were never issued or have expired.
var ErrSessionNotFound = errors.New("session not found")

type entry struct {
	mu       sync.Mutex
	session  *dashboard.Session
	lastSeen time.Time
	// removed is set under mu once the entry leaves the store.
	removed bool
}

// Store keeps sessions keyed by id. Events for one session run one at a
// time; different sessions proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	ctx     *dashboard.Context
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewStore creates an empty store whose sessions filter ctx and expire
// after timeout without events.
func NewStore(ctx *dashboard.Context, timeout time.Duration, logger *slog.Logger) *Store {
	return &Store{
		entries: make(map[string]*entry),
		ctx:     ctx,
		timeout: timeout,
		logger:  logger,
		now:     time.Now,
	}
}

// Context returns the shared dashboard data.
func (s *Store) Context() *dashboard.Context {
	return s.ctx
}

// Create starts a new session and returns its id.
func (s *Store) Create() (string, *dashboard.Session) {
	id := uuid.NewString()
	session := s.ctx.NewSession()

	s.mu.Lock()
	s.entries[id] = &entry{session: session, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug("Session created", slog.String("session_id", id))
	return id, session
}

// With runs fn on session id while holding that session's lock, so fn sees
// the effects of every earlier event and none of any later one.
func (s *Store) With(id string, fn func(*dashboard.Session) error) error {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return ErrSessionNotFound
	}
	e.lastSeen = s.now()
	return fn(e.session)
}

// remove drops id from the store. Callers hold s.mu and e.mu.
func (s *Store) remove(id string, e *entry) {
	e.removed = true
	delete(s.entries, id)
}

// Delete removes session id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	s.remove(id, e)
	e.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Expire removes sessions idle for longer than the timeout as of now and
// returns how many were removed. A session handling an event is never idle.
func (s *Store) Expire(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.lastSeen) > s.timeout {
			s.remove(id, e)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
