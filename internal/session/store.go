// internal/session/store.go
//
// In-memory session store bounded by an LRU.

package session

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/pesquisa/internal/api"
	"github.com/yanizio/pesquisa/internal/cache"
)

// Defaults for NewStore.
const (
	DefaultMaxSessions = 1000
	DefaultIdleTTL     = 12 * time.Hour
)

// ErrNotFound is returned for unknown, idle-expired, or cleared sessions.
var ErrNotFound = errors.New("session not found")

// Store keeps live sessions keyed by id.
type Store struct {
	lru     *cache.LRU[string, *Session]
	idleTTL time.Duration
	now     func() time.Time
}

// NewStore returns a store holding at most max sessions.  Zero values fall
// back to the defaults.
func NewStore(max int, idleTTL time.Duration) *Store {
	if max < 1 {
		max = DefaultMaxSessions
	}
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Store{
		lru: cache.New[string, *Session](max, func(id string, _ *Session) {
			zap.S().Infow("session evicted (LRU pressure)", "session", id[:8])
		}),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Create starts a session for a successful login.
func (st *Store) Create(u api.User, t api.Tokens) *Session {
	s := newSession(uuid.NewString(), u, t)
	s.touch(st.now())
	st.lru.Add(s.ID, s)
	return s
}

// Get returns the live session for id and marks it as used.
func (st *Store) Get(id string) (*Session, error) {
	s, ok := st.lru.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	now := st.now()
	if !s.Authenticated() || s.idle(now) > st.idleTTL {
		st.lru.Remove(id)
		return nil, ErrNotFound
	}
	s.touch(now)
	return s, nil
}

// Delete ends the session for id.
func (st *Store) Delete(id string) {
	if s, ok := st.lru.Get(id); ok {
		s.Clear()
	}
	st.lru.Remove(id)
}

// Len reports how many sessions are held.
func (st *Store) Len() int { return st.lru.Len() }
