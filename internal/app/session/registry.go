// Package session tracks live signalling sessions: their attendees, their
// ICE servers and the barrier that says when a join may proceed.
package session

import (
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/castlink/internal/domain"
	"github.com/dkeye/castlink/internal/metrics"
)

var ErrNotFound = errors.New("session not found")

// Registry owns every Session it creates. A key maps to at most one live
// Session. Handles returned by GetOrCreate remain safe to use after
// Terminate; they just report Closed and stop being observed.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.SessionKey]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[domain.SessionKey]*Session)}
}

// GetOrCreate returns the live Session for key, creating it on first use.
func (r *Registry) GetOrCreate(key domain.SessionKey) *Session {
	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[key]; ok {
		return s
	}
	s = newSession(key)
	r.sessions[key] = s
	metrics.Sessions.Set(float64(len(r.sessions)))
	log.Info().Str("module", "app.session").Int64("session", int64(key)).Msg("created session")
	return s
}

// Lookup returns the live Session for key without creating one. Use it to
// re-validate a handle held across a blocking call.
func (r *Registry) Lookup(key domain.SessionKey) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[key]
	return s, ok
}

// Terminate closes the Session for key, waking anyone blocked on its join
// barrier, and removes it. It reports false if key was unknown.
func (r *Registry) Terminate(key domain.SessionKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[key]
	if !ok {
		return false
	}
	s.close()
	delete(r.sessions, key)
	metrics.Sessions.Set(float64(len(r.sessions)))
	log.Info().Str("module", "app.session").Int64("session", int64(key)).Msg("terminated session")
	return true
}

// TerminateSession terminates s only if it is still the live Session for
// its key. It reports false for a handle that was already replaced.
func (r *Registry) TerminateSession(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if live, ok := r.sessions[s.key]; !ok || live != s {
		return false
	}
	s.close()
	delete(r.sessions, s.key)
	metrics.Sessions.Set(float64(len(r.sessions)))
	log.Info().Str("module", "app.session").Int64("session", int64(s.key)).Msg("terminated session")
	return true
}

// TerminateAll closes every session. Used on shutdown.
func (r *Registry) TerminateAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.sessions)
	for key, s := range r.sessions {
		s.close()
		delete(r.sessions, key)
	}
	metrics.Sessions.Set(0)
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Keys returns the live keys in ascending order.
func (r *Registry) Keys() []domain.SessionKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.sessions))
}
