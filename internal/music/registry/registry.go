// Package registry maps guild ids to their music sessions and owns
// session lifecycle: create on first use, remove exactly once on
// teardown.
package registry

import (
	"log"
	"sync"

	"harmonia/internal/music/session"
)

// Factory builds a session for a guild. The registry passes its own
// removal callback so sessions unregister themselves on teardown.
type Factory func(guildID string, onClose func(string, *session.Session)) *session.Session

// Registry guarantees at most one live session per guild. Creation and
// removal are serialized under one lock, so a removal in progress can
// never be observed as "absent" by a concurrent GetOrCreate that then
// races a duplicate into existence.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	factory  Factory
}

func New(factory Factory) *Registry {
	return &Registry{
		sessions: make(map[string]*session.Session),
		factory:  factory,
	}
}

// GetOrCreate returns the guild's session, creating it if absent. A
// session that already tore down is replaced by a fresh one.
func (r *Registry) GetOrCreate(guildID string) *session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[guildID]; ok && !s.Closed() {
		return s
	}

	s := r.factory(guildID, r.remove)
	r.sessions[guildID] = s
	log.Printf("[INFO] [Registry] Created music session for guild %s", guildID)
	return s
}

// Get returns the live session for a guild, if any.
func (r *Registry) Get(guildID string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[guildID]
	if !ok || s.Closed() {
		return nil, false
	}
	return s, true
}

// remove unregisters a specific session instance. Comparing instances
// keeps a stale teardown from evicting a fresh session created after it.
func (r *Registry) remove(guildID string, s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.sessions[guildID]; ok && cur == s {
		delete(r.sessions, guildID)
		log.Printf("[INFO] [Registry] Removed music session for guild %s", guildID)
	}
}

// StopAll tears down every live session, used at shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	all := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.mu.Unlock()

	for _, s := range all {
		if err := s.Stop(); err != nil {
			log.Printf("[WARN] [Registry] Stop session %s: %v", s.GuildID(), err)
		}
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
