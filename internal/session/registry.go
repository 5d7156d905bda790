package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Registry keeps the live sessions of the process, plus a bounded number of
// recently stopped ones
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	// stopped ids, oldest first
	retired []uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers a session, replacing any with the same id
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

func (r *Registry) Get(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	r.retired = lo.Without(r.retired, id)
}

// Retire marks a stopped session and evicts the oldest stopped sessions so
// that at most keep of them stay in memory. keep <= 0 evicts id at once.
// It returns the evicted ids.
func (r *Registry) Retire(id uuid.UUID, keep int) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return nil
	}
	r.retired = append(lo.Without(r.retired, id), id)

	var evicted []uuid.UUID
	for len(r.retired) > max(keep, 0) {
		oldest := r.retired[0]
		r.retired = r.retired[1:]
		delete(r.sessions, oldest)
		evicted = append(evicted, oldest)
	}
	return evicted
}

// List returns the live sessions in no particular order
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Values(r.sessions)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
