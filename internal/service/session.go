package service

import (
	"sync"

	"github.com/xiaot623/pairtalk/internal/domain"
)

// sessionRegistry holds the open chat sessions of this process.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*domain.ChatSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*domain.ChatSession)}
}

func (r *sessionRegistry) add(s *domain.ChatSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.SessionID] = s
}

// get returns a copy of the session.
func (r *sessionRegistry) get(id string) (domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ChatSession{}, domain.ErrSessionNotFound
	}
	return *s, nil
}

// update applies fn to the stored session under the registry lock.
func (r *sessionRegistry) update(id string, fn func(s *domain.ChatSession)) (domain.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ChatSession{}, domain.ErrSessionNotFound
	}
	fn(s)
	return *s, nil
}

func (r *sessionRegistry) remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.sessions, id)
	return nil
}

func (r *sessionRegistry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
