package memory

import (
	"sync"

	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.AttemptSession
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		sessions: make(map[string]*app.AttemptSession),
	}
}

func (s *AttemptStore) GetOrCreate(key string, quiz domain.Quiz) *app.AttemptSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session
	}
	session := app.NewAttemptSession(key, quiz)
	s.sessions[key] = session
	return session
}

func (s *AttemptStore) Get(key string) (*app.AttemptSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[key]
	return session, ok
}

func (s *AttemptStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}
