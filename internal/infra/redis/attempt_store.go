package redis

import (
	"context"
	"sync"
	"time"

	"quiz-engine-service/internal/app"
	"quiz-engine-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore is a Redis-aware implementation of app.AttemptRepository.
// Notes:
//   - Live sessions stay in a local map: the timing state machine has exactly
//     one writer and one timer driver, both in-process.
//   - Redis marks attempt liveness so an operator can see open attempts (and
//     could be extended to share serialized attempt state across instances).
type AttemptStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.AttemptSession
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		client:   client,
		ttl:      ttl,
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
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.liveKey(key), "1", s.ttl).Err()
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
	if _, ok := s.sessions[key]; !ok {
		return
	}
	delete(s.sessions, key)
	_ = s.client.Del(context.Background(), s.liveKey(key)).Err()
}

func (s *AttemptStore) liveKey(key string) string {
	return "attempt:live:" + key
}
