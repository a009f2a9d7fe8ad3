package memory

import (
	"sync"

	"quizlink-service/internal/app"
)

// AttemptStore is an in-memory implementation of app.AttemptRepository.
type AttemptStore struct {
	mu      sync.RWMutex
	byID    map[string]*app.Attempt
	byOwner map[string]*app.Attempt
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		byID:    make(map[string]*app.Attempt),
		byOwner: make(map[string]*app.Attempt),
	}
}

func (s *AttemptStore) GetOrCreate(owner app.AttemptOwner, create func() *app.Attempt) (*app.Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt, ok := s.byOwner[owner.Key()]; ok {
		return attempt, false
	}
	attempt := create()
	s.byID[attempt.ID()] = attempt
	s.byOwner[owner.Key()] = attempt
	return attempt, true
}

func (s *AttemptStore) Get(attemptID string) (*app.Attempt, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.byID[attemptID]
	return attempt, ok
}

func (s *AttemptStore) Touch(*app.Attempt) {}

func (s *AttemptStore) Delete(attemptID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.byID[attemptID]
	if !ok {
		return
	}
	delete(s.byID, attemptID)
	delete(s.byOwner, attempt.Owner().Key())
}

func (s *AttemptStore) All() []*app.Attempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Attempt, 0, len(s.byID))
	for _, attempt := range s.byID {
		out = append(out, attempt)
	}
	return out
}
