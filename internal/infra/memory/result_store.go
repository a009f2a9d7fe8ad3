package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quizlink-service/internal/domain"
)

// ResultStore keeps scored results in memory.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.ResultRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.ResultRecord)}
}

func (s *ResultStore) SaveResult(_ context.Context, record domain.ResultRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[record.SubmissionID]; exists {
		return fmt.Errorf("result %s already stored", record.SubmissionID)
	}
	s.results[record.SubmissionID] = record
	return nil
}

func (s *ResultStore) GetResult(_ context.Context, submissionID string) (domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.results[submissionID]
	if !ok {
		return domain.ResultRecord{}, domain.ErrSubmissionNotFound
	}
	return record, nil
}

func (s *ResultStore) ListResultsByQuiz(_ context.Context, quizID string) ([]domain.ResultRecord, error) {
	return s.filter(func(r domain.ResultRecord) bool { return r.QuizID == quizID }), nil
}

func (s *ResultStore) ListResultsByAdmin(_ context.Context, adminID string) ([]domain.ResultRecord, error) {
	return s.filter(func(r domain.ResultRecord) bool { return r.AdminID == adminID }), nil
}

func (s *ResultStore) ListResults(_ context.Context) ([]domain.ResultRecord, error) {
	return s.filter(func(domain.ResultRecord) bool { return true }), nil
}

func (s *ResultStore) filter(keep func(domain.ResultRecord) bool) []domain.ResultRecord {
	s.mu.RLock()
	out := make([]domain.ResultRecord, 0, len(s.results))
	for _, record := range s.results {
		if keep(record) {
			out = append(out, record)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Result.SubmittedAt, out[j].Result.SubmittedAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].SubmissionID < out[j].SubmissionID
	})
	return out
}
