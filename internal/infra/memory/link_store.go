package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"quizlink-service/internal/domain"
)

// LinkStore keeps quiz links in memory. Admission and submission on one link are serialized
// by a per-link lock; submissions are committed into results under that lock.
type LinkStore struct {
	results *ResultStore
	locks   *keyedMutex

	mu    sync.RWMutex
	links map[string]*domain.QuizLink
}

func NewLinkStore(results *ResultStore) *LinkStore {
	return &LinkStore{
		results: results,
		locks:   newKeyedMutex(),
		links:   make(map[string]*domain.QuizLink),
	}
}

func (s *LinkStore) CreateLink(_ context.Context, link domain.QuizLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[link.ID]; exists {
		return fmt.Errorf("link %s already exists", link.ID)
	}
	stored := cloneLink(link)
	s.links[link.ID] = &stored
	return nil
}

func (s *LinkStore) GetLink(_ context.Context, linkID string) (domain.QuizLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.links[linkID]
	if !ok {
		return domain.QuizLink{}, domain.ErrLinkNotFound
	}
	return cloneLink(*link), nil
}

func (s *LinkStore) Admit(_ context.Context, linkID string, participant domain.Participant) (domain.QuizLink, bool, error) {
	unlock := s.locks.Lock(linkID)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[linkID]
	if !ok {
		return domain.QuizLink{}, false, domain.ErrLinkNotFound
	}
	if _, already := link.Participant(participant.Identity); already {
		return cloneLink(*link), false, nil
	}
	if link.Exhausted() {
		return domain.QuizLink{}, false, domain.ErrCapacityExceeded
	}
	participant.SubmissionID = ""
	link.Participants = append(link.Participants, participant)
	return cloneLink(*link), true, nil
}

func (s *LinkStore) CommitSubmission(ctx context.Context, linkID string, record domain.ResultRecord) error {
	unlock := s.locks.Lock(linkID)
	defer unlock()

	s.mu.RLock()
	link, ok := s.links[linkID]
	idx := -1
	if ok {
		for i, p := range link.Participants {
			if p.Identity == record.Student {
				idx = i
				break
			}
		}
	}
	var submitted bool
	if idx >= 0 {
		submitted = link.Participants[idx].Submitted()
	}
	s.mu.RUnlock()

	switch {
	case !ok:
		return domain.ErrLinkNotFound
	case idx < 0:
		return domain.ErrCapacityExceeded
	case submitted:
		return domain.ErrDuplicateSubmission
	}

	if err := s.results.SaveResult(ctx, record); err != nil {
		return err
	}

	s.mu.Lock()
	link.Participants[idx].SubmissionID = record.SubmissionID
	s.mu.Unlock()
	return nil
}

func (s *LinkStore) ListLinksByAdmin(_ context.Context, adminID string) ([]domain.QuizLink, error) {
	s.mu.RLock()
	out := make([]domain.QuizLink, 0)
	for _, link := range s.links {
		if link.AdminID == adminID {
			out = append(out, cloneLink(*link))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func cloneLink(link domain.QuizLink) domain.QuizLink {
	participants := make([]domain.Participant, len(link.Participants))
	copy(participants, link.Participants)
	link.Participants = participants
	return link
}
