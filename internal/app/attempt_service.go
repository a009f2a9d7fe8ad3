package app

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"quizlink-service/internal/domain"
	"quizlink-service/internal/events"
)

// ActionKind names a student interaction with a live attempt.
type ActionKind string

const (
	ActionSelect   ActionKind = "select"
	ActionClear    ActionKind = "clear"
	ActionMark     ActionKind = "mark"
	ActionNavigate ActionKind = "navigate"
	ActionNext     ActionKind = "next"
	ActionPrevious ActionKind = "previous"
)

// Action is one student interaction. QuestionNumber applies to select, clear and mark;
// Option to select; Index to navigate.
type Action struct {
	Kind           ActionKind
	QuestionNumber int
	Option         int
	Index          int
}

// AttemptService drives live attempts: it admits students through the registry, applies their
// actions, runs the countdown and records the result when the attempt ends.
type AttemptService struct {
	attempts AttemptRepository
	registry *LinkRegistry
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewAttemptService(attempts AttemptRepository, registry *LinkRegistry, logger *slog.Logger) *AttemptService {
	return &AttemptService{
		attempts: attempts,
		registry: registry,
		logger:   logger,
		now:      registry.now,
		newID:    uuid.NewString,
	}
}

// Begin admits the student and returns their live attempt, starting one if needed.
// Calling Begin again for the same student resumes the running attempt.
func (s *AttemptService) Begin(ctx context.Context, linkID string, identity domain.StudentIdentity) (AttemptView, error) {
	ctx, span := tracer.Start(ctx, "AttemptService.Begin", trace.WithAttributes(attribute.String("link.id", linkID)))
	defer span.End()

	view, err := s.begin(ctx, linkID, identity)
	recordSpanError(span, err)
	return view, err
}

func (s *AttemptService) begin(ctx context.Context, linkID string, identity domain.StudentIdentity) (AttemptView, error) {
	admission, err := s.registry.Admit(ctx, linkID, identity)
	if err != nil {
		return AttemptView{}, err
	}
	if p, ok := admission.Link.Participant(identity); ok && p.Submitted() {
		return AttemptView{}, domain.ErrDuplicateSubmission
	}

	owner := AttemptOwner{LinkID: linkID, Student: identity}
	var startErr error
	attempt, created := s.attempts.GetOrCreate(owner, func() *Attempt {
		attempt := NewAttemptWithClock(s.newID(), owner, s.now)
		startErr = attempt.Start(&domain.Quiz{
			ID:               admission.Quiz.ID,
			Title:            admission.Quiz.Title,
			TimeLimitSeconds: admission.TimeLimitSeconds,
			Questions:        admission.Quiz.Questions,
		}, s.registry.timeLimit)
		return attempt
	})
	if startErr != nil {
		s.attempts.Delete(attempt.ID())
		return AttemptView{}, startErr
	}
	if created {
		s.attempts.Touch(attempt)
		s.registry.metrics.SetLiveAttempts(len(s.attempts.All()))
		s.logger.InfoContext(ctx, "attempt started", "attempt_id", attempt.ID(), "link_id", linkID)
	}
	return attempt.Snapshot(), nil
}

// View returns the current state of an attempt.
func (s *AttemptService) View(_ context.Context, attemptID string) (AttemptView, error) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return AttemptView{}, domain.ErrAttemptNotFound
	}
	return attempt.Snapshot(), nil
}

// Act applies one student action.
func (s *AttemptService) Act(_ context.Context, attemptID string, action Action) (AttemptView, error) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return AttemptView{}, domain.ErrAttemptNotFound
	}

	var err error
	switch action.Kind {
	case ActionSelect:
		err = attempt.SelectAnswer(action.QuestionNumber, action.Option)
	case ActionClear:
		err = attempt.ClearAnswer(action.QuestionNumber)
	case ActionMark:
		err = attempt.ToggleReviewMark(action.QuestionNumber)
	case ActionNavigate:
		attempt.NavigateTo(action.Index)
	case ActionNext:
		attempt.Next()
	case ActionPrevious:
		attempt.Previous()
	default:
		err = errors.New("unknown action " + string(action.Kind))
	}
	if err != nil {
		return AttemptView{}, err
	}

	s.attempts.Touch(attempt)
	return attempt.Snapshot(), nil
}

// Submit ends the attempt on the student's confirmation and records it.
func (s *AttemptService) Submit(ctx context.Context, attemptID string) (domain.ScoreSummary, error) {
	ctx, span := tracer.Start(ctx, "AttemptService.Submit")
	defer span.End()

	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		recordSpanError(span, domain.ErrAttemptNotFound)
		return domain.ScoreSummary{}, domain.ErrAttemptNotFound
	}
	submission, err := attempt.BuildSubmission()
	if err != nil {
		recordSpanError(span, err)
		return domain.ScoreSummary{}, err
	}

	summary, err := s.finalize(ctx, attempt, submission)
	recordSpanError(span, err)
	return summary, err
}

// Subscribe returns a channel that receives updates for an attempt. The channel is closed
// once the attempt ends. The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Subscribe(_ context.Context, attemptID string) (<-chan AttemptUpdate, func(), error) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return nil, nil, domain.ErrAttemptNotFound
	}
	ch, cancel := attempt.subscribe()
	return ch, cancel, nil
}

// LiveAttempts lists the in-progress attempts on links owned by adminID, ordered by link then
// attempt ID. Stores that share attempts across instances are read in full; otherwise only
// this process's attempts are visible.
func (s *AttemptService) LiveAttempts(ctx context.Context, adminID string) ([]AttemptView, error) {
	links, err := s.registry.links.ListLinksByAdmin(ctx, adminID)
	if err != nil {
		return nil, err
	}
	owned := make(map[string]struct{}, len(links))
	for _, link := range links {
		owned[link.ID] = struct{}{}
	}

	var views []AttemptView
	if lister, ok := s.attempts.(LiveAttemptLister); ok {
		if views, err = lister.LiveAttempts(ctx); err != nil {
			return nil, err
		}
	} else {
		for _, attempt := range s.attempts.All() {
			views = append(views, attempt.Snapshot())
		}
	}

	live := lo.Filter(views, func(v AttemptView, _ int) bool {
		_, mine := owned[v.LinkID]
		return mine && v.State == AttemptInProgress
	})
	sort.Slice(live, func(i, j int) bool {
		if live[i].LinkID != live[j].LinkID {
			return live[i].LinkID < live[j].LinkID
		}
		return live[i].AttemptID < live[j].AttemptID
	})
	return live, nil
}

// Abandon discards a live attempt without recording anything.
func (s *AttemptService) Abandon(ctx context.Context, attemptID string) {
	attempt, ok := s.attempts.Get(attemptID)
	if !ok {
		return
	}
	s.attempts.Delete(attemptID)
	s.registry.metrics.SetLiveAttempts(len(s.attempts.All()))
	attempt.finish(nil, nil)
	s.logger.InfoContext(ctx, "attempt abandoned", "attempt_id", attemptID)
}

// TickAll advances every live attempt by one second and records the ones that ran out of time.
func (s *AttemptService) TickAll(ctx context.Context) {
	for _, attempt := range s.attempts.All() {
		submission, expired := attempt.Tick()
		if !expired {
			continue
		}

		owner := attempt.Owner()
		s.registry.publish(ctx, events.Event{
			Type:    events.EventTypeAttemptAutoSubmitted,
			Subject: owner.Student.Key(),
			Payload: map[string]any{"attempt_id": attempt.ID(), "link_id": owner.LinkID},
		})
		if _, err := s.finalize(ctx, attempt, submission); err != nil {
			s.logger.WarnContext(ctx, "failed to record expired attempt", "attempt_id", attempt.ID(), "error", err)
		}
	}
}

// Run ticks every interval until ctx is cancelled.
func (s *AttemptService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.TickAll(ctx)
		}
	}
}

func (s *AttemptService) finalize(ctx context.Context, attempt *Attempt, submission domain.Submission) (domain.ScoreSummary, error) {
	owner := attempt.Owner()
	summary, err := s.registry.RecordSubmission(ctx, owner.LinkID, owner.Student, submission)

	s.attempts.Delete(attempt.ID())
	s.registry.metrics.SetLiveAttempts(len(s.attempts.All()))

	if err != nil {
		attempt.finish(nil, err)
		return domain.ScoreSummary{}, err
	}
	attempt.finish(&summary, nil)
	s.logger.InfoContext(ctx, "attempt recorded",
		"attempt_id", attempt.ID(),
		"submission_id", summary.SubmissionID,
		"auto_submitted", submission.AutoSubmitted,
		"percentage", summary.Percentage,
	)
	return summary, nil
}
