package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"quizlink-service/internal/domain"
	"quizlink-service/internal/events"
	"quizlink-service/internal/metrics"
)

// DefaultTimeLimit applies to quizzes that do not set their own.
const DefaultTimeLimit = 10 * time.Minute

// Admission is what a student receives on entering a link.
type Admission struct {
	Link             domain.QuizLink
	Quiz             domain.PublicQuiz
	TimeLimitSeconds int
	// NewlyAdmitted is false when the student was already on the link.
	NewlyAdmitted bool
}

// LinkRegistry issues capacity-bounded quiz links, admits students and records their
// submissions at most once per student per link.
type LinkRegistry struct {
	links     LinkStore
	results   ResultStore
	quizzes   QuizRepository
	events    EventPublisher
	metrics   *metrics.Metrics
	timeLimit time.Duration
	now       func() time.Time
	newToken  func() (string, error)
	newID     func() string
}

// RegistryOption customizes a LinkRegistry.
type RegistryOption func(*LinkRegistry)

func WithEvents(publisher EventPublisher) RegistryOption {
	return func(r *LinkRegistry) { r.events = publisher }
}

func WithMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *LinkRegistry) { r.metrics = m }
}

func WithDefaultTimeLimit(d time.Duration) RegistryOption {
	return func(r *LinkRegistry) {
		if d > 0 {
			r.timeLimit = d
		}
	}
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *LinkRegistry) { r.now = now }
}

func NewLinkRegistry(links LinkStore, results ResultStore, quizzes QuizRepository, opts ...RegistryOption) *LinkRegistry {
	r := &LinkRegistry{
		links:     links,
		results:   results,
		quizzes:   quizzes,
		timeLimit: DefaultTimeLimit,
		now:       time.Now,
		newToken:  newLinkToken,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// newLinkToken returns 24 random bytes, base64url encoded without padding.
func newLinkToken() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TimeLimit is the countdown for quiz in whole seconds.
func (r *LinkRegistry) TimeLimit(quiz domain.Quiz) int {
	if quiz.TimeLimitSeconds > 0 {
		return quiz.TimeLimitSeconds
	}
	return int(r.timeLimit / time.Second)
}

// CreateLink issues a new link for quizID that admits at most maxAllowed distinct students.
func (r *LinkRegistry) CreateLink(ctx context.Context, adminID, quizID string, maxAllowed int) (domain.QuizLink, error) {
	ctx, span := tracer.Start(ctx, "LinkRegistry.CreateLink", trace.WithAttributes(
		attribute.String("quiz.id", quizID),
		attribute.Int("link.max_allowed", maxAllowed),
	))
	defer span.End()

	link, err := r.createLink(ctx, adminID, quizID, maxAllowed)
	recordSpanError(span, err)
	return link, err
}

func (r *LinkRegistry) createLink(ctx context.Context, adminID, quizID string, maxAllowed int) (domain.QuizLink, error) {
	if maxAllowed <= 0 {
		return domain.QuizLink{}, domain.ErrInvalidCapacity
	}
	if _, err := r.quizzes.GetQuiz(ctx, quizID); err != nil {
		return domain.QuizLink{}, err
	}

	token, err := r.newToken()
	if err != nil {
		return domain.QuizLink{}, fmt.Errorf("generate link token: %w", err)
	}
	link := domain.QuizLink{
		ID:           token,
		AdminID:      adminID,
		QuizID:       quizID,
		MaxAllowed:   maxAllowed,
		Participants: []domain.Participant{},
		CreatedAt:    r.now().UTC(),
	}
	if err := r.links.CreateLink(ctx, link); err != nil {
		return domain.QuizLink{}, err
	}

	r.metrics.RecordLinkCreated()
	r.publish(ctx, events.Event{
		Type:    events.EventTypeLinkCreated,
		Subject: adminID,
		Payload: map[string]any{"link_id": link.ID, "quiz_id": quizID, "max_allowed": maxAllowed},
	})
	return link, nil
}

// GetLink returns a link with its participants.
func (r *LinkRegistry) GetLink(ctx context.Context, linkID string) (domain.QuizLink, error) {
	return r.links.GetLink(ctx, linkID)
}

// Admit lets a student into a link. Re-entering with the same identity is idempotent and never
// consumes capacity; a new identity on a full link fails with ErrCapacityExceeded.
func (r *LinkRegistry) Admit(ctx context.Context, linkID string, identity domain.StudentIdentity) (Admission, error) {
	ctx, span := tracer.Start(ctx, "LinkRegistry.Admit", trace.WithAttributes(attribute.String("link.id", linkID)))
	defer span.End()

	admission, err := r.admit(ctx, linkID, identity)
	recordSpanError(span, err)
	return admission, err
}

func (r *LinkRegistry) admit(ctx context.Context, linkID string, identity domain.StudentIdentity) (Admission, error) {
	if err := identity.Validate(); err != nil {
		return Admission{}, err
	}

	link, err := r.links.GetLink(ctx, linkID)
	if err != nil {
		r.metrics.RecordAdmission("not_found")
		return Admission{}, err
	}
	quiz, err := r.quizzes.GetQuiz(ctx, link.QuizID)
	if err != nil {
		return Admission{}, err
	}

	link, admitted, err := r.links.Admit(ctx, linkID, domain.Participant{
		Identity:   identity,
		AdmittedAt: r.now().UTC(),
	})
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		r.metrics.RecordAdmission("full")
		return Admission{}, err
	case err != nil:
		return Admission{}, err
	}

	if admitted {
		r.metrics.RecordAdmission("admitted")
		r.publish(ctx, events.Event{
			Type:    events.EventTypeStudentAdmitted,
			Subject: identity.Key(),
			Payload: map[string]any{
				"link_id": link.ID,
				"quiz_id": link.QuizID,
				"name":    identity.Name,
				"class":   identity.ClassName,
				"section": identity.Section,
			},
		})
	} else {
		r.metrics.RecordAdmission("readmitted")
	}

	return Admission{
		Link:             link,
		Quiz:             quiz.Public(),
		TimeLimitSeconds: r.TimeLimit(quiz),
		NewlyAdmitted:    admitted,
	}, nil
}

// RecordSubmission scores a submission made through a link and stores it. Each admitted
// student is recorded at most once; later calls fail with ErrDuplicateSubmission.
func (r *LinkRegistry) RecordSubmission(ctx context.Context, linkID string, identity domain.StudentIdentity, submission domain.Submission) (domain.ScoreSummary, error) {
	ctx, span := tracer.Start(ctx, "LinkRegistry.RecordSubmission", trace.WithAttributes(attribute.String("link.id", linkID)))
	defer span.End()

	summary, err := r.recordSubmission(ctx, linkID, identity, submission)
	recordSpanError(span, err)
	return summary, err
}

func (r *LinkRegistry) recordSubmission(ctx context.Context, linkID string, identity domain.StudentIdentity, submission domain.Submission) (domain.ScoreSummary, error) {
	link, err := r.links.GetLink(ctx, linkID)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	participant, ok := link.Participant(identity)
	if !ok {
		r.reject(ctx, linkID, identity, "not_admitted")
		return domain.ScoreSummary{}, domain.ErrCapacityExceeded
	}
	if participant.Submitted() {
		r.reject(ctx, linkID, identity, "duplicate")
		return domain.ScoreSummary{}, domain.ErrDuplicateSubmission
	}

	quiz, err := r.quizzes.GetQuiz(ctx, link.QuizID)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	record, err := r.score(quiz, identity, submission)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	record.LinkID = link.ID
	record.AdminID = link.AdminID

	if err := r.links.CommitSubmission(ctx, linkID, record); err != nil {
		if errors.Is(err, domain.ErrDuplicateSubmission) {
			r.reject(ctx, linkID, identity, "duplicate")
		}
		return domain.ScoreSummary{}, err
	}

	r.recorded(ctx, "link", record)
	return record.Summary(), nil
}

// SubmitDirect scores and stores a submission that did not come through a link.
// It has no duplicate protection.
func (r *LinkRegistry) SubmitDirect(ctx context.Context, quizID string, identity domain.StudentIdentity, submission domain.Submission) (domain.ScoreSummary, error) {
	ctx, span := tracer.Start(ctx, "LinkRegistry.SubmitDirect", trace.WithAttributes(attribute.String("quiz.id", quizID)))
	defer span.End()

	summary, err := r.submitDirect(ctx, quizID, identity, submission)
	recordSpanError(span, err)
	return summary, err
}

func (r *LinkRegistry) submitDirect(ctx context.Context, quizID string, identity domain.StudentIdentity, submission domain.Submission) (domain.ScoreSummary, error) {
	if err := identity.Validate(); err != nil {
		return domain.ScoreSummary{}, err
	}
	quiz, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	record, err := r.score(quiz, identity, submission)
	if err != nil {
		return domain.ScoreSummary{}, err
	}
	if err := r.results.SaveResult(ctx, record); err != nil {
		return domain.ScoreSummary{}, err
	}

	r.recorded(ctx, "direct", record)
	return record.Summary(), nil
}

// score evaluates submission and wraps it in a new record. Client-reported durations are
// clamped to the quiz's time limit.
func (r *LinkRegistry) score(quiz domain.Quiz, identity domain.StudentIdentity, submission domain.Submission) (domain.ResultRecord, error) {
	limit := r.TimeLimit(quiz)
	entries := make([]domain.AnswerEntry, len(submission.Entries))
	for i, entry := range submission.Entries {
		entry.TimeSpentSeconds = clamp(entry.TimeSpentSeconds, 0, limit)
		entries[i] = entry
	}
	submission.Entries = entries
	submission.QuizID = quiz.ID
	submission.ElapsedSeconds = clamp(submission.ElapsedSeconds, 0, limit)

	result, err := Evaluate(quiz, submission, r.now().UTC())
	if err != nil {
		return domain.ResultRecord{}, err
	}
	return domain.ResultRecord{
		SubmissionID:   r.newID(),
		QuizID:         quiz.ID,
		Student:        identity,
		ElapsedSeconds: submission.ElapsedSeconds,
		AutoSubmitted:  submission.AutoSubmitted,
		Result:         result,
	}, nil
}

func (r *LinkRegistry) recorded(ctx context.Context, path string, record domain.ResultRecord) {
	r.metrics.RecordSubmission(path, record.AutoSubmitted, record.Result.Percentage)
	r.publish(ctx, events.Event{
		Type:    events.EventTypeSubmissionRecorded,
		Subject: record.Student.Key(),
		Payload: map[string]any{
			"submission_id":  record.SubmissionID,
			"quiz_id":        record.QuizID,
			"link_id":        record.LinkID,
			"percentage":     record.Result.Percentage,
			"auto_submitted": record.AutoSubmitted,
		},
	})
}

func (r *LinkRegistry) reject(ctx context.Context, linkID string, identity domain.StudentIdentity, reason string) {
	r.metrics.RecordRejection(reason)
	r.publish(ctx, events.Event{
		Type:    events.EventTypeSubmissionRejected,
		Subject: identity.Key(),
		Payload: map[string]any{"link_id": linkID, "reason": reason},
	})
}

func (r *LinkRegistry) publish(ctx context.Context, event events.Event) {
	if r.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = r.now().UTC()
	}
	_ = r.events.Publish(ctx, event)
}
