package app

import (
	"context"

	"quizlink-service/internal/domain"
	"quizlink-service/internal/events"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCatalog lists the quizzes a source can load.
type QuizCatalog interface {
	QuizIDs(ctx context.Context) ([]string, error)
}

// LinkStore persists quiz links and their participants. Admit and CommitSubmission must be
// atomic per link: concurrent calls on one link behave as if run one after another.
type LinkStore interface {
	CreateLink(ctx context.Context, link domain.QuizLink) error
	GetLink(ctx context.Context, linkID string) (domain.QuizLink, error)
	// Admit adds the participant unless the link is full. A participant already on the link
	// is returned unchanged with admitted=false.
	Admit(ctx context.Context, linkID string, participant domain.Participant) (link domain.QuizLink, admitted bool, err error)
	// CommitSubmission marks the student as submitted and stores the record together.
	// It fails with ErrDuplicateSubmission if the student already submitted and with
	// ErrCapacityExceeded if the student was never admitted.
	CommitSubmission(ctx context.Context, linkID string, record domain.ResultRecord) error
	ListLinksByAdmin(ctx context.Context, adminID string) ([]domain.QuizLink, error)
}

// ResultStore persists scored results.
type ResultStore interface {
	SaveResult(ctx context.Context, record domain.ResultRecord) error
	GetResult(ctx context.Context, submissionID string) (domain.ResultRecord, error)
	ListResultsByQuiz(ctx context.Context, quizID string) ([]domain.ResultRecord, error)
	ListResultsByAdmin(ctx context.Context, adminID string) ([]domain.ResultRecord, error)
	ListResults(ctx context.Context) ([]domain.ResultRecord, error)
}

// ResultPager is implemented by stores that can page a quiz's results themselves.
// Items must be ordered by submission time, then submission ID.
type ResultPager interface {
	PageResultsByQuiz(ctx context.Context, quizID string, offset, limit int) (items []domain.ResultRecord, total int, err error)
}

// AttemptRepository abstracts where live attempts are held (in-memory, Redis-backed, etc).
type AttemptRepository interface {
	// GetOrCreate returns the owner's live attempt, creating it with create if there is none.
	GetOrCreate(owner AttemptOwner, create func() *Attempt) (attempt *Attempt, created bool)
	Get(attemptID string) (*Attempt, bool)
	// Touch is called after the attempt changed.
	Touch(attempt *Attempt)
	Delete(attemptID string)
	All() []*Attempt
}

// LiveAttemptLister is implemented by attempt stores that share live attempts beyond this process.
type LiveAttemptLister interface {
	LiveAttempts(ctx context.Context) ([]AttemptView, error)
}

// EventPublisher receives domain events. Implementations must not block the caller for long.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}
