package domain

import "errors"

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrLinkNotFound is returned for an unknown link token.
	ErrLinkNotFound = errors.New("quiz link not found")
	// ErrSubmissionNotFound is returned when a stored result does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrAttemptNotFound is returned when a live attempt has ended or never existed.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuestionNotFound indicates a question number outside the quiz.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrCapacityExceeded means the link is full, or the student was never admitted to it.
	ErrCapacityExceeded = errors.New("quiz link has reached its participant limit")
	// ErrDuplicateSubmission means the student already submitted against this link.
	ErrDuplicateSubmission = errors.New("submission already recorded for this student")

	// ErrInvalidState is a sequencing defect, such as submitting an attempt that never started.
	ErrInvalidState = errors.New("invalid attempt state")

	// ErrEmptyQuiz is returned for a quiz without questions.
	ErrEmptyQuiz = errors.New("quiz has no questions")
	// ErrInvalidQuiz wraps content validation failures.
	ErrInvalidQuiz = errors.New("invalid quiz content")

	ErrInvalidCapacity  = errors.New("max allowed must be at least 1")
	ErrInvalidIdentity  = errors.New("student name is required")
	ErrOptionOutOfRange = errors.New("option index out of range")
)

// IsNotFound reports whether err is one of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrLinkNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrQuestionNotFound)
}
