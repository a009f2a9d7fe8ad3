package domain

import (
	"strconv"
	"strings"
	"time"
)

// StudentIdentity distinguishes a student within a link. Equality is exact on all three fields.
type StudentIdentity struct {
	Name      string `json:"name"`
	ClassName string `json:"className"`
	Section   string `json:"section"`
}

// Key is a stable string form of the identity, usable as a map or unique-index key.
// Fields are length-prefixed, so no choice of characters lets two identities share a key.
func (s StudentIdentity) Key() string {
	var b strings.Builder
	for _, field := range []string{s.Name, s.ClassName, s.Section} {
		b.WriteString(strconv.Itoa(len(field)))
		b.WriteByte(':')
		b.WriteString(field)
	}
	return b.String()
}

// Validate requires a non-blank name.
func (s StudentIdentity) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrInvalidIdentity
	}
	return nil
}

// Participant is a student admitted to a link.
type Participant struct {
	Identity     StudentIdentity `json:"identity"`
	AdmittedAt   time.Time       `json:"admittedAt"`
	SubmissionID string          `json:"submissionId,omitempty"`
}

// Submitted reports whether the participant already has a stored result.
func (p Participant) Submitted() bool {
	return p.SubmissionID != ""
}

// QuizLink is a capacity-bounded, shareable token granting access to one quiz.
type QuizLink struct {
	ID           string        `json:"id"`
	AdminID      string        `json:"adminId"`
	QuizID       string        `json:"quizId"`
	MaxAllowed   int           `json:"maxAllowed"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// Exhausted reports whether no further distinct students can be admitted.
func (l QuizLink) Exhausted() bool {
	return len(l.Participants) >= l.MaxAllowed
}

// Participant finds an admitted student by exact identity.
func (l QuizLink) Participant(identity StudentIdentity) (Participant, bool) {
	for _, p := range l.Participants {
		if p.Identity == identity {
			return p, true
		}
	}
	return Participant{}, false
}
