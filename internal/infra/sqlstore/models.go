package sqlstore

import (
	"time"

	"github.com/uptrace/bun"

	"quizlink-service/internal/domain"
)

type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID   string      `bun:"id,pk"`
	Data domain.Quiz `bun:"data,type:jsonb"`
}

type linkRow struct {
	bun.BaseModel `bun:"table:quiz_links,alias:ql"`

	ID               string    `bun:"id,pk"`
	AdminID          string    `bun:"admin_id,notnull"`
	QuizID           string    `bun:"quiz_id,notnull"`
	MaxAllowed       int       `bun:"max_allowed,notnull"`
	ParticipantCount int       `bun:"participant_count,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

type participantRow struct {
	bun.BaseModel `bun:"table:link_participants,alias:lp"`

	LinkID       string    `bun:"link_id,pk"`
	StudentKey   string    `bun:"student_key,pk"`
	Name         string    `bun:"name,notnull"`
	ClassName    string    `bun:"class_name,notnull"`
	Section      string    `bun:"section,notnull"`
	AdmittedAt   time.Time `bun:"admitted_at,notnull"`
	SubmissionID string    `bun:"submission_id,nullzero"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	SubmissionID    string                  `bun:"submission_id,pk"`
	QuizID          string                  `bun:"quiz_id,notnull"`
	LinkID          string                  `bun:"link_id,nullzero"`
	AdminID         string                  `bun:"admin_id,nullzero"`
	StudentName     string                  `bun:"student_name,notnull"`
	ClassName       string                  `bun:"class_name,notnull"`
	Section         string                  `bun:"section,notnull"`
	Percentage      int                     `bun:"percentage,notnull"`
	Correct         int                     `bun:"correct,notnull"`
	Wrong           int                     `bun:"wrong,notnull"`
	Unanswered      int                     `bun:"unanswered,notnull"`
	Total           int                     `bun:"total,notnull"`
	ElapsedSeconds  int                     `bun:"elapsed_seconds,notnull"`
	AutoSubmitted   bool                    `bun:"auto_submitted,notnull"`
	SubmittedAt     time.Time               `bun:"submitted_at,notnull"`
	Detail          []domain.QuestionResult `bun:"detail,type:jsonb"`
}

func newParticipantRow(linkID string, p domain.Participant) participantRow {
	return participantRow{
		LinkID:       linkID,
		StudentKey:   p.Identity.Key(),
		Name:         p.Identity.Name,
		ClassName:    p.Identity.ClassName,
		Section:      p.Identity.Section,
		AdmittedAt:   p.AdmittedAt.UTC(),
		SubmissionID: p.SubmissionID,
	}
}

func (r participantRow) toDomain() domain.Participant {
	return domain.Participant{
		Identity:     domain.StudentIdentity{Name: r.Name, ClassName: r.ClassName, Section: r.Section},
		AdmittedAt:   r.AdmittedAt.UTC(),
		SubmissionID: r.SubmissionID,
	}
}

func (r linkRow) toDomain(participants []participantRow) domain.QuizLink {
	link := domain.QuizLink{
		ID:           r.ID,
		AdminID:      r.AdminID,
		QuizID:       r.QuizID,
		MaxAllowed:   r.MaxAllowed,
		CreatedAt:    r.CreatedAt.UTC(),
		Participants: make([]domain.Participant, 0, len(participants)),
	}
	for _, p := range participants {
		link.Participants = append(link.Participants, p.toDomain())
	}
	return link
}

func newResultRow(rec domain.ResultRecord) resultRow {
	return resultRow{
		SubmissionID:   rec.SubmissionID,
		QuizID:         rec.QuizID,
		LinkID:         rec.LinkID,
		AdminID:        rec.AdminID,
		StudentName:    rec.Student.Name,
		ClassName:      rec.Student.ClassName,
		Section:        rec.Student.Section,
		Percentage:     rec.Result.Percentage,
		Correct:        rec.Result.CorrectCount,
		Wrong:          rec.Result.WrongCount,
		Unanswered:     rec.Result.UnansweredCount,
		Total:          rec.Result.TotalQuestions,
		ElapsedSeconds: rec.ElapsedSeconds,
		AutoSubmitted:  rec.AutoSubmitted,
		SubmittedAt:    rec.Result.SubmittedAt.UTC(),
		Detail:         rec.Result.Questions,
	}
}

func (r resultRow) toDomain() domain.ResultRecord {
	return domain.ResultRecord{
		SubmissionID:   r.SubmissionID,
		QuizID:         r.QuizID,
		LinkID:         r.LinkID,
		AdminID:        r.AdminID,
		Student:        domain.StudentIdentity{Name: r.StudentName, ClassName: r.ClassName, Section: r.Section},
		ElapsedSeconds: r.ElapsedSeconds,
		AutoSubmitted:  r.AutoSubmitted,
		Result: domain.ScoredResult{
			Questions:       r.Detail,
			CorrectCount:    r.Correct,
			WrongCount:      r.Wrong,
			UnansweredCount: r.Unanswered,
			TotalQuestions:  r.Total,
			Percentage:      r.Percentage,
			SubmittedAt:     r.SubmittedAt.UTC(),
		},
	}
}
