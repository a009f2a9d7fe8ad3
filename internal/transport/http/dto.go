package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
	"quizlink-service/internal/quizfile"
)

// identityRequest accepts the student identity under every spelling clients send.
type identityRequest struct {
	StudentName      string `json:"student_name"`
	StudentNameCamel string `json:"studentName"`
	Name             string `json:"name"`
	ClassName        string `json:"class_name"`
	ClassNameCamel   string `json:"className"`
	Class            string `json:"class"`
	Section          string `json:"section"`
}

func (r identityRequest) identity() domain.StudentIdentity {
	return domain.StudentIdentity{
		Name:      strings.TrimSpace(lo.CoalesceOrEmpty(r.StudentName, r.StudentNameCamel, r.Name)),
		ClassName: strings.TrimSpace(lo.CoalesceOrEmpty(r.ClassName, r.ClassNameCamel, r.Class)),
		Section:   strings.TrimSpace(r.Section),
	}
}

type answerRequest struct {
	QuestionNumber      int             `json:"questionNumber"`
	QuestionNumberSnake int             `json:"question_number"`
	SelectedOption      json.RawMessage `json:"selectedOption"`
	SelectedOptionSnake json.RawMessage `json:"selected_option"`
	IsMarked            bool            `json:"isMarked"`
	TimeSpent           float64         `json:"timeSpent"`
	TimeSpentSeconds    float64         `json:"timeSpentSeconds"`
}

func (r answerRequest) entry() (domain.AnswerEntry, error) {
	raw := r.SelectedOption
	if len(raw) == 0 {
		raw = r.SelectedOptionSnake
	}
	selected, err := parseOption(raw)
	if err != nil {
		return domain.AnswerEntry{}, err
	}
	return domain.AnswerEntry{
		QuestionNumber:   lo.CoalesceOrEmpty(r.QuestionNumber, r.QuestionNumberSnake),
		SelectedOption:   selected,
		IsMarked:         r.IsMarked,
		TimeSpentSeconds: int(lo.CoalesceOrEmpty(r.TimeSpentSeconds, r.TimeSpent)),
	}, nil
}

// parseOption reads an option as a zero-based index or a letter. Null, empty and negative
// values mean the question was left unanswered.
func parseOption(raw json.RawMessage) (*int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		if n < 0 {
			return nil, nil
		}
		return &n, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: selected option %s", errBadRequest, raw)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if idx, ok := quizfile.LetterIndex(s); ok {
		return &idx, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return &n, nil
	}
	return nil, fmt.Errorf("%w: selected option %q", errBadRequest, s)
}

type submitRequest struct {
	identityRequest
	QuizID         string          `json:"quiz_id"`
	QuizIDCamel    string          `json:"quizId"`
	QuizName       string          `json:"quizName"`
	Answers        []answerRequest `json:"answers"`
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	ElapsedCamel   float64         `json:"elapsedSeconds"`
	AutoSubmitted  bool            `json:"auto_submitted"`
	AutoCamel      bool            `json:"autoSubmitted"`
}

func (r submitRequest) quizID() string {
	return strings.TrimSpace(lo.CoalesceOrEmpty(r.QuizID, r.QuizIDCamel, r.QuizName))
}

func (r submitRequest) submission(quizID string) (domain.Submission, error) {
	entries := make([]domain.AnswerEntry, 0, len(r.Answers))
	for _, a := range r.Answers {
		entry, err := a.entry()
		if err != nil {
			return domain.Submission{}, err
		}
		entries = append(entries, entry)
	}
	return domain.Submission{
		QuizID:         quizID,
		Entries:        entries,
		ElapsedSeconds: int(lo.CoalesceOrEmpty(r.ElapsedSeconds, r.ElapsedCamel)),
		AutoSubmitted:  r.AutoSubmitted || r.AutoCamel,
	}, nil
}

type generateLinkRequest struct {
	QuizID     string `json:"quiz_id"`
	QuizIDAlt  string `json:"quiz_json_file"`
	MaxAllowed *int   `json:"max_allowed"`
}

type linkResponse struct {
	LinkID     string `json:"link_id"`
	LinkURL    string `json:"link_url"`
	QuizID     string `json:"quiz_id"`
	MaxAllowed int    `json:"max_allowed"`
}

type linkInfoResponse struct {
	LinkID       string    `json:"link_id"`
	QuizID       string    `json:"quiz_id"`
	MaxAllowed   int       `json:"max_allowed"`
	Participants int       `json:"participants"`
	Exhausted    bool      `json:"exhausted"`
	CreatedAt    time.Time `json:"created_at"`
}

func newLinkInfo(link domain.QuizLink) linkInfoResponse {
	return linkInfoResponse{
		LinkID:       link.ID,
		QuizID:       link.QuizID,
		MaxAllowed:   link.MaxAllowed,
		Participants: len(link.Participants),
		Exhausted:    link.Exhausted(),
		CreatedAt:    link.CreatedAt,
	}
}

type admissionResponse struct {
	QuizID           string            `json:"quiz_id"`
	LinkID           string            `json:"link_id"`
	Title            string            `json:"title,omitempty"`
	TimeLimitSeconds int               `json:"time_limit_seconds"`
	Questions        []domain.Question `json:"questions"`
}

func newAdmission(a app.Admission) admissionResponse {
	return admissionResponse{
		QuizID:           a.Quiz.ID,
		LinkID:           a.Link.ID,
		Title:            a.Quiz.Title,
		TimeLimitSeconds: a.TimeLimitSeconds,
		Questions:        a.Quiz.Questions,
	}
}

type scoreSummaryResponse struct {
	SubmissionID   string `json:"submission_id,omitempty"`
	Score          int    `json:"score"`
	Percentage     int    `json:"percentage"`
	TotalQuestions int    `json:"total_questions"`
	CorrectAnswers int    `json:"correct_answers"`
	WrongAnswers   int    `json:"wrong_answers"`
	Unanswered     int    `json:"unanswered"`
}

func newScoreSummary(s domain.ScoreSummary) scoreSummaryResponse {
	return scoreSummaryResponse{
		SubmissionID:   s.SubmissionID,
		Score:          s.CorrectCount,
		Percentage:     s.Percentage,
		TotalQuestions: s.TotalQuestions,
		CorrectAnswers: s.CorrectCount,
		WrongAnswers:   s.WrongCount,
		Unanswered:     s.UnansweredCount,
	}
}

type studentRow struct {
	Index            int       `json:"index"`
	SubmissionID     string    `json:"submission_id"`
	StudentName      string    `json:"student_name"`
	ClassName        string    `json:"class_name"`
	Section          string    `json:"section"`
	QuizID           string    `json:"quiz_id"`
	LinkID           string    `json:"link_id,omitempty"`
	Score            int       `json:"score"`
	Percentage       int       `json:"percentage"`
	TotalQuestions   int       `json:"total_questions"`
	CorrectAnswers   int       `json:"correct_answers"`
	WrongAnswers     int       `json:"wrong_answers"`
	Unanswered       int       `json:"unanswered"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	AutoSubmitted    bool      `json:"auto_submitted"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

func newStudentRows(records []domain.ResultRecord, firstIndex int) []studentRow {
	return lo.Map(records, func(r domain.ResultRecord, i int) studentRow {
		return studentRow{
			Index:            firstIndex + i,
			SubmissionID:     r.SubmissionID,
			StudentName:      r.Student.Name,
			ClassName:        r.Student.ClassName,
			Section:          r.Student.Section,
			QuizID:           r.QuizID,
			LinkID:           r.LinkID,
			Score:            r.Result.CorrectCount,
			Percentage:       r.Result.Percentage,
			TotalQuestions:   r.Result.TotalQuestions,
			CorrectAnswers:   r.Result.CorrectCount,
			WrongAnswers:     r.Result.WrongCount,
			Unanswered:       r.Result.UnansweredCount,
			TimeSpentSeconds: r.ElapsedSeconds,
			AutoSubmitted:    r.AutoSubmitted,
			SubmittedAt:      r.Result.SubmittedAt,
		}
	})
}

type adminStatsResponse struct {
	AdminEmail          string       `json:"admin_email"`
	TotalLinksCreated   int          `json:"total_links_created"`
	ActiveLinks         int          `json:"active_links"`
	TotalStudentsServed int          `json:"total_students_served"`
	RecentActivity      []studentRow `json:"recent_activity"`
}

type examItem struct {
	QuizID           string    `json:"quiz_id"`
	TotalSubmissions int       `json:"total_submissions"`
	AverageScore     int       `json:"average_score"`
	FirstSubmission  time.Time `json:"first_submission"`
	LatestSubmission time.Time `json:"latest_submission"`
}

type quizInfo struct {
	QuizID           string `json:"quiz_id"`
	TotalSubmissions int    `json:"total_submissions"`
	AverageScore     int    `json:"average_score"`
	Page             int    `json:"page"`
	Limit            int    `json:"limit"`
	TotalPages       int    `json:"total_pages"`
}

type studentInfo struct {
	SubmissionID     string    `json:"submission_id"`
	StudentName      string    `json:"student_name"`
	ClassName        string    `json:"class_name"`
	Section          string    `json:"section"`
	QuizID           string    `json:"quiz_id"`
	SubmittedAt      time.Time `json:"submitted_at"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	AutoSubmitted    bool      `json:"auto_submitted"`
}

type liveAttemptRow struct {
	AttemptID        string `json:"attempt_id"`
	LinkID           string `json:"link_id"`
	QuizID           string `json:"quiz_id"`
	StudentName      string `json:"student_name"`
	ClassName        string `json:"class_name"`
	Section          string `json:"section"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Answered         int    `json:"answered"`
	Marked           int    `json:"marked"`
	PercentComplete  int    `json:"percent_complete"`
}

func newLiveAttemptRow(v app.AttemptView) liveAttemptRow {
	return liveAttemptRow{
		AttemptID:        v.AttemptID,
		LinkID:           v.LinkID,
		QuizID:           v.QuizID,
		StudentName:      v.Student.Name,
		ClassName:        v.Student.ClassName,
		Section:          v.Student.Section,
		RemainingSeconds: v.RemainingSeconds,
		Answered:         v.Progress.Answered,
		Marked:           v.Progress.Marked,
		PercentComplete:  v.Progress.PercentComplete,
	}
}
