package domain

import "time"

// AnswerEntry is one question's frozen state at submit time. A nil SelectedOption means unanswered.
type AnswerEntry struct {
	QuestionNumber   int  `json:"questionNumber"`
	SelectedOption   *int `json:"selectedOption,omitempty"`
	IsMarked         bool `json:"isMarked"`
	TimeSpentSeconds int  `json:"timeSpentSeconds"`
}

// Submission is the immutable input to evaluation.
type Submission struct {
	QuizID         string        `json:"quizId"`
	Entries        []AnswerEntry `json:"entries"`
	ElapsedSeconds int           `json:"elapsedSeconds"`
	AutoSubmitted  bool          `json:"autoSubmitted"`
	SubmittedAt    time.Time     `json:"submittedAt"`
}

// Verdict is the per-question outcome of evaluation.
type Verdict string

const (
	VerdictCorrect    Verdict = "CORRECT"
	VerdictWrong      Verdict = "WRONG"
	VerdictUnanswered Verdict = "UNANSWERED"
)

// QuestionResult is the scored outcome of a single question.
type QuestionResult struct {
	QuestionNumber   int     `json:"questionNumber"`
	SelectedOption   *int    `json:"selectedOption,omitempty"`
	CorrectOption    int     `json:"correctOption"`
	Verdict          Verdict `json:"verdict"`
	IsMarked         bool    `json:"isMarked"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
}

// ScoredResult is the output of evaluation.
type ScoredResult struct {
	Questions       []QuestionResult `json:"questions"`
	CorrectCount    int              `json:"correctCount"`
	WrongCount      int              `json:"wrongCount"`
	UnansweredCount int              `json:"unansweredCount"`
	TotalQuestions  int              `json:"totalQuestions"`
	Percentage      int              `json:"percentage"`
	SubmittedAt     time.Time        `json:"submittedAt"`
}

// ScoreSummary is the totals part of a result, returned to the submitting student.
type ScoreSummary struct {
	SubmissionID    string `json:"submissionId"`
	CorrectCount    int    `json:"correctCount"`
	WrongCount      int    `json:"wrongCount"`
	UnansweredCount int    `json:"unansweredCount"`
	TotalQuestions  int    `json:"totalQuestions"`
	Percentage      int    `json:"percentage"`
}

// ResultRecord is a persisted scored result.
type ResultRecord struct {
	SubmissionID   string          `json:"submissionId"`
	QuizID         string          `json:"quizId"`
	LinkID         string          `json:"linkId,omitempty"`
	AdminID        string          `json:"adminId,omitempty"`
	Student        StudentIdentity `json:"student"`
	ElapsedSeconds int             `json:"elapsedSeconds"`
	AutoSubmitted  bool            `json:"autoSubmitted"`
	Result         ScoredResult    `json:"result"`
}

// Summary extracts the score totals.
func (r ResultRecord) Summary() ScoreSummary {
	return ScoreSummary{
		SubmissionID:    r.SubmissionID,
		CorrectCount:    r.Result.CorrectCount,
		WrongCount:      r.Result.WrongCount,
		UnansweredCount: r.Result.UnansweredCount,
		TotalQuestions:  r.Result.TotalQuestions,
		Percentage:      r.Result.Percentage,
	}
}

// QuizSummary is the per-quiz rollup.
type QuizSummary struct {
	QuizID             string    `json:"quizId"`
	TotalSubmissions   int       `json:"totalSubmissions"`
	AverageScore       int       `json:"averageScore"`
	EarliestSubmission time.Time `json:"earliestSubmission"`
	LatestSubmission   time.Time `json:"latestSubmission"`
}

// AdminSummary is the per-admin rollup.
type AdminSummary struct {
	AdminID             string         `json:"adminId"`
	TotalLinksCreated   int            `json:"totalLinksCreated"`
	ActiveLinks         int            `json:"activeLinks"`
	TotalStudentsServed int            `json:"totalStudentsServed"`
	RecentActivity      []ResultRecord `json:"recentActivity"`
}

// ResultPage is one page of a quiz's results.
type ResultPage struct {
	Items      []ResultRecord `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
	TotalItems int            `json:"totalItems"`
}
