package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/domain"
)

func fourQuestionQuiz() domain.Quiz {
	questions := make([]domain.Question, 0, 4)
	for n := 1; n <= 4; n++ {
		questions = append(questions, domain.Question{
			Number: n,
			Text:   "Q",
			Options: []domain.Option{
				domain.TextOption("a"), domain.TextOption("b"), domain.TextOption("c"), domain.TextOption("d"),
			},
		})
	}
	return domain.Quiz{
		ID:        "quiz-4",
		Questions: questions,
		AnswerKey: domain.AnswerKey{1: 0, 2: 1, 3: 2, 4: 3},
	}
}

func pick(n int) *int { return &n }

func TestEvaluateCountsVerdicts(t *testing.T) {
	sub := domain.Submission{
		Entries: []domain.AnswerEntry{
			{QuestionNumber: 1, SelectedOption: pick(0)},
			{QuestionNumber: 2, SelectedOption: pick(1), IsMarked: true},
			{QuestionNumber: 3, SelectedOption: pick(3)},
		},
	}
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	res, err := Evaluate(fourQuestionQuiz(), sub, now)
	require.NoError(t, err)

	assert.Equal(t, 2, res.CorrectCount)
	assert.Equal(t, 1, res.WrongCount)
	assert.Equal(t, 1, res.UnansweredCount)
	assert.Equal(t, 4, res.TotalQuestions)
	assert.Equal(t, 50, res.Percentage)
	assert.Equal(t, now, res.SubmittedAt)

	require.Len(t, res.Questions, 4)
	assert.Equal(t, domain.VerdictCorrect, res.Questions[0].Verdict)
	assert.True(t, res.Questions[1].IsMarked)
	assert.Equal(t, domain.VerdictWrong, res.Questions[2].Verdict)
	assert.Equal(t, 2, res.Questions[2].CorrectOption)
	assert.Equal(t, domain.VerdictUnanswered, res.Questions[3].Verdict)
	assert.Nil(t, res.Questions[3].SelectedOption)
}

func TestEvaluateIgnoresUnknownAndKeepsLastDuplicate(t *testing.T) {
	sub := domain.Submission{
		Entries: []domain.AnswerEntry{
			{QuestionNumber: 99, SelectedOption: pick(0)},
			{QuestionNumber: 1, SelectedOption: pick(2)},
			{QuestionNumber: 1, SelectedOption: pick(0)},
		},
		SubmittedAt: time.Unix(100, 0),
	}

	res, err := Evaluate(fourQuestionQuiz(), sub, time.Unix(200, 0))
	require.NoError(t, err)

	assert.Equal(t, 1, res.CorrectCount)
	assert.Equal(t, 3, res.UnansweredCount)
	assert.Equal(t, 4, res.CorrectCount+res.WrongCount+res.UnansweredCount)
	assert.Equal(t, 25, res.Percentage)
	assert.Equal(t, time.Unix(100, 0), res.SubmittedAt)
}

func TestEvaluateEmptyQuiz(t *testing.T) {
	_, err := Evaluate(domain.Quiz{ID: "none"}, domain.Submission{}, time.Now())
	assert.ErrorIs(t, err, domain.ErrEmptyQuiz)
}

func TestRoundHalfUp(t *testing.T) {
	cases := []struct {
		num, den, want int
	}{
		{100, 3, 33},
		{200, 3, 67},
		{100, 8, 13},
		{0, 5, 0},
		{500, 5, 100},
		{10, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, roundHalfUp(tc.num, tc.den), "%d/%d", tc.num, tc.den)
	}
}
