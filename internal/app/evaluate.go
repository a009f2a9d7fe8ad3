package app

import (
	"time"

	"quizlink-service/internal/domain"
)

// Evaluate scores a submission against the quiz's answer key. Entries for question numbers
// the quiz does not contain are ignored; when a number appears twice the last entry wins.
// SubmittedAt is taken from the submission, falling back to now.
func Evaluate(quiz domain.Quiz, submission domain.Submission, now time.Time) (domain.ScoredResult, error) {
	questions := quiz.Ordered()
	if len(questions) == 0 {
		return domain.ScoredResult{}, domain.ErrEmptyQuiz
	}

	entries := make(map[int]domain.AnswerEntry, len(submission.Entries))
	for _, entry := range submission.Entries {
		entries[entry.QuestionNumber] = entry
	}

	result := domain.ScoredResult{
		Questions:      make([]domain.QuestionResult, 0, len(questions)),
		TotalQuestions: len(questions),
		SubmittedAt:    submission.SubmittedAt,
	}
	if result.SubmittedAt.IsZero() {
		result.SubmittedAt = now
	}

	for _, q := range questions {
		entry, answered := entries[q.Number]
		correct, keyed := quiz.AnswerKey[q.Number]
		if !keyed {
			correct = -1
		}

		qr := domain.QuestionResult{
			QuestionNumber:   q.Number,
			CorrectOption:    correct,
			IsMarked:         entry.IsMarked,
			TimeSpentSeconds: entry.TimeSpentSeconds,
		}
		switch {
		case !answered || entry.SelectedOption == nil:
			qr.Verdict = domain.VerdictUnanswered
			result.UnansweredCount++
		case *entry.SelectedOption == correct:
			qr.Verdict = domain.VerdictCorrect
			result.CorrectCount++
		default:
			qr.Verdict = domain.VerdictWrong
			result.WrongCount++
		}
		if answered && entry.SelectedOption != nil {
			selected := *entry.SelectedOption
			qr.SelectedOption = &selected
		}
		result.Questions = append(result.Questions, qr)
	}

	result.Percentage = roundHalfUp(result.CorrectCount*100, result.TotalQuestions)
	return result, nil
}

// roundHalfUp divides two non-negative integers, rounding halves up.
func roundHalfUp(num, den int) int {
	if den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}
