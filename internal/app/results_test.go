package app_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
	"quizlink-service/internal/infra/memory"
)

func record(id, quizID, adminID string, percentage int, at time.Time) domain.ResultRecord {
	return domain.ResultRecord{
		SubmissionID: id,
		QuizID:       quizID,
		AdminID:      adminID,
		Result:       domain.ScoredResult{Percentage: percentage, SubmittedAt: at},
	}
}

func TestSummaryForQuiz(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	agg := app.NewAggregator(results, memory.NewLinkStore(results))
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	empty, err := agg.SummaryForQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, domain.QuizSummary{QuizID: "quiz-1"}, empty)

	require.NoError(t, results.SaveResult(ctx, record("a", "quiz-1", "", 50, base.Add(time.Hour))))
	require.NoError(t, results.SaveResult(ctx, record("b", "quiz-1", "", 75, base)))
	require.NoError(t, results.SaveResult(ctx, record("c", "quiz-1", "", 100, base.Add(2*time.Hour))))
	require.NoError(t, results.SaveResult(ctx, record("d", "quiz-2", "", 0, base)))

	summary, err := agg.SummaryForQuiz(ctx, "quiz-1")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalSubmissions)
	assert.Equal(t, 75, summary.AverageScore)
	assert.Equal(t, base, summary.EarliestSubmission)
	assert.Equal(t, base.Add(2*time.Hour), summary.LatestSubmission)

	quizzes, err := agg.ListQuizzes(ctx)
	require.NoError(t, err)
	require.Len(t, quizzes, 2)
	assert.Equal(t, "quiz-1", quizzes[0].QuizID)
	assert.Equal(t, "quiz-2", quizzes[1].QuizID)
	assert.Equal(t, 1, quizzes[1].TotalSubmissions)
}

func TestListQuizzes(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	agg := app.NewAggregator(results, memory.NewLinkStore(results))
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	quizzes, err := agg.ListQuizzes(ctx)
	require.NoError(t, err)
	assert.Empty(t, quizzes)

	require.NoError(t, results.SaveResult(ctx, record("a1", "a", "", 40, base)))
	require.NoError(t, results.SaveResult(ctx, record("b1", "b", "", 60, base.Add(-time.Hour))))
	require.NoError(t, results.SaveResult(ctx, record("b2", "b", "", 80, base.Add(time.Hour))))
	require.NoError(t, results.SaveResult(ctx, record("c1", "c", "", 90, base)))

	quizzes, err = agg.ListQuizzes(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(quizzes))
	for _, q := range quizzes {
		ids = append(ids, q.QuizID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids, "newest submission first, then quiz id")
	assert.Equal(t, 2, quizzes[0].TotalSubmissions)
	assert.Equal(t, 70, quizzes[0].AverageScore)
	assert.Equal(t, base.Add(time.Hour), quizzes[0].LatestSubmission)
}

func TestPageOfResults(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	agg := app.NewAggregator(results, memory.NewLinkStore(results))
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 40; i++ {
		require.NoError(t, results.SaveResult(ctx, record(fmt.Sprintf("r%02d", i), "quiz-1", "", i, base.Add(time.Duration(i)*time.Minute))))
	}

	page, err := agg.PageOfResults(ctx, "quiz-1", 3, 50)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 40, page.TotalItems)

	page, err = agg.PageOfResults(ctx, "quiz-1", 2, 15)
	require.NoError(t, err)
	require.Len(t, page.Items, 15)
	assert.Equal(t, "r15", page.Items[0].SubmissionID)
	assert.Equal(t, 3, page.TotalPages)

	page, err = agg.PageOfResults(ctx, "quiz-1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, app.DefaultPageSize, page.PageSize)
	assert.Len(t, page.Items, 40)

	page, err = agg.PageOfResults(ctx, "quiz-1", 1, 10000)
	require.NoError(t, err)
	assert.Equal(t, app.MaxPageSize, page.PageSize)

	page, err = agg.PageOfResults(ctx, "quiz-1", 1106804644422573098, 50)
	require.NoError(t, err)
	assert.Empty(t, page.Items, "a page number large enough to overflow the offset is still past the end")
	assert.Equal(t, 40, page.TotalItems)

	page, err = agg.PageOfResults(ctx, "quiz-1", math.MaxInt, 15)
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = agg.PageOfResults(ctx, "unknown", 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 0, page.TotalItems)
}

func TestSummaryForAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	agg := app.NewAggregator(f.results, f.links)

	full, err := f.registry.CreateLink(ctx, "admin@example.com", "quiz-1", 1)
	require.NoError(t, err)
	open, err := f.registry.CreateLink(ctx, "admin@example.com", "quiz-1", 5)
	require.NoError(t, err)
	_, err = f.registry.CreateLink(ctx, "other@example.com", "quiz-1", 5)
	require.NoError(t, err)

	_, err = f.registry.Admit(ctx, full.ID, alice())
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = f.registry.Admit(ctx, open.ID, domain.StudentIdentity{Name: fmt.Sprintf("s%d", i)})
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Minute)
		_, err = f.registry.RecordSubmission(ctx, open.ID, domain.StudentIdentity{Name: fmt.Sprintf("s%d", i)}, domain.Submission{})
		require.NoError(t, err)
	}

	summary, err := agg.SummaryForAdmin(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalLinksCreated)
	assert.Equal(t, 1, summary.ActiveLinks)
	assert.Equal(t, 4, summary.TotalStudentsServed)
	require.Len(t, summary.RecentActivity, 3)
	assert.Equal(t, "s2", summary.RecentActivity[0].Student.Name, "most recent first")
}

func TestAllResultsAndDetail(t *testing.T) {
	ctx := context.Background()
	results := memory.NewResultStore()
	agg := app.NewAggregator(results, memory.NewLinkStore(results))
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	report, err := agg.AllResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TotalStudents)
	assert.Equal(t, 0, report.AverageScore)

	require.NoError(t, results.SaveResult(ctx, record("a", "quiz-1", "", 33, base)))
	require.NoError(t, results.SaveResult(ctx, record("b", "quiz-2", "", 34, base)))

	report, err = agg.AllResults(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalStudents)
	assert.Equal(t, 34, report.AverageScore)

	detail, err := agg.Detail(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "quiz-2", detail.QuizID)
	_, err = agg.Detail(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
}
