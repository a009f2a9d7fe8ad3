package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/domain"
)

func result(id, quizID, adminID string, at int64) domain.ResultRecord {
	return domain.ResultRecord{
		SubmissionID: id,
		QuizID:       quizID,
		AdminID:      adminID,
		Result:       domain.ScoredResult{SubmittedAt: time.Unix(at, 0)},
	}
}

func TestResultStoreOrdersBySubmissionTime(t *testing.T) {
	ctx := context.Background()
	store := NewResultStore()
	require.NoError(t, store.SaveResult(ctx, result("c", "q1", "a1", 30)))
	require.NoError(t, store.SaveResult(ctx, result("b", "q1", "", 10)))
	require.NoError(t, store.SaveResult(ctx, result("a", "q1", "a1", 10)))
	require.NoError(t, store.SaveResult(ctx, result("d", "q2", "a1", 5)))
	require.Error(t, store.SaveResult(ctx, result("a", "q1", "", 1)))

	byQuiz, err := store.ListResultsByQuiz(ctx, "q1")
	require.NoError(t, err)
	ids := make([]string, 0, len(byQuiz))
	for _, r := range byQuiz {
		ids = append(ids, r.SubmissionID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	byAdmin, err := store.ListResultsByAdmin(ctx, "a1")
	require.NoError(t, err)
	assert.Len(t, byAdmin, 3)

	got, err := store.GetResult(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, "q2", got.QuizID)

	_, err = store.GetResult(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrSubmissionNotFound)
}
