package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/domain"
)

func newLink(id string, maxAllowed int) domain.QuizLink {
	return domain.QuizLink{ID: id, AdminID: "admin@example.com", QuizID: "quiz-1", MaxAllowed: maxAllowed, CreatedAt: time.Unix(10, 0)}
}

func student(name string) domain.StudentIdentity {
	return domain.StudentIdentity{Name: name, ClassName: "10", Section: "A"}
}

func TestLinkStoreAdmitRespectsCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStore(NewResultStore())
	require.NoError(t, store.CreateLink(ctx, newLink("l1", 2)))
	require.Error(t, store.CreateLink(ctx, newLink("l1", 2)))

	_, admitted, err := store.Admit(ctx, "l1", domain.Participant{Identity: student("Alice")})
	require.NoError(t, err)
	assert.True(t, admitted)

	link, admitted, err := store.Admit(ctx, "l1", domain.Participant{Identity: student("Alice")})
	require.NoError(t, err)
	assert.False(t, admitted)
	assert.Len(t, link.Participants, 1)

	_, _, err = store.Admit(ctx, "l1", domain.Participant{Identity: student("Bob")})
	require.NoError(t, err)
	_, _, err = store.Admit(ctx, "l1", domain.Participant{Identity: student("Carol")})
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

	_, _, err = store.Admit(ctx, "missing", domain.Participant{Identity: student("Dan")})
	assert.ErrorIs(t, err, domain.ErrLinkNotFound)
}

func TestLinkStoreConcurrentAdmitsSingleSeat(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStore(NewResultStore())
	require.NoError(t, store.CreateLink(ctx, newLink("l1", 1)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted, full := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := store.Admit(ctx, "l1", domain.Participant{Identity: student(fmt.Sprintf("s%d", i))})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, domain.ErrCapacityExceeded):
				full++
			case err == nil && ok:
				admitted++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, admitted)
	assert.Equal(t, 19, full)
}

func TestLinkStoreCommitSubmissionOnce(t *testing.T) {
	ctx := context.Background()
	results := NewResultStore()
	store := NewLinkStore(results)
	require.NoError(t, store.CreateLink(ctx, newLink("l1", 2)))
	_, _, err := store.Admit(ctx, "l1", domain.Participant{Identity: student("Alice")})
	require.NoError(t, err)

	record := domain.ResultRecord{SubmissionID: "sub-1", QuizID: "quiz-1", LinkID: "l1", Student: student("Alice")}
	require.NoError(t, store.CommitSubmission(ctx, "l1", record))

	record.SubmissionID = "sub-2"
	assert.ErrorIs(t, store.CommitSubmission(ctx, "l1", record), domain.ErrDuplicateSubmission)

	stranger := domain.ResultRecord{SubmissionID: "sub-3", Student: student("Eve")}
	assert.ErrorIs(t, store.CommitSubmission(ctx, "l1", stranger), domain.ErrCapacityExceeded)
	assert.ErrorIs(t, store.CommitSubmission(ctx, "nope", stranger), domain.ErrLinkNotFound)

	link, err := store.GetLink(ctx, "l1")
	require.NoError(t, err)
	p, ok := link.Participant(student("Alice"))
	require.True(t, ok)
	assert.Equal(t, "sub-1", p.SubmissionID)

	all, err := results.ListResults(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLinkStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStore(NewResultStore())
	require.NoError(t, store.CreateLink(ctx, newLink("l1", 3)))
	link, _, err := store.Admit(ctx, "l1", domain.Participant{Identity: student("Alice")})
	require.NoError(t, err)

	link.Participants[0].SubmissionID = "tampered"
	fresh, err := store.GetLink(ctx, "l1")
	require.NoError(t, err)
	assert.Empty(t, fresh.Participants[0].SubmissionID)
}

func TestListLinksByAdmin(t *testing.T) {
	ctx := context.Background()
	store := NewLinkStore(NewResultStore())
	second := newLink("b", 1)
	second.CreatedAt = time.Unix(20, 0)
	other := newLink("c", 1)
	other.AdminID = "someone@example.com"
	require.NoError(t, store.CreateLink(ctx, second))
	require.NoError(t, store.CreateLink(ctx, newLink("a", 1)))
	require.NoError(t, store.CreateLink(ctx, other))

	links, err := store.ListLinksByAdmin(ctx, "admin@example.com")
	require.NoError(t, err)
	require.Len(t, links, 2)
	assert.Equal(t, "a", links[0].ID)
	assert.Equal(t, "b", links[1].ID)
}
