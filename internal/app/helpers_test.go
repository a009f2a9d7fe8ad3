package app_test

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
	"quizlink-service/internal/infra/memory"
)

type fixture struct {
	links    *memory.LinkStore
	results  *memory.ResultStore
	registry *app.LinkRegistry
	clock    *fakeClock
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newFixture(opts ...app.RegistryOption) *fixture {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	results := memory.NewResultStore()
	links := memory.NewLinkStore(results)
	quizzes := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": testQuiz("quiz-1", 4, 0),
		"quiz-5": testQuiz("quiz-5", 5, 5),
	}), time.Minute)

	opts = append([]app.RegistryOption{app.WithClock(clock.Now)}, opts...)
	return &fixture{
		links:    links,
		results:  results,
		registry: app.NewLinkRegistry(links, results, quizzes, opts...),
		clock:    clock,
	}
}

// testQuiz builds n four-option questions; question k's correct option is (k-1)%4.
func testQuiz(id string, n, limitSeconds int) domain.Quiz {
	quiz := domain.Quiz{ID: id, Title: "Quiz " + id, TimeLimitSeconds: limitSeconds, AnswerKey: domain.AnswerKey{}}
	for k := 1; k <= n; k++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Number: k,
			Text:   "Question",
			Options: []domain.Option{
				domain.TextOption("a"), domain.TextOption("b"), domain.TextOption("c"), domain.TextOption("d"),
			},
		})
		quiz.AnswerKey[k] = (k - 1) % 4
	}
	return quiz
}

func alice() domain.StudentIdentity {
	return domain.StudentIdentity{Name: "Alice", ClassName: "10", Section: "A"}
}

func option(n int) *int { return &n }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
