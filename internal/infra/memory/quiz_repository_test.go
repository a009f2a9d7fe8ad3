package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizlink-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	repo.Invalidate("quiz-1")
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryRejectsInvalidQuiz(t *testing.T) {
	broken := sampleQuiz()
	broken.AnswerKey = domain.AnswerKey{}
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": broken}), time.Minute)

	_, err := repo.GetQuiz(context.Background(), "quiz-1")
	if !errors.Is(err, domain.ErrInvalidQuiz) {
		t.Fatalf("expected invalid quiz, got %v", err)
	}

	_, err = repo.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStaticQuizLoaderSave(t *testing.T) {
	loader := NewStaticQuizLoader(nil)
	if err := loader.SaveQuiz(context.Background(), sampleQuiz()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ids, err := loader.QuizIDs(context.Background()); err != nil || len(ids) != 1 || ids[0] != "quiz-1" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				Number:  1,
				Text:    "What is 2 + 2?",
				Options: []domain.Option{domain.TextOption("3"), domain.TextOption("4")},
			},
		},
		AnswerKey: domain.AnswerKey{1: 1},
	}
}
