package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
	"quizlink-service/internal/infra/memory"
	"quizlink-service/internal/metrics"
)

type testEnv struct {
	engine   *gin.Engine
	registry *app.LinkRegistry
	attempts *app.AttemptService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	results := memory.NewResultStore()
	links := memory.NewLinkStore(results)
	loader := memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1":     sampleQuiz("quiz-1", 0),
		"quiz-short": sampleQuiz("quiz-short", 2),
	})
	quizzes := memory.NewQuizRepository(loader, time.Minute)

	registry := app.NewLinkRegistry(links, results, quizzes, app.WithMetrics(metrics.New(reg)))
	aggregator := app.NewAggregator(results, links)
	attempts := app.NewAttemptService(memory.NewAttemptStore(), registry, logger)

	engine := NewRouter(
		RouterConfig{AllowedOrigins: []string{"*"}, Logger: logger, Metrics: reg},
		NewAdminService(registry, aggregator, attempts, loader, "https://quiz.example.com/", 2),
		NewStudentService(registry, aggregator),
		NewWSHandler(attempts, logger),
	)
	return &testEnv{engine: engine, registry: registry, attempts: attempts}
}

// sampleQuiz has four questions; the correct option of question k is (k-1)%4.
func sampleQuiz(id string, limitSeconds int) domain.Quiz {
	quiz := domain.Quiz{ID: id, TimeLimitSeconds: limitSeconds, AnswerKey: domain.AnswerKey{}}
	for k := 1; k <= 4; k++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			Number: k,
			Text:   "Question",
			Options: []domain.Option{
				domain.TextOption("a"), domain.TextOption("b"), domain.TextOption("c"), domain.ImageOption("d.png"),
			},
		})
		quiz.AnswerKey[k] = (k - 1) % 4
	}
	return quiz
}

func (e *testEnv) do(t *testing.T, method, path, admin string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin != "" {
		req.Header.Set("X-Admin-Email", admin)
	}
	rr := httptest.NewRecorder()
	e.engine.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func (e *testEnv) generateLink(t *testing.T, quizID string, maxAllowed int) string {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/admin/generate-link", "admin@example.com", map[string]any{
		"quiz_id":     quizID,
		"max_allowed": maxAllowed,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode(t, rr)["link_id"].(string)
}
