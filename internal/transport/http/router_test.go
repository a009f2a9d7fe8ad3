package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
)

func TestAdminRoutesRequireHeader(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decode(t, rr)["error"])
}

func TestGenerateLink(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/admin/generate-link", "admin@example.com", map[string]any{"quiz_id": "quiz-1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	body := decode(t, rr)
	linkID := body["link_id"].(string)
	assert.NotEmpty(t, linkID)
	assert.Equal(t, "https://quiz.example.com/quiz/"+linkID, body["link_url"])
	assert.EqualValues(t, 2, body["max_allowed"], "configured default applies")

	rr = env.do(t, http.MethodPost, "/admin/generate-link", "admin@example.com", map[string]any{"quiz_id": "quiz-1", "max_allowed": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/admin/generate-link", "admin@example.com", map[string]any{"quiz_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "quiz_not_found", decode(t, rr)["error"])

	rr = env.do(t, http.MethodGet, "/admin/quizzes", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []any{"quiz-1", "quiz-short"}, decode(t, rr)["quizzes"])

	rr = env.do(t, http.MethodGet, "/link/"+linkID, "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, decode(t, rr)["exhausted"])
}

func TestAdmitAndSubmitThroughLink(t *testing.T) {
	env := newTestEnv(t)
	linkID := env.generateLink(t, "quiz-1", 1)

	rr := env.do(t, http.MethodPost, "/link/"+linkID+"/admit", "", map[string]any{
		"studentName": "Alice", "class": "10", "section": "A",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	admission := decode(t, rr)
	assert.EqualValues(t, 600, admission["time_limit_seconds"])
	assert.NotContains(t, rr.Body.String(), "answerKey")
	assert.Len(t, admission["questions"], 4)

	rr = env.do(t, http.MethodPost, "/link/"+linkID+"/admit", "", map[string]any{"name": "Bob", "class": "10", "section": "A"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "link_full", decode(t, rr)["error"])

	submit := map[string]any{
		"student_name": "Alice", "class_name": "10", "section": "A",
		"answers": []map[string]any{
			{"questionNumber": 1, "selectedOption": "A", "timeSpent": 3.5},
			{"questionNumber": 2, "selectedOption": 1},
			{"questionNumber": 3, "selectedOption": "D"},
			{"questionNumber": 4, "selectedOption": nil, "isMarked": true},
		},
		"elapsed_seconds": 40,
	}
	rr = env.do(t, http.MethodPost, "/link/"+linkID+"/submit", "", submit)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary := decode(t, rr)["score_summary"].(map[string]any)
	assert.EqualValues(t, 2, summary["correct_answers"])
	assert.EqualValues(t, 1, summary["wrong_answers"])
	assert.EqualValues(t, 1, summary["unanswered"])
	assert.EqualValues(t, 50, summary["percentage"])
	submissionID := summary["submission_id"].(string)

	rr = env.do(t, http.MethodPost, "/link/"+linkID+"/submit", "", submit)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_submitted", decode(t, rr)["error"])

	rr = env.do(t, http.MethodGet, "/admin/submission/"+submissionID, "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	detail := decode(t, rr)
	assert.Equal(t, "Alice", detail["student_info"].(map[string]any)["student_name"])
	assert.Len(t, detail["detailed_results"], 4)

	rr = env.do(t, http.MethodGet, "/admin/submission/missing", "admin@example.com", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = env.do(t, http.MethodGet, "/admin/stats", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decode(t, rr)
	assert.EqualValues(t, 1, stats["total_links_created"])
	assert.EqualValues(t, 0, stats["active_links"])
	assert.EqualValues(t, 1, stats["total_students_served"])
	assert.Len(t, stats["recent_activity"], 1)
}

func TestSubmitRejectsUnknownStudentAndBadOption(t *testing.T) {
	env := newTestEnv(t)
	linkID := env.generateLink(t, "quiz-1", 3)

	rr := env.do(t, http.MethodPost, "/link/"+linkID+"/submit", "", map[string]any{"name": "Mallory"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = env.do(t, http.MethodPost, "/link/"+linkID+"/admit", "", map[string]any{"name": "Alice"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodPost, "/link/"+linkID+"/submit", "", map[string]any{
		"name":    "Alice",
		"answers": []map[string]any{{"questionNumber": 1, "selectedOption": "??"}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/link/"+linkID+"/admit", "", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/link/unknown/admit", "", map[string]any{"name": "Alice"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "link_not_found", decode(t, rr)["error"])
}

func TestDirectSubmitAndTeacherResults(t *testing.T) {
	env := newTestEnv(t)

	for i, pick := range []int{0, 3} {
		rr := env.do(t, http.MethodPost, "/quiz/submit", "", map[string]any{
			"quizName":    "quiz-1",
			"studentName": fmt.Sprintf("student-%d", i),
			"answers":     []map[string]any{{"questionNumber": 1, "selectedOption": pick}},
		})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	}

	rr := env.do(t, http.MethodPost, "/quiz/submit", "", map[string]any{"studentName": "x"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/teacher/results", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var report struct {
		Results       []domain.ResultRecord `json:"results"`
		TotalStudents int                   `json:"totalStudents"`
		Summary       struct {
			AverageScore int `json:"averageScore"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, 2, report.TotalStudents)
	assert.Equal(t, 13, report.Summary.AverageScore)

	rr = env.do(t, http.MethodGet, "/admin/exams", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode(t, rr)["exams"], 1)

	rr = env.do(t, http.MethodGet, "/admin/exam/quiz-1?page=2&limit=1", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	page := decode(t, rr)
	info := page["quiz_info"].(map[string]any)
	assert.EqualValues(t, 2, info["total_submissions"])
	assert.EqualValues(t, 2, info["total_pages"])
	students := page["students"].([]any)
	require.Len(t, students, 1)
	assert.EqualValues(t, 1, students[0].(map[string]any)["index"])

	rr = env.do(t, http.MethodGet, "/admin/exam/quiz-1?page=9", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr)["students"])
}

func TestExamPageNumberTooLargeIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	link := env.generateLink(t, "quiz-1", 2)
	rr := env.do(t, http.MethodPost, "/link/"+link+"/admit", "", map[string]any{"name": "Ann"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = env.do(t, http.MethodPost, "/link/"+link+"/submit", "", map[string]any{
		"name":    "Ann",
		"answers": []map[string]any{{"questionNumber": 1, "selectedOption": 0}},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = env.do(t, http.MethodGet, "/admin/exam/quiz-1?page=1106804644422573098", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Empty(t, decode(t, rr)["students"])
}

func TestLiveAttempts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.generateLink(t, "quiz-1", 2)

	rr := env.do(t, http.MethodPost, "/admin/generate-link", "other@example.com", map[string]any{"quiz_id": "quiz-1"})
	require.Equal(t, http.StatusCreated, rr.Code)
	theirs := decode(t, rr)["link_id"].(string)

	view, err := env.attempts.Begin(ctx, mine, domain.StudentIdentity{Name: "Ann", ClassName: "7", Section: "C"})
	require.NoError(t, err)
	_, err = env.attempts.Act(ctx, view.AttemptID, app.Action{Kind: app.ActionSelect, QuestionNumber: 1, Option: 2})
	require.NoError(t, err)
	_, err = env.attempts.Begin(ctx, theirs, domain.StudentIdentity{Name: "Ben"})
	require.NoError(t, err)

	rr = env.do(t, http.MethodGet, "/admin/live-attempts", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Attempts []liveAttemptRow `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Attempts, 1, "only attempts on the admin's own links")
	got := body.Attempts[0]
	assert.Equal(t, view.AttemptID, got.AttemptID)
	assert.Equal(t, mine, got.LinkID)
	assert.Equal(t, "Ann", got.StudentName)
	assert.Equal(t, "C", got.Section)
	assert.Equal(t, 1, got.Answered)
	assert.Equal(t, 25, got.PercentComplete)

	_, err = env.attempts.Submit(ctx, view.AttemptID)
	require.NoError(t, err)
	rr = env.do(t, http.MethodGet, "/admin/live-attempts", "admin@example.com", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode(t, rr)["attempts"])
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())

	env.generateLink(t, "quiz-1", 1)
	rr = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "quizlink_links_created_total"), rr.Body.String())
}

func TestParseOption(t *testing.T) {
	cases := []struct {
		raw  string
		want *int
		err  bool
	}{
		{``, nil, false},
		{`null`, nil, false},
		{`2`, ptr(2), false},
		{`-1`, nil, false},
		{`"B"`, ptr(1), false},
		{`"c"`, ptr(2), false},
		{`"3"`, ptr(3), false},
		{`""`, nil, false},
		{`"??"`, nil, true},
		{`{}`, nil, true},
	}
	for _, tc := range cases {
		got, err := parseOption(json.RawMessage(tc.raw))
		if tc.err {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func ptr(n int) *int { return &n }
