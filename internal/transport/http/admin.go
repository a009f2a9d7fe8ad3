package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"quizlink-service/internal/app"
	"quizlink-service/internal/domain"
)

const adminKey = "admin_id"

// AdminService serves link generation and the admin dashboards.
type AdminService struct {
	registry          *app.LinkRegistry
	aggregator        *app.Aggregator
	attempts          *app.AttemptService
	catalog           app.QuizCatalog
	publicBaseURL     string
	defaultMaxAllowed int
}

// NewAdminService builds the admin API. catalog may be nil when the quiz source cannot list its quizzes.
func NewAdminService(registry *app.LinkRegistry, aggregator *app.Aggregator, attempts *app.AttemptService, catalog app.QuizCatalog, publicBaseURL string, defaultMaxAllowed int) *AdminService {
	return &AdminService{
		registry:          registry,
		aggregator:        aggregator,
		attempts:          attempts,
		catalog:           catalog,
		publicBaseURL:     strings.TrimRight(publicBaseURL, "/"),
		defaultMaxAllowed: defaultMaxAllowed,
	}
}

func (s *AdminService) Register(router gin.IRouter) {
	admin := router.Group("/admin", requireAdmin())
	admin.POST("/generate-link", s.GenerateLink)
	admin.GET("/quizzes", s.Quizzes)
	admin.GET("/stats", s.Stats)
	admin.GET("/exams", s.Exams)
	admin.GET("/live-attempts", s.LiveAttempts)
	admin.GET("/exam/:quizId", s.Exam)
	admin.GET("/submission/:submissionId", s.Submission)
}

// requireAdmin takes the admin identity from the X-Admin-Email header.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		email := strings.TrimSpace(c.GetHeader("X-Admin-Email"))
		if email == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Error:   "unauthorized",
				Message: "X-Admin-Email header is required",
			})
			return
		}
		c.Set(adminKey, email)
		c.Next()
	}
}

// GenerateLink creates a link for a quiz.
// POST /admin/generate-link
func (s *AdminService) GenerateLink(c *gin.Context) {
	var req generateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid_request", Message: err.Error()})
		return
	}
	quizID := strings.TrimSpace(lo.CoalesceOrEmpty(req.QuizID, req.QuizIDAlt))
	if quizID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid_request", Message: "quiz_id is required"})
		return
	}
	maxAllowed := s.defaultMaxAllowed
	if req.MaxAllowed != nil {
		maxAllowed = *req.MaxAllowed
	}

	link, err := s.registry.CreateLink(c.Request.Context(), c.GetString(adminKey), quizID, maxAllowed)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, linkResponse{
		LinkID:     link.ID,
		LinkURL:    s.linkURL(c, link.ID),
		QuizID:     link.QuizID,
		MaxAllowed: link.MaxAllowed,
	})
}

func (s *AdminService) linkURL(c *gin.Context, linkID string) string {
	base := s.publicBaseURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/quiz/" + linkID
}

// Quizzes lists the quizzes links can be generated for.
// GET /admin/quizzes
func (s *AdminService) Quizzes(c *gin.Context) {
	ids := []string{}
	if s.catalog != nil {
		listed, err := s.catalog.QuizIDs(c.Request.Context())
		if err != nil {
			abortWithError(c, err)
			return
		}
		ids = append(ids, listed...)
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": ids})
}

// Stats returns the admin's rollup and most recent submissions.
// GET /admin/stats
func (s *AdminService) Stats(c *gin.Context) {
	adminID := c.GetString(adminKey)
	summary, err := s.aggregator.SummaryForAdmin(c.Request.Context(), adminID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, adminStatsResponse{
		AdminEmail:          adminID,
		TotalLinksCreated:   summary.TotalLinksCreated,
		ActiveLinks:         summary.ActiveLinks,
		TotalStudentsServed: summary.TotalStudentsServed,
		RecentActivity:      newStudentRows(summary.RecentActivity, 0),
	})
}

// LiveAttempts lists attempts still in progress on the admin's links.
// GET /admin/live-attempts
func (s *AdminService) LiveAttempts(c *gin.Context) {
	views, err := s.attempts.LiveAttempts(c.Request.Context(), c.GetString(adminKey))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attempts": lo.Map(views, func(v app.AttemptView, _ int) liveAttemptRow {
		return newLiveAttemptRow(v)
	})})
}

// Exams lists every quiz with submissions.
// GET /admin/exams
func (s *AdminService) Exams(c *gin.Context) {
	summaries, err := s.aggregator.ListQuizzes(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"exams": lo.Map(summaries, func(q domain.QuizSummary, _ int) examItem {
			return examItem{
				QuizID:           q.QuizID,
				TotalSubmissions: q.TotalSubmissions,
				AverageScore:     q.AverageScore,
				FirstSubmission:  q.EarliestSubmission,
				LatestSubmission: q.LatestSubmission,
			}
		}),
	})
}

// Exam returns one page of a quiz's submissions.
// GET /admin/exam/:quizId?page=1&limit=50
func (s *AdminService) Exam(c *gin.Context) {
	quizID := c.Param("quizId")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(app.DefaultPageSize)))

	ctx := c.Request.Context()
	summary, err := s.aggregator.SummaryForQuiz(ctx, quizID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	results, err := s.aggregator.PageOfResults(ctx, quizID, page, limit)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"quiz_info": quizInfo{
			QuizID:           quizID,
			TotalSubmissions: summary.TotalSubmissions,
			AverageScore:     summary.AverageScore,
			Page:             results.Page,
			Limit:            results.PageSize,
			TotalPages:       results.TotalPages,
		},
		"students": newStudentRows(results.Items, (results.Page-1)*results.PageSize),
	})
}

// Submission returns one stored result in full.
// GET /admin/submission/:submissionId
func (s *AdminService) Submission(c *gin.Context) {
	record, err := s.aggregator.Detail(c.Request.Context(), c.Param("submissionId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"student_info": studentInfo{
			SubmissionID:     record.SubmissionID,
			StudentName:      record.Student.Name,
			ClassName:        record.Student.ClassName,
			Section:          record.Student.Section,
			QuizID:           record.QuizID,
			SubmittedAt:      record.Result.SubmittedAt,
			TimeSpentSeconds: record.ElapsedSeconds,
			AutoSubmitted:    record.AutoSubmitted,
		},
		"score_summary":    newScoreSummary(record.Summary()),
		"detailed_results": record.Result.Questions,
	})
}

var _ Service = (*AdminService)(nil)
