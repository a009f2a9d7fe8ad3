package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quizlink-service/internal/app"
)

// StudentService serves link entry and submission.
type StudentService struct {
	registry   *app.LinkRegistry
	aggregator *app.Aggregator
}

func NewStudentService(registry *app.LinkRegistry, aggregator *app.Aggregator) *StudentService {
	return &StudentService{registry: registry, aggregator: aggregator}
}

func (s *StudentService) Register(router gin.IRouter) {
	router.GET("/link/:linkId", s.LinkInfo)
	router.POST("/link/:linkId/admit", s.Admit)
	router.POST("/link/:linkId/submit", s.SubmitThroughLink)
	router.POST("/quiz/submit", s.SubmitDirect)
	router.GET("/teacher/results", s.TeacherResults)
}

// LinkInfo reports a link's capacity without admitting anyone.
// GET /link/:linkId
func (s *StudentService) LinkInfo(c *gin.Context) {
	link, err := s.registry.GetLink(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newLinkInfo(link))
}

// Admit lets a student in and returns the quiz without its answer key.
// POST /link/:linkId/admit
func (s *StudentService) Admit(c *gin.Context) {
	var req identityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid_request", Message: err.Error()})
		return
	}
	admission, err := s.registry.Admit(c.Request.Context(), c.Param("linkId"), req.identity())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdmission(admission))
}

// SubmitThroughLink records an admitted student's answers once.
// POST /link/:linkId/submit
func (s *StudentService) SubmitThroughLink(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid_request", Message: err.Error()})
		return
	}
	linkID := c.Param("linkId")
	submission, err := req.submission(req.quizID())
	if err != nil {
		abortWithError(c, err)
		return
	}

	summary, err := s.registry.RecordSubmission(c.Request.Context(), linkID, req.identity(), submission)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score_summary": newScoreSummary(summary)})
}

// SubmitDirect scores answers for a quiz taken without a link.
// POST /quiz/submit
func (s *StudentService) SubmitDirect(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid_request", Message: err.Error()})
		return
	}
	quizID := req.quizID()
	if quizID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Error: "invalid_request", Message: "quiz_id is required"})
		return
	}
	submission, err := req.submission(quizID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	summary, err := s.registry.SubmitDirect(c.Request.Context(), quizID, req.identity(), submission)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"score_summary": newScoreSummary(summary)})
}

// TeacherResults lists every stored result with the overall average.
// GET /teacher/results
func (s *StudentService) TeacherResults(c *gin.Context) {
	report, err := s.aggregator.AllResults(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"results":       report.Results,
		"totalStudents": report.TotalStudents,
		"summary":       gin.H{"averageScore": report.AverageScore},
	})
}

var _ Service = (*StudentService)(nil)
