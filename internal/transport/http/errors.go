package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quizlink-service/internal/domain"
)

// apiError is the body of every failed request.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error to an HTTP status and a stable machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return http.StatusForbidden, "link_full"
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict, "already_submitted"
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound, "quiz_not_found"
	case errors.Is(err, domain.ErrLinkNotFound):
		return http.StatusNotFound, "link_not_found"
	case errors.Is(err, domain.ErrSubmissionNotFound):
		return http.StatusNotFound, "submission_not_found"
	case errors.Is(err, domain.ErrAttemptNotFound):
		return http.StatusNotFound, "attempt_not_found"
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusNotFound, "question_not_found"
	case errors.Is(err, domain.ErrEmptyQuiz):
		return http.StatusUnprocessableEntity, "empty_quiz"
	case errors.Is(err, domain.ErrInvalidQuiz):
		return http.StatusUnprocessableEntity, "invalid_quiz"
	case errors.Is(err, domain.ErrInvalidCapacity),
		errors.Is(err, domain.ErrInvalidIdentity),
		errors.Is(err, domain.ErrOptionOutOfRange),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusInternalServerError, "invalid_state"
	default:
		return http.StatusInternalServerError, "server_error"
	}
}

var errBadRequest = errors.New("bad request")

func abortWithError(c *gin.Context, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		message = "internal error, please try again later"
	}
	c.AbortWithStatusJSON(status, apiError{Error: code, Message: message})
}
