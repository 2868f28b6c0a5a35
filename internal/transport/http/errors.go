package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tegalsec-progression/internal/domain"
)

// Error codes returned in the "code" field of every error body.
const (
	CodeValidation           = "ValidationError"
	CodeIncompleteSubmission = "IncompleteSubmissionError"
	CodeNotFound             = "NotFoundError"
	CodeUnauthorized         = "UnauthorizedError"
	CodeDuplicateCompletion  = "DuplicateCompletionError"
	CodeConflict             = "ConflictError"
	CodeRateLimited          = "RateLimitedError"
	CodeInternal             = "InternalError"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps a domain error onto an HTTP status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, domain.ErrIncompleteSubmission):
		return http.StatusBadRequest, CodeIncompleteSubmission
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, domain.ErrDuplicateCompletion):
		return http.StatusBadRequest, CodeDuplicateCompletion
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, CodeConflict
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// writeError aborts the request with the mapped status. Internal errors are logged and masked.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, errorBody{Code: code, Message: message})
}
