package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/internal/interface/http/handlers"
	"github.com/alem-hub/lms-enrollment/pkg/logger"
)

// statusFor maps an outcome kind onto an HTTP status. A duplicate admission
// is reported as 409; other rule violations are 400.
func statusFor(err error) int {
	switch {
	case shared.IsNotFound(err):
		return http.StatusNotFound
	case shared.IsForbidden(err):
		return http.StatusForbidden
	case shared.IsRuleViolation(err):
		if shared.ReasonOf(err) == shared.ReasonAlreadyEnrolled {
			return http.StatusConflict
		}
		return http.StatusBadRequest
	case shared.IsInvalidInput(err):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes the error envelope for err. Internal details of
// unexpected failures are logged, not returned.
func writeDomainError(c *gin.Context, err error) {
	status := statusFor(err)

	message := shared.MessageOf(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("request failed", logger.Err(err))
		message = "An unexpected error occurred"
	}

	handlers.AbortWithError(c, status, message)
}
