package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alem-hub/lms-enrollment/internal/application/command"
	"github.com/alem-hub/lms-enrollment/internal/application/query"
	"github.com/alem-hub/lms-enrollment/internal/domain/enrollment"
	"github.com/alem-hub/lms-enrollment/internal/domain/shared"
	"github.com/alem-hub/lms-enrollment/internal/infrastructure/messaging"
	"github.com/alem-hub/lms-enrollment/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// DTOs
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentResponse is returned by a successful admission.
type EnrollmentResponse struct {
	ID          int64     `json:"id"`
	CourseID    int64     `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	EnrolledAt  time.Time `json:"enrolledAt"`
}

// UpdateProgressRequest is the body of PATCH /modules/:moduleId/progress.
type UpdateProgressRequest struct {
	Status string `json:"status" binding:"required"`
}

// HealthResponse combines health checks with enrollment counters.
type HealthResponse struct {
	handlers.HealthStatus
	Enrollment *command.MetricsSnapshot           `json:"enrollment,omitempty"`
	Events     *messaging.EventBusMetricsSnapshot `json:"events,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{HealthStatus: s.deps.HealthChecker.Check(c.Request.Context())}

	if s.deps.Metrics != nil {
		snap := s.deps.Metrics.Snapshot()
		resp.Enrollment = &snap
	}
	if s.deps.EventMetrics != nil {
		snap := s.deps.EventMetrics.Snapshot()
		resp.Events = &snap
	}

	status := http.StatusOK
	if !resp.Healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// handleLive handles the liveness probe endpoint.
func (s *Server) handleLive(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// POST /api/v1/courses/:courseId/enroll
func (s *Server) handleEnroll(c *gin.Context) {
	actor, courseID, ok := s.actorAndID(c, "courseId")
	if !ok {
		return
	}

	res, err := s.deps.EnrollStudent.Handle(c.Request.Context(), command.EnrollStudentCommand{
		Actor:         actor,
		CourseID:      courseID,
		CorrelationID: handlers.GetRequestID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, EnrollmentResponse{
		ID:          res.EnrollmentID,
		CourseID:    res.CourseID,
		CourseTitle: res.CourseTitle,
		EnrolledAt:  res.EnrolledAt,
	})
}

// DELETE /api/v1/courses/:courseId/unenroll
func (s *Server) handleUnenroll(c *gin.Context) {
	actor, courseID, ok := s.actorAndID(c, "courseId")
	if !ok {
		return
	}

	err := s.deps.UnenrollStudent.Handle(c.Request.Context(), command.UnenrollStudentCommand{
		Actor:         actor,
		CourseID:      courseID,
		CorrelationID: handlers.GetRequestID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GET /api/v1/courses/:courseId/modules/progress
func (s *Server) handleListModuleProgress(c *gin.Context) {
	actor, courseID, ok := s.actorAndID(c, "courseId")
	if !ok {
		return
	}

	list, err := s.deps.ListModuleProgress.Handle(c.Request.Context(), query.ListModuleProgressQuery{
		Actor:    actor,
		CourseID: courseID,
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}
	if list == nil {
		list = []query.ModuleProgressDTO{}
	}

	c.JSON(http.StatusOK, list)
}

// PATCH /api/v1/modules/:moduleId/progress
func (s *Server) handleUpdateProgress(c *gin.Context) {
	actor, moduleID, ok := s.actorAndID(c, "moduleId")
	if !ok {
		return
	}

	var req UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.AbortWithError(c, http.StatusBadRequest, "status: must not be blank")
		return
	}

	status, err := enrollment.ParseStatus(req.Status)
	if err != nil {
		writeDomainError(c, err)
		return
	}

	err = s.deps.UpdateProgress.Handle(c.Request.Context(), command.UpdateProgressCommand{
		Actor:         actor,
		ModuleID:      moduleID,
		Status:        status,
		CorrelationID: handlers.GetRequestID(c),
	})
	if err != nil {
		writeDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// actorAndID extracts the actor and a positive numeric path parameter.
func (s *Server) actorAndID(c *gin.Context, param string) (shared.Actor, int64, bool) {
	actor, ok := handlers.GetActor(c)
	if !ok {
		handlers.AbortWithError(c, http.StatusUnauthorized, "Authentication required")
		return shared.Actor{}, 0, false
	}

	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		handlers.AbortWithError(c, http.StatusBadRequest, param+": must be a positive integer")
		return shared.Actor{}, 0, false
	}

	return actor, id, true
}
