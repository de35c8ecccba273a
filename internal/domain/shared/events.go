package shared

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types emitted after a unit of work commits.
const (
	EventStudentEnrolled     EventType = "enrollment.student_enrolled"
	EventStudentUnenrolled   EventType = "enrollment.student_unenrolled"
	EventModuleStatusChanged EventType = "progress.module_status_changed"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	ID            string    `json:"id"`
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		ID:          uuid.NewString(),
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// StudentEnrolledEvent is emitted when an admission commits.
type StudentEnrolledEvent struct {
	BaseEvent
	EnrollmentID int64 `json:"enrollment_id"`
	StudentID    int64 `json:"student_id"`
	CourseID     int64 `json:"course_id"`
	ModuleCount  int   `json:"module_count"`
}

// Payload implements Event interface.
func (e StudentEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
		"module_count":  e.ModuleCount,
	}
}

// NewStudentEnrolledEvent creates a new StudentEnrolledEvent.
func NewStudentEnrolledEvent(enrollmentID, studentID, courseID int64, moduleCount int) StudentEnrolledEvent {
	return StudentEnrolledEvent{
		BaseEvent:    NewBaseEvent(EventStudentEnrolled, formatID(enrollmentID)),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
		ModuleCount:  moduleCount,
	}
}

// StudentUnenrolledEvent is emitted when an enrollment and its progress rows are deleted.
type StudentUnenrolledEvent struct {
	BaseEvent
	EnrollmentID int64 `json:"enrollment_id"`
	StudentID    int64 `json:"student_id"`
	CourseID     int64 `json:"course_id"`
}

// Payload implements Event interface.
func (e StudentUnenrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"enrollment_id": e.EnrollmentID,
		"student_id":    e.StudentID,
		"course_id":     e.CourseID,
	}
}

// NewStudentUnenrolledEvent creates a new StudentUnenrolledEvent.
func NewStudentUnenrolledEvent(enrollmentID, studentID, courseID int64) StudentUnenrolledEvent {
	return StudentUnenrolledEvent{
		BaseEvent:    NewBaseEvent(EventStudentUnenrolled, formatID(enrollmentID)),
		EnrollmentID: enrollmentID,
		StudentID:    studentID,
		CourseID:     courseID,
	}
}

// ModuleStatusChangedEvent is emitted when a progress row moves forward.
type ModuleStatusChangedEvent struct {
	BaseEvent
	ProgressID int64  `json:"progress_id"`
	StudentID  int64  `json:"student_id"`
	ModuleID   int64  `json:"module_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
}

// Payload implements Event interface.
func (e ModuleStatusChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"progress_id": e.ProgressID,
		"student_id":  e.StudentID,
		"module_id":   e.ModuleID,
		"old_status":  e.OldStatus,
		"new_status":  e.NewStatus,
	}
}

// NewModuleStatusChangedEvent creates a new ModuleStatusChangedEvent.
func NewModuleStatusChangedEvent(progressID, studentID, moduleID int64, oldStatus, newStatus string) ModuleStatusChangedEvent {
	return ModuleStatusChangedEvent{
		BaseEvent:  NewBaseEvent(EventModuleStatusChanged, formatID(progressID)),
		ProgressID: progressID,
		StudentID:  studentID,
		ModuleID:   moduleID,
		OldStatus:  oldStatus,
		NewStatus:  newStatus,
	}
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Handler Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
