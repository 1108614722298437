// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event records something significant that happened
// to the attendance/enrollment state; subscribers invalidate caches and emit
// audit logs from them.
const (
	// User events
	EventUserCreated     EventType = "user.created"
	EventUserDeactivated EventType = "user.deactivated"

	// Course events
	EventCourseCreated     EventType = "course.created"
	EventCourseUpdated     EventType = "course.updated"
	EventCourseDeactivated EventType = "course.deactivated"

	// Enrollment events
	EventStudentEnrolled EventType = "enrollment.created"

	// Lesson events
	EventLessonScheduled EventType = "lesson.scheduled"

	// Attendance events
	EventAttendanceMarked      EventType = "attendance.marked"
	EventPercentageRecomputed  EventType = "attendance.percentage_recomputed"
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

// ═══════════════════════════════════════════════════════════════════════════
// User Events
// ═══════════════════════════════════════════════════════════════════════════

// UserCreatedEvent is emitted when an account is created.
type UserCreatedEvent struct {
	BaseEvent
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Payload implements Event interface.
func (e UserCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"username": e.Username,
		"role":     e.Role,
	}
}

// NewUserCreatedEvent creates a new UserCreatedEvent.
func NewUserCreatedEvent(userID, username, role string) UserCreatedEvent {
	return UserCreatedEvent{
		BaseEvent: NewBaseEvent(EventUserCreated, userID),
		Username:  username,
		Role:      role,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Course Events
// ═══════════════════════════════════════════════════════════════════════════

// CourseCreatedEvent is emitted when a course passes the scheduling allocator
// and is persisted.
type CourseCreatedEvent struct {
	BaseEvent
	Name      string `json:"name"`
	RoomID    string `json:"room_id"`
	ShiftID   string `json:"shift_id"`
	TeacherID string `json:"teacher_id"`
}

// Payload implements Event interface.
func (e CourseCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":       e.Name,
		"room_id":    e.RoomID,
		"shift_id":   e.ShiftID,
		"teacher_id": e.TeacherID,
	}
}

// NewCourseCreatedEvent creates a new CourseCreatedEvent.
func NewCourseCreatedEvent(courseID, name, roomID, shiftID, teacherID string) CourseCreatedEvent {
	return CourseCreatedEvent{
		BaseEvent: NewBaseEvent(EventCourseCreated, courseID),
		Name:      name,
		RoomID:    roomID,
		ShiftID:   shiftID,
		TeacherID: teacherID,
	}
}

// CourseUpdatedEvent is emitted after a course edit passes the allocator
// re-check and is persisted.
type CourseUpdatedEvent struct {
	BaseEvent
	Name    string `json:"name"`
	RoomID  string `json:"room_id"`
	ShiftID string `json:"shift_id"`
}

// Payload implements Event interface.
func (e CourseUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":     e.Name,
		"room_id":  e.RoomID,
		"shift_id": e.ShiftID,
	}
}

// NewCourseUpdatedEvent creates a new CourseUpdatedEvent.
func NewCourseUpdatedEvent(courseID, name, roomID, shiftID string) CourseUpdatedEvent {
	return CourseUpdatedEvent{
		BaseEvent: NewBaseEvent(EventCourseUpdated, courseID),
		Name:      name,
		RoomID:    roomID,
		ShiftID:   shiftID,
	}
}

// CourseDeactivatedEvent is emitted when a course releases its slot.
type CourseDeactivatedEvent struct {
	BaseEvent
	RoomID  string `json:"room_id"`
	ShiftID string `json:"shift_id"`
}

// Payload implements Event interface.
func (e CourseDeactivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"room_id":  e.RoomID,
		"shift_id": e.ShiftID,
	}
}

// NewCourseDeactivatedEvent creates a new CourseDeactivatedEvent.
func NewCourseDeactivatedEvent(courseID, roomID, shiftID string) CourseDeactivatedEvent {
	return CourseDeactivatedEvent{
		BaseEvent: NewBaseEvent(EventCourseDeactivated, courseID),
		RoomID:    roomID,
		ShiftID:   shiftID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Enrollment Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentEnrolledEvent is emitted when a new enrollment record is created.
// It is not emitted for idempotent re-enrollments.
type StudentEnrolledEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
}

// Payload implements Event interface.
func (e StudentEnrolledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
	}
}

// NewStudentEnrolledEvent creates a new StudentEnrolledEvent.
func NewStudentEnrolledEvent(enrollmentID, studentID, courseID string) StudentEnrolledEvent {
	return StudentEnrolledEvent{
		BaseEvent: NewBaseEvent(EventStudentEnrolled, enrollmentID),
		StudentID: studentID,
		CourseID:  courseID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Lesson Events
// ═══════════════════════════════════════════════════════════════════════════

// LessonScheduledEvent is emitted when a lesson is added to the calendar.
// The denominator for every enrollment of the course moved with it.
type LessonScheduledEvent struct {
	BaseEvent
	CourseID string    `json:"course_id"`
	Date     time.Time `json:"date"`
	Topic    string    `json:"topic"`
}

// Payload implements Event interface.
func (e LessonScheduledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"course_id": e.CourseID,
		"date":      e.Date.Format("2006-01-02"),
		"topic":     e.Topic,
	}
}

// NewLessonScheduledEvent creates a new LessonScheduledEvent.
func NewLessonScheduledEvent(lessonID, courseID string, date time.Time, topic string) LessonScheduledEvent {
	return LessonScheduledEvent{
		BaseEvent: NewBaseEvent(EventLessonScheduled, lessonID),
		CourseID:  courseID,
		Date:      date,
		Topic:     topic,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceMarkedEvent is emitted after an attendance outcome is recorded
// or re-marked for a (lesson, student) pair.
type AttendanceMarkedEvent struct {
	BaseEvent
	LessonID  string `json:"lesson_id"`
	CourseID  string `json:"course_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	MarkedBy  string `json:"marked_by"`
	Updated   bool   `json:"updated"` // true when an existing record was re-marked
}

// Payload implements Event interface.
func (e AttendanceMarkedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id":  e.LessonID,
		"course_id":  e.CourseID,
		"student_id": e.StudentID,
		"status":     e.Status,
		"marked_by":  e.MarkedBy,
		"updated":    e.Updated,
	}
}

// NewAttendanceMarkedEvent creates a new AttendanceMarkedEvent.
func NewAttendanceMarkedEvent(attendanceID, lessonID, courseID, studentID, status, markedBy string, updated bool) AttendanceMarkedEvent {
	return AttendanceMarkedEvent{
		BaseEvent: NewBaseEvent(EventAttendanceMarked, attendanceID),
		LessonID:  lessonID,
		CourseID:  courseID,
		StudentID: studentID,
		Status:    status,
		MarkedBy:  markedBy,
		Updated:   updated,
	}
}

// PercentageRecomputedEvent is emitted when a student's attendance percentage
// for a course is recalculated.
type PercentageRecomputedEvent struct {
	BaseEvent
	StudentID  string  `json:"student_id"`
	CourseID   string  `json:"course_id"`
	Percentage float64 `json:"percentage"`
}

// Payload implements Event interface.
func (e PercentageRecomputedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"course_id":  e.CourseID,
		"percentage": e.Percentage,
	}
}

// NewPercentageRecomputedEvent creates a new PercentageRecomputedEvent.
func NewPercentageRecomputedEvent(enrollmentID, studentID, courseID string, percentage float64) PercentageRecomputedEvent {
	return PercentageRecomputedEvent{
		BaseEvent:  NewBaseEvent(EventPercentageRecomputed, enrollmentID),
		StudentID:  studentID,
		CourseID:   courseID,
		Percentage: percentage,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler handles a domain event.
type EventHandler interface {
	// Handle processes the event.
	Handle(ctx context.Context, event Event) error

	// Name returns the handler name for logging.
	Name() string
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, event Event) error
}

// Handle implements EventHandler.
func (f EventHandlerFunc) Handle(ctx context.Context, event Event) error {
	return f.Fn(ctx, event)
}

// Name implements EventHandler.
func (f EventHandlerFunc) Name() string {
	return f.HandlerName
}

// EventPublisher publishes domain events.
type EventPublisher interface {
	// Publish delivers the event to all subscribed handlers.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber registers handlers for event types.
type EventSubscriber interface {
	// Subscribe registers a handler for the given event type.
	Subscribe(eventType EventType, handler EventHandler)

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler)
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
