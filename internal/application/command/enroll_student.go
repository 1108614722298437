package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SINGLE ENROLL
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentCommand adds a student to a course's ledger. Enrolling an
// already-enrolled student is an idempotent no-op.
type EnrollStudentCommand struct {
	ActorID   string
	StudentID string
	CourseID  string
}

// Validate checks the command parameters.
func (c EnrollStudentCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.StudentID == "" {
		return shared.NewValidationError("student_id", "must not be empty")
	}
	if c.CourseID == "" {
		return shared.NewValidationError("course_id", "must not be empty")
	}
	return nil
}

// EnrollStudentResult reports the ledger row and whether it was created now.
type EnrollStudentResult struct {
	EnrollmentID string  `json:"enrollment_id"`
	Created      bool    `json:"created"`
	Percentage   float64 `json:"percentage"`
}

// EnrollStudentHandler handles single enrollment.
type EnrollStudentHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
	users       user.Repository
	events      shared.EventPublisher
	log         *logger.Logger
}

// NewEnrollStudentHandler creates the handler. events may be nil.
func NewEnrollStudentHandler(
	enrollments enrollment.Repository,
	courses course.Repository,
	users user.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *EnrollStudentHandler {
	return &EnrollStudentHandler{
		enrollments: enrollments,
		courses:     courses,
		users:       users,
		events:      events,
		log:         log.With(logger.Component("enroll_student")),
	}
}

// Handle enrolls the student. The enrollment event fires only for a new
// ledger row, never for the idempotent repeat.
func (h *EnrollStudentHandler) Handle(ctx context.Context, cmd EnrollStudentCommand) (*EnrollStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if err := h.authorize(ctx, cmd.ActorID, cmd.StudentID, cmd.CourseID); err != nil {
		return nil, err
	}

	e, err := enrollment.NewEnrollment(uuid.NewString(), cmd.StudentID, cmd.CourseID)
	if err != nil {
		return nil, err
	}

	record, created, err := h.enrollments.Enroll(ctx, e)
	if err != nil {
		return nil, err
	}

	if created {
		publishEvent(ctx, h.events, h.log,
			shared.NewStudentEnrolledEvent(record.ID, record.StudentID, record.CourseID))
	}

	return &EnrollStudentResult{
		EnrollmentID: record.ID,
		Created:      created,
		Percentage:   record.AttendancePercentage,
	}, nil
}

// authorize checks the actor, the student's role, and the course's state.
func (h *EnrollStudentHandler) authorize(ctx context.Context, actorID, studentID, courseID string) error {
	actor, err := h.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.Can(user.ActionEnrollStudents) {
		return shared.ErrPermissionDenied
	}

	student, err := h.users.GetByID(ctx, studentID)
	if err != nil {
		return err
	}
	if !student.IsStudent() {
		return user.ErrNotAStudent
	}

	c, err := h.courses.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if !c.Active {
		return course.ErrCourseInactive
	}

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH ENROLL
// ══════════════════════════════════════════════════════════════════════════════

// EnrollStudentBatchCommand enrolls one student into several courses
// atomically: if any course already holds the student, nothing is written
// and the command fails with *enrollment.AlreadyEnrolledError naming every
// conflicting course.
type EnrollStudentBatchCommand struct {
	ActorID   string
	StudentID string
	CourseIDs []string
}

// Validate checks the command parameters.
func (c EnrollStudentBatchCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.StudentID == "" {
		return shared.NewValidationError("student_id", "must not be empty")
	}
	if len(c.CourseIDs) == 0 {
		return shared.NewValidationError("course_ids", "must not be empty")
	}
	seen := make(map[string]bool, len(c.CourseIDs))
	for _, id := range c.CourseIDs {
		if id == "" {
			return shared.NewValidationError("course_ids", "must not contain empty IDs")
		}
		if seen[id] {
			return shared.NewValidationError("course_ids", "must not contain duplicates")
		}
		seen[id] = true
	}
	return nil
}

// EnrollStudentBatchResult reports the created ledger rows.
type EnrollStudentBatchResult struct {
	StudentID     string   `json:"student_id"`
	EnrollmentIDs []string `json:"enrollment_ids"`
}

// EnrollStudentBatchHandler handles all-or-nothing batch enrollment.
type EnrollStudentBatchHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
	users       user.Repository
	events      shared.EventPublisher
	log         *logger.Logger
}

// NewEnrollStudentBatchHandler creates the handler. events may be nil.
func NewEnrollStudentBatchHandler(
	enrollments enrollment.Repository,
	courses course.Repository,
	users user.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *EnrollStudentBatchHandler {
	return &EnrollStudentBatchHandler{
		enrollments: enrollments,
		courses:     courses,
		users:       users,
		events:      events,
		log:         log.With(logger.Component("enroll_student_batch")),
	}
}

// Handle enrolls the student into every course or none.
func (h *EnrollStudentBatchHandler) Handle(ctx context.Context, cmd EnrollStudentBatchCommand) (*EnrollStudentBatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(user.ActionEnrollStudents) {
		return nil, shared.ErrPermissionDenied
	}

	student, err := h.users.GetByID(ctx, cmd.StudentID)
	if err != nil {
		return nil, err
	}
	if !student.IsStudent() {
		return nil, user.ErrNotAStudent
	}

	batch := make([]*enrollment.Enrollment, 0, len(cmd.CourseIDs))
	for _, courseID := range cmd.CourseIDs {
		c, err := h.courses.GetByID(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if !c.Active {
			return nil, course.ErrCourseInactive
		}

		e, err := enrollment.NewEnrollment(uuid.NewString(), cmd.StudentID, courseID)
		if err != nil {
			return nil, err
		}
		batch = append(batch, e)
	}

	created, err := h.enrollments.EnrollBatch(ctx, batch)
	if err != nil {
		return nil, err
	}

	result := &EnrollStudentBatchResult{
		StudentID:     cmd.StudentID,
		EnrollmentIDs: make([]string, 0, len(created)),
	}
	for _, e := range created {
		result.EnrollmentIDs = append(result.EnrollmentIDs, e.ID)
		publishEvent(ctx, h.events, h.log,
			shared.NewStudentEnrolledEvent(e.ID, e.StudentID, e.CourseID))
	}

	h.log.Info("batch enrollment committed",
		logger.StudentID(cmd.StudentID),
		logger.Int("courses", len(created)),
	)

	return result, nil
}
