package command

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE
// ══════════════════════════════════════════════════════════════════════════════

// CreateCourseCommand opens a course in a (room, shift) slot.
type CreateCourseCommand struct {
	ActorID   string
	Name      string
	Level     reference.Level
	RoomID    string
	ShiftID   string
	TeacherID string
}

// Validate checks the command parameters.
func (c CreateCourseCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewValidationError("name", "must not be empty")
	}
	if !c.Level.IsValid() {
		return shared.NewValidationError("level", "unknown level")
	}
	if c.RoomID == "" {
		return shared.NewValidationError("room_id", "must not be empty")
	}
	if c.ShiftID == "" {
		return shared.NewValidationError("shift_id", "must not be empty")
	}
	if c.TeacherID == "" {
		return shared.NewValidationError("teacher_id", "must not be empty")
	}
	return nil
}

// CreateCourseResult reports the created course.
type CreateCourseResult struct {
	CourseID string `json:"course_id"`
	Name     string `json:"name"`
}

// CreateCourseHandler handles course creation through the scheduling
// allocator.
type CreateCourseHandler struct {
	courses   course.Repository
	users     user.Repository
	reference reference.Repository
	events    shared.EventPublisher
	log       *logger.Logger
}

// NewCreateCourseHandler creates the handler. events may be nil.
func NewCreateCourseHandler(
	courses course.Repository,
	users user.Repository,
	ref reference.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *CreateCourseHandler {
	return &CreateCourseHandler{
		courses:   courses,
		users:     users,
		reference: ref,
		events:    events,
		log:       log.With(logger.Component("create_course")),
	}
}

// Handle validates the references and creates the course. The slot check and
// the insert are atomic inside the repository; a conflict surfaces as
// *course.SchedulingConflictError whether it was seen at check time or lost
// as a race at commit time.
func (h *CreateCourseHandler) Handle(ctx context.Context, cmd CreateCourseCommand) (*CreateCourseResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(user.ActionManageCourses) {
		return nil, shared.ErrPermissionDenied
	}

	if _, err := h.reference.GetRoom(ctx, cmd.RoomID); err != nil {
		return nil, err
	}
	if _, err := h.reference.GetShift(ctx, cmd.ShiftID); err != nil {
		return nil, err
	}

	teacher, err := h.users.GetByID(ctx, cmd.TeacherID)
	if err != nil {
		return nil, err
	}
	if !teacher.IsTeacher() {
		return nil, user.ErrNotATeacher
	}

	c, err := course.NewCourse(course.NewCourseParams{
		ID:        uuid.NewString(),
		Name:      cmd.Name,
		Level:     cmd.Level,
		RoomID:    cmd.RoomID,
		ShiftID:   cmd.ShiftID,
		TeacherID: cmd.TeacherID,
	})
	if err != nil {
		return nil, err
	}

	if err := h.courses.CreateExclusive(ctx, c); err != nil {
		return nil, err
	}

	publishEvent(ctx, h.events, h.log,
		shared.NewCourseCreatedEvent(c.ID, c.Name, c.RoomID, c.ShiftID, c.TeacherID))

	return &CreateCourseResult{CourseID: c.ID, Name: c.Name}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE
// ══════════════════════════════════════════════════════════════════════════════

// UpdateCourseCommand edits a course. The allocator re-checks the slot but
// excludes the course itself, so keeping the same slot is never a conflict.
type UpdateCourseCommand struct {
	ActorID   string
	CourseID  string
	Name      string
	Level     reference.Level
	RoomID    string
	ShiftID   string
	TeacherID string
}

// Validate checks the command parameters.
func (c UpdateCourseCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.CourseID == "" {
		return shared.NewValidationError("course_id", "must not be empty")
	}
	if strings.TrimSpace(c.Name) == "" {
		return shared.NewValidationError("name", "must not be empty")
	}
	if !c.Level.IsValid() {
		return shared.NewValidationError("level", "unknown level")
	}
	if c.RoomID == "" {
		return shared.NewValidationError("room_id", "must not be empty")
	}
	if c.ShiftID == "" {
		return shared.NewValidationError("shift_id", "must not be empty")
	}
	if c.TeacherID == "" {
		return shared.NewValidationError("teacher_id", "must not be empty")
	}
	return nil
}

// UpdateCourseHandler handles course edits.
type UpdateCourseHandler struct {
	courses   course.Repository
	users     user.Repository
	reference reference.Repository
	events    shared.EventPublisher
	log       *logger.Logger
}

// NewUpdateCourseHandler creates the handler. events may be nil.
func NewUpdateCourseHandler(
	courses course.Repository,
	users user.Repository,
	ref reference.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *UpdateCourseHandler {
	return &UpdateCourseHandler{
		courses:   courses,
		users:     users,
		reference: ref,
		events:    events,
		log:       log.With(logger.Component("update_course")),
	}
}

// Handle applies the edit through the allocator's excluding-self check.
func (h *UpdateCourseHandler) Handle(ctx context.Context, cmd UpdateCourseCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return err
	}
	if !actor.Can(user.ActionManageCourses) {
		return shared.ErrPermissionDenied
	}

	c, err := h.courses.GetByID(ctx, cmd.CourseID)
	if err != nil {
		return err
	}
	if !c.Active {
		return course.ErrCourseInactive
	}

	if _, err := h.reference.GetRoom(ctx, cmd.RoomID); err != nil {
		return err
	}
	if _, err := h.reference.GetShift(ctx, cmd.ShiftID); err != nil {
		return err
	}

	teacher, err := h.users.GetByID(ctx, cmd.TeacherID)
	if err != nil {
		return err
	}
	if !teacher.IsTeacher() {
		return user.ErrNotATeacher
	}

	c.Name = strings.TrimSpace(cmd.Name)
	c.Level = cmd.Level
	c.RoomID = cmd.RoomID
	c.ShiftID = cmd.ShiftID
	c.TeacherID = cmd.TeacherID
	c.UpdatedAt = time.Now().UTC()

	if err := h.courses.UpdateExclusive(ctx, c); err != nil {
		return err
	}

	publishEvent(ctx, h.events, h.log,
		shared.NewCourseUpdatedEvent(c.ID, c.Name, c.RoomID, c.ShiftID))

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DEACTIVATE
// ══════════════════════════════════════════════════════════════════════════════

// DeactivateCourseCommand releases a course's slot. Courses are never hard
// deleted; enrollments and lessons keep pointing at the inactive row.
type DeactivateCourseCommand struct {
	ActorID  string
	CourseID string
}

// Validate checks the command parameters.
func (c DeactivateCourseCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.CourseID == "" {
		return shared.NewValidationError("course_id", "must not be empty")
	}
	return nil
}

// DeactivateCourseHandler handles course deactivation.
type DeactivateCourseHandler struct {
	courses course.Repository
	users   user.Repository
	events  shared.EventPublisher
	log     *logger.Logger
}

// NewDeactivateCourseHandler creates the handler. events may be nil.
func NewDeactivateCourseHandler(
	courses course.Repository,
	users user.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *DeactivateCourseHandler {
	return &DeactivateCourseHandler{
		courses: courses,
		users:   users,
		events:  events,
		log:     log.With(logger.Component("deactivate_course")),
	}
}

// Handle deactivates the course. Deactivating twice is a no-op.
func (h *DeactivateCourseHandler) Handle(ctx context.Context, cmd DeactivateCourseCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return err
	}
	if !actor.Can(user.ActionManageCourses) {
		return shared.ErrPermissionDenied
	}

	c, err := h.courses.GetByID(ctx, cmd.CourseID)
	if err != nil {
		return err
	}
	if !c.Active {
		return nil
	}

	c.Deactivate()

	if err := h.courses.UpdateExclusive(ctx, c); err != nil {
		return err
	}

	publishEvent(ctx, h.events, h.log,
		shared.NewCourseDeactivatedEvent(c.ID, c.RoomID, c.ShiftID))

	h.log.Info("course deactivated",
		logger.CourseID(c.ID),
		logger.RoomID(c.RoomID),
		logger.ShiftID(c.ShiftID),
	)

	return nil
}
