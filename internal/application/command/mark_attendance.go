package command

import (
	"context"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-lms/internal/domain/attendance"
	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SINGLE MARK
// ══════════════════════════════════════════════════════════════════════════════

// MarkAttendanceCommand records one outcome for a (lesson, student) pair.
// Re-marking the same pair replaces the outcome in place.
type MarkAttendanceCommand struct {
	ActorID   string
	LessonID  string
	StudentID string
	Status    reference.AttendanceStatus
}

// Validate checks the command parameters.
func (c MarkAttendanceCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.LessonID == "" {
		return shared.NewValidationError("lesson_id", "must not be empty")
	}
	if c.StudentID == "" {
		return shared.NewValidationError("student_id", "must not be empty")
	}
	if !c.Status.IsValid() {
		return shared.NewValidationError("status", "unknown attendance status")
	}
	return nil
}

// MarkAttendanceResult reports the write and the recomputed percentage.
type MarkAttendanceResult struct {
	AttendanceID string  `json:"attendance_id"`
	Updated      bool    `json:"updated"`
	Percentage   float64 `json:"percentage"`
}

// MarkAttendanceHandler handles attendance marking.
type MarkAttendanceHandler struct {
	recorder attendance.Recorder
	lessons  lesson.Repository
	courses  course.Repository
	users    user.Repository
	events   shared.EventPublisher
	log      *logger.Logger
}

// NewMarkAttendanceHandler creates the handler. events may be nil.
func NewMarkAttendanceHandler(
	recorder attendance.Recorder,
	lessons lesson.Repository,
	courses course.Repository,
	users user.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *MarkAttendanceHandler {
	return &MarkAttendanceHandler{
		recorder: recorder,
		lessons:  lessons,
		courses:  courses,
		users:    users,
		events:   events,
		log:      log.With(logger.Component("mark_attendance")),
	}
}

// Handle records the outcome. The recorder runs the upsert and the
// percentage recomputation in one transaction; this handler only authorizes
// and publishes.
func (h *MarkAttendanceHandler) Handle(ctx context.Context, cmd MarkAttendanceCommand) (*MarkAttendanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	l, err := h.authorize(ctx, cmd.ActorID, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	a, err := attendance.NewAttendance(attendance.NewAttendanceParams{
		ID:         uuid.NewString(),
		LessonID:   cmd.LessonID,
		StudentID:  cmd.StudentID,
		Status:     cmd.Status,
		MarkedByID: cmd.ActorID,
	})
	if err != nil {
		return nil, err
	}

	result, err := h.recorder.Mark(ctx, a)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, h.events, h.log, shared.NewAttendanceMarkedEvent(
		result.Record.ID, cmd.LessonID, l.CourseID, cmd.StudentID,
		cmd.Status.String(), cmd.ActorID, result.Updated))

	return &MarkAttendanceResult{
		AttendanceID: result.Record.ID,
		Updated:      result.Updated,
		Percentage:   result.Percentage,
	}, nil
}

// authorize resolves the lesson and checks the actor against its course.
func (h *MarkAttendanceHandler) authorize(ctx context.Context, actorID, lessonID string) (*lesson.Lesson, error) {
	actor, err := h.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(user.ActionMarkAttendance) && !actor.Can(user.ActionManageCourses) {
		return nil, shared.ErrPermissionDenied
	}

	l, err := h.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if actor.IsTeacher() {
		c, err := h.courses.GetByID(ctx, l.CourseID)
		if err != nil {
			return nil, err
		}
		if c.TeacherID != actor.ID {
			return nil, shared.ErrPermissionDenied
		}
	}

	return l, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BATCH MARK
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceMark is one entry of a batch mark.
type AttendanceMark struct {
	StudentID string
	Status    reference.AttendanceStatus
}

// MarkAttendanceBatchCommand records outcomes for several students of one
// lesson. Unlike batch enrollment this is not all-or-nothing: each mark is
// its own transaction, and one student's failure (typically NotEnrolled)
// must not lose the rest of the roster's marks.
type MarkAttendanceBatchCommand struct {
	ActorID  string
	LessonID string
	Marks    []AttendanceMark
}

// Validate checks the command parameters.
func (c MarkAttendanceBatchCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.LessonID == "" {
		return shared.NewValidationError("lesson_id", "must not be empty")
	}
	if len(c.Marks) == 0 {
		return shared.NewValidationError("marks", "must not be empty")
	}
	seen := make(map[string]bool, len(c.Marks))
	for _, m := range c.Marks {
		if m.StudentID == "" {
			return shared.NewValidationError("marks", "must not contain empty student IDs")
		}
		if seen[m.StudentID] {
			return shared.NewValidationError("marks", "must not repeat a student")
		}
		seen[m.StudentID] = true
		if !m.Status.IsValid() {
			return shared.NewValidationError("marks", "unknown attendance status")
		}
	}
	return nil
}

// MarkOutcome reports one student's result within a batch.
type MarkOutcome struct {
	StudentID  string  `json:"student_id"`
	Marked     bool    `json:"marked"`
	Updated    bool    `json:"updated,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// MarkAttendanceBatchResult reports every outcome of the batch.
type MarkAttendanceBatchResult struct {
	LessonID string        `json:"lesson_id"`
	Marked   int           `json:"marked"`
	Failed   int           `json:"failed"`
	Outcomes []MarkOutcome `json:"outcomes"`
}

// MarkAttendanceBatchHandler handles roster-wide marking.
type MarkAttendanceBatchHandler struct {
	single *MarkAttendanceHandler
	log    *logger.Logger
}

// NewMarkAttendanceBatchHandler creates the handler on top of the single
// mark handler.
func NewMarkAttendanceBatchHandler(single *MarkAttendanceHandler, log *logger.Logger) *MarkAttendanceBatchHandler {
	return &MarkAttendanceBatchHandler{
		single: single,
		log:    log.With(logger.Component("mark_attendance_batch")),
	}
}

// Handle marks every student, collecting per-student failures.
func (h *MarkAttendanceBatchHandler) Handle(ctx context.Context, cmd MarkAttendanceBatchCommand) (*MarkAttendanceBatchResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// Authorization failures apply to the whole batch, so check once up
	// front instead of repeating per student.
	if _, err := h.single.authorize(ctx, cmd.ActorID, cmd.LessonID); err != nil {
		return nil, err
	}

	result := &MarkAttendanceBatchResult{
		LessonID: cmd.LessonID,
		Outcomes: make([]MarkOutcome, 0, len(cmd.Marks)),
	}

	for _, m := range cmd.Marks {
		outcome := MarkOutcome{StudentID: m.StudentID}

		single, err := h.single.Handle(ctx, MarkAttendanceCommand{
			ActorID:   cmd.ActorID,
			LessonID:  cmd.LessonID,
			StudentID: m.StudentID,
			Status:    m.Status,
		})
		if err != nil {
			outcome.Error = err.Error()
			result.Failed++
			h.log.Warn("batch mark entry failed",
				logger.LessonID(cmd.LessonID),
				logger.StudentID(m.StudentID),
				logger.Err(err),
			)
		} else {
			outcome.Marked = true
			outcome.Updated = single.Updated
			outcome.Percentage = single.Percentage
			result.Marked++
		}

		result.Outcomes = append(result.Outcomes, outcome)
	}

	return result, nil
}
