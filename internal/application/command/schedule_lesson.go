package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ScheduleLessonCommand adds a lesson to a course's calendar. Dates are
// calendar dates; the time component is discarded.
type ScheduleLessonCommand struct {
	ActorID  string
	CourseID string
	Date     time.Time
	Topic    string
}

// Validate checks the command parameters.
func (c ScheduleLessonCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if c.CourseID == "" {
		return shared.NewValidationError("course_id", "must not be empty")
	}
	if c.Date.IsZero() {
		return shared.NewValidationError("date", "must not be zero")
	}
	return nil
}

// ScheduleLessonResult reports the created lesson.
type ScheduleLessonResult struct {
	LessonID string `json:"lesson_id"`
	CourseID string `json:"course_id"`
	Date     string `json:"date"`
}

// ScheduleLessonHandler handles lesson scheduling.
//
// The repository insert also recomputes every enrolled student's percentage
// in the same transaction: the new lesson moved the denominator, and stale
// percentages must never be observable after the commit.
type ScheduleLessonHandler struct {
	lessons lesson.Repository
	courses course.Repository
	users   user.Repository
	events  shared.EventPublisher
	log     *logger.Logger
}

// NewScheduleLessonHandler creates the handler. events may be nil.
func NewScheduleLessonHandler(
	lessons lesson.Repository,
	courses course.Repository,
	users user.Repository,
	events shared.EventPublisher,
	log *logger.Logger,
) *ScheduleLessonHandler {
	return &ScheduleLessonHandler{
		lessons: lessons,
		courses: courses,
		users:   users,
		events:  events,
		log:     log.With(logger.Component("schedule_lesson")),
	}
}

// Handle schedules the lesson. A teacher may only schedule into an own
// course; admins schedule anywhere.
func (h *ScheduleLessonHandler) Handle(ctx context.Context, cmd ScheduleLessonCommand) (*ScheduleLessonResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(user.ActionScheduleLesson) && !actor.Can(user.ActionManageCourses) {
		return nil, shared.ErrPermissionDenied
	}

	c, err := h.courses.GetByID(ctx, cmd.CourseID)
	if err != nil {
		return nil, err
	}
	if !c.Active {
		return nil, course.ErrCourseInactive
	}
	if actor.IsTeacher() && c.TeacherID != actor.ID {
		return nil, shared.ErrPermissionDenied
	}

	l, err := lesson.NewLesson(lesson.NewLessonParams{
		ID:       uuid.NewString(),
		CourseID: cmd.CourseID,
		Date:     cmd.Date,
		Topic:    cmd.Topic,
	})
	if err != nil {
		return nil, err
	}

	if err := h.lessons.Create(ctx, l); err != nil {
		return nil, err
	}

	publishEvent(ctx, h.events, h.log,
		shared.NewLessonScheduledEvent(l.ID, l.CourseID, l.Date, l.Topic))

	return &ScheduleLessonResult{
		LessonID: l.ID,
		CourseID: l.CourseID,
		Date:     l.Date.Format("2006-01-02"),
	}, nil
}
