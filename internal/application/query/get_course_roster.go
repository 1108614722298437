package query

import (
	"context"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// GetCourseRosterQuery requests the enrolled students of a course with their
// attendance percentages.
type GetCourseRosterQuery struct {
	CourseID string
}

// Validate checks the query parameters.
func (q GetCourseRosterQuery) Validate() error {
	if q.CourseID == "" {
		return shared.NewValidationError("course_id", "must not be empty")
	}
	return nil
}

// RosterEntryDTO is one enrolled student.
type RosterEntryDTO struct {
	StudentID  string    `json:"student_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	Percentage float64   `json:"percentage"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// CourseRosterResult is the roster of one course.
type CourseRosterResult struct {
	CourseID     string           `json:"course_id"`
	CourseName   string           `json:"course_name"`
	Level        string           `json:"level"`
	TeacherID    string           `json:"teacher_id"`
	LessonsTotal int              `json:"lessons_total"`
	Students     []RosterEntryDTO `json:"students"`
}

// GetCourseRosterHandler serves course rosters.
type GetCourseRosterHandler struct {
	courses     course.Repository
	enrollments enrollment.Repository
	lessons     lesson.Repository
	users       user.Repository
	log         *logger.Logger
}

// NewGetCourseRosterHandler creates the handler.
func NewGetCourseRosterHandler(
	courses course.Repository,
	enrollments enrollment.Repository,
	lessons lesson.Repository,
	users user.Repository,
	log *logger.Logger,
) *GetCourseRosterHandler {
	return &GetCourseRosterHandler{
		courses:     courses,
		enrollments: enrollments,
		lessons:     lessons,
		users:       users,
		log:         log.With(logger.Component("get_course_roster")),
	}
}

// Handle builds the roster in enrollment order.
func (h *GetCourseRosterHandler) Handle(ctx context.Context, q GetCourseRosterQuery) (*CourseRosterResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	c, err := h.courses.GetByID(ctx, q.CourseID)
	if err != nil {
		return nil, err
	}

	lessonsTotal, err := h.lessons.CountByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	enrollments, err := h.enrollments.ListByCourse(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	result := &CourseRosterResult{
		CourseID:     c.ID,
		CourseName:   c.Name,
		Level:        c.Level.String(),
		TeacherID:    c.TeacherID,
		LessonsTotal: lessonsTotal,
		Students:     make([]RosterEntryDTO, 0, len(enrollments)),
	}

	for _, e := range enrollments {
		entry := RosterEntryDTO{
			StudentID:  e.StudentID,
			Percentage: e.AttendancePercentage,
			EnrolledAt: e.EnrolledAt,
		}

		// A deleted user row leaves the enrollment visible with an empty
		// name rather than failing the whole roster.
		if u, err := h.users.GetByID(ctx, e.StudentID); err == nil {
			entry.Username = u.Username
			entry.FullName = u.FullName()
		}

		result.Students = append(result.Students, entry)
	}

	return result, nil
}
