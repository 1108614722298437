package query

import (
	"context"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// GetTeacherCoursesQuery requests a teacher's active courses.
type GetTeacherCoursesQuery struct {
	TeacherID string
}

// Validate checks the query parameters.
func (q GetTeacherCoursesQuery) Validate() error {
	if q.TeacherID == "" {
		return shared.NewValidationError("teacher_id", "must not be empty")
	}
	return nil
}

// TeacherCourseDTO is one course owned by the teacher.
type TeacherCourseDTO struct {
	CourseID     string `json:"course_id"`
	Name         string `json:"name"`
	Level        string `json:"level"`
	RoomID       string `json:"room_id"`
	ShiftID      string `json:"shift_id"`
	StudentCount int    `json:"student_count"`
	LessonCount  int    `json:"lesson_count"`
}

// TeacherCoursesResult is the teacher's course list.
type TeacherCoursesResult struct {
	TeacherID string             `json:"teacher_id"`
	Courses   []TeacherCourseDTO `json:"courses"`
}

// GetTeacherCoursesHandler serves teacher course lists.
type GetTeacherCoursesHandler struct {
	courses     course.Repository
	enrollments enrollment.Repository
	lessons     lesson.Repository
	log         *logger.Logger
}

// NewGetTeacherCoursesHandler creates the handler.
func NewGetTeacherCoursesHandler(
	courses course.Repository,
	enrollments enrollment.Repository,
	lessons lesson.Repository,
	log *logger.Logger,
) *GetTeacherCoursesHandler {
	return &GetTeacherCoursesHandler{
		courses:     courses,
		enrollments: enrollments,
		lessons:     lessons,
		log:         log.With(logger.Component("get_teacher_courses")),
	}
}

// Handle lists the teacher's active courses with their sizes.
func (h *GetTeacherCoursesHandler) Handle(ctx context.Context, q GetTeacherCoursesQuery) (*TeacherCoursesResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	courses, err := h.courses.ListByTeacher(ctx, q.TeacherID)
	if err != nil {
		return nil, err
	}

	result := &TeacherCoursesResult{
		TeacherID: q.TeacherID,
		Courses:   make([]TeacherCourseDTO, 0, len(courses)),
	}

	for _, c := range courses {
		studentCount, err := h.enrollments.CountByCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		lessonCount, err := h.lessons.CountByCourse(ctx, c.ID)
		if err != nil {
			return nil, err
		}

		result.Courses = append(result.Courses, TeacherCourseDTO{
			CourseID:     c.ID,
			Name:         c.Name,
			Level:        c.Level.String(),
			RoomID:       c.RoomID,
			ShiftID:      c.ShiftID,
			StudentCount: studentCount,
			LessonCount:  lessonCount,
		})
	}

	return result, nil
}
