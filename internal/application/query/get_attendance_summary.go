package query

import (
	"context"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/attendance"
	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/pkg/logger"
	"github.com/academy-hub/academy-lms/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendanceSummaryQuery requests a student's attendance across all
// enrolled courses.
type GetAttendanceSummaryQuery struct {
	StudentID string
}

// Validate checks the query parameters.
func (q GetAttendanceSummaryQuery) Validate() error {
	if q.StudentID == "" {
		return shared.NewValidationError("student_id", "must not be empty")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULT DTOs
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceRecordDTO is one per-lesson outcome.
type AttendanceRecordDTO struct {
	LessonID   string `json:"lesson_id"`
	LessonDate string `json:"lesson_date"`
	Topic      string `json:"topic"`
	Status     string `json:"status"`
	MarkedAt   string `json:"marked_at"`
}

// CourseAttendanceDTO is a student's attendance within one course.
type CourseAttendanceDTO struct {
	CourseID     string                `json:"course_id"`
	CourseName   string                `json:"course_name"`
	Level        string                `json:"level"`
	Percentage   float64               `json:"percentage"`
	LessonsTotal int                   `json:"lessons_total"`
	PresentCount int                   `json:"present_count"`
	Records      []AttendanceRecordDTO `json:"records"`
}

// AttendanceSummaryResult is the full per-student summary.
type AttendanceSummaryResult struct {
	StudentID         string                `json:"student_id"`
	Courses           []CourseAttendanceDTO `json:"courses"`
	AveragePercentage float64               `json:"average_percentage"`
	GeneratedAt       time.Time             `json:"generated_at"`
	FromCache         bool                  `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetAttendanceSummaryHandler serves attendance summaries, cache-first.
type GetAttendanceSummaryHandler struct {
	enrollments enrollment.Repository
	courses     course.Repository
	lessons     lesson.Repository
	attendances attendance.Repository
	cache       SummaryCache
	log         *logger.Logger
}

// NewGetAttendanceSummaryHandler creates the handler. cache may be nil.
func NewGetAttendanceSummaryHandler(
	enrollments enrollment.Repository,
	courses course.Repository,
	lessons lesson.Repository,
	attendances attendance.Repository,
	cache SummaryCache,
	log *logger.Logger,
) *GetAttendanceSummaryHandler {
	return &GetAttendanceSummaryHandler{
		enrollments: enrollments,
		courses:     courses,
		lessons:     lessons,
		attendances: attendances,
		cache:       cache,
		log:         log.With(logger.Component("get_attendance_summary")),
	}
}

// Handle builds the summary from the ledger, calendar, and attendance rows.
func (h *GetAttendanceSummaryHandler) Handle(ctx context.Context, q GetAttendanceSummaryQuery) (*AttendanceSummaryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	if h.cache != nil {
		if cached, err := h.cache.GetSummary(ctx, q.StudentID); err == nil && cached != nil {
			cached.FromCache = true
			return cached, nil
		}
	}

	enrollments, err := h.enrollments.ListByStudent(ctx, q.StudentID)
	if err != nil {
		return nil, err
	}

	result := &AttendanceSummaryResult{
		StudentID:   q.StudentID,
		Courses:     make([]CourseAttendanceDTO, 0, len(enrollments)),
		GeneratedAt: time.Now().UTC(),
	}

	var percentageSum float64
	for _, e := range enrollments {
		dto, err := h.buildCourseDTO(ctx, e)
		if err != nil {
			return nil, err
		}
		percentageSum += dto.Percentage
		result.Courses = append(result.Courses, *dto)
	}

	if len(result.Courses) > 0 {
		result.AveragePercentage = percentageSum / float64(len(result.Courses))
	}

	if h.cache != nil {
		if err := h.cache.SetSummary(ctx, q.StudentID, result); err != nil {
			h.log.Warn("summary cache write failed",
				logger.StudentID(q.StudentID),
				logger.Err(err),
			)
		}
	}

	return result, nil
}

func (h *GetAttendanceSummaryHandler) buildCourseDTO(ctx context.Context, e *enrollment.Enrollment) (*CourseAttendanceDTO, error) {
	c, err := h.courses.GetByID(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}

	lessons, err := h.lessons.ListByCourse(ctx, e.CourseID)
	if err != nil {
		return nil, err
	}

	records, err := h.attendances.ListByStudentCourse(ctx, e.StudentID, e.CourseID)
	if err != nil {
		return nil, err
	}

	recordsByLesson := make(map[string]*attendance.Attendance, len(records))
	for _, rec := range records {
		recordsByLesson[rec.LessonID] = rec
	}

	dto := &CourseAttendanceDTO{
		CourseID:     c.ID,
		CourseName:   c.Name,
		Level:        c.Level.String(),
		Percentage:   e.AttendancePercentage,
		LessonsTotal: len(lessons),
		Records:      make([]AttendanceRecordDTO, 0, len(lessons)),
	}

	for _, l := range lessons {
		record := AttendanceRecordDTO{
			LessonID:   l.ID,
			LessonDate: timeutil.FormatDate(l.Date),
			Topic:      l.Topic,
		}
		if rec, ok := recordsByLesson[l.ID]; ok {
			record.Status = rec.Status.String()
			record.MarkedAt = rec.MarkedAt.UTC().Format(time.RFC3339)
			if rec.Status.CountsAsPresent() {
				dto.PresentCount++
			}
		}
		dto.Records = append(dto.Records, record)
	}

	return dto, nil
}
