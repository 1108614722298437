package query

import (
	"context"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// GetDashboardQuery requests the role-appropriate dashboard for a user.
type GetDashboardQuery struct {
	UserID string
	Role   reference.Role
}

// Validate checks the query parameters.
func (q GetDashboardQuery) Validate() error {
	if q.UserID == "" {
		return shared.NewValidationError("user_id", "must not be empty")
	}
	if !q.Role.IsValid() {
		return shared.NewValidationError("role", "unknown role")
	}
	return nil
}

// cacheKey partitions dashboards by role; admin-level counts are shared,
// teacher and student views are per-user.
func (q GetDashboardQuery) cacheKey() string {
	switch q.Role {
	case reference.RoleSuperadmin, reference.RoleAdmin:
		return string(q.Role)
	default:
		return string(q.Role) + ":" + q.UserID
	}
}

// DashboardResult carries the counters for one role's dashboard. Only the
// fields relevant to the role are populated.
type DashboardResult struct {
	Role string `json:"role"`

	// Admin / superadmin
	AdminCount    int `json:"admin_count,omitempty"`
	TeacherCount  int `json:"teacher_count,omitempty"`
	StudentCount  int `json:"student_count,omitempty"`
	ActiveCourses int `json:"active_courses,omitempty"`

	// Teacher
	OwnCourses int `json:"own_courses,omitempty"`

	// Student
	EnrolledCourses   int     `json:"enrolled_courses,omitempty"`
	AverageAttendance float64 `json:"average_attendance,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// GetDashboardHandler serves dashboards, cache-first.
type GetDashboardHandler struct {
	users       user.Repository
	courses     course.Repository
	enrollments enrollment.Repository
	cache       DashboardCache
	log         *logger.Logger
}

// NewGetDashboardHandler creates the handler. cache may be nil.
func NewGetDashboardHandler(
	users user.Repository,
	courses course.Repository,
	enrollments enrollment.Repository,
	cache DashboardCache,
	log *logger.Logger,
) *GetDashboardHandler {
	return &GetDashboardHandler{
		users:       users,
		courses:     courses,
		enrollments: enrollments,
		cache:       cache,
		log:         log.With(logger.Component("get_dashboard")),
	}
}

// Handle builds the dashboard for the requested role.
func (h *GetDashboardHandler) Handle(ctx context.Context, q GetDashboardQuery) (*DashboardResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	key := q.cacheKey()
	if h.cache != nil {
		if cached, err := h.cache.GetDashboard(ctx, key); err == nil && cached != nil {
			return cached, nil
		}
	}

	result := &DashboardResult{
		Role:        q.Role.String(),
		GeneratedAt: time.Now().UTC(),
	}

	var err error
	switch q.Role {
	case reference.RoleSuperadmin, reference.RoleAdmin:
		err = h.fillAdmin(ctx, result)
	case reference.RoleTeacher:
		err = h.fillTeacher(ctx, q.UserID, result)
	case reference.RoleStudent:
		err = h.fillStudent(ctx, q.UserID, result)
	}
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if err := h.cache.SetDashboard(ctx, key, result); err != nil {
			h.log.Warn("dashboard cache write failed", logger.Err(err))
		}
	}

	return result, nil
}

func (h *GetDashboardHandler) fillAdmin(ctx context.Context, r *DashboardResult) error {
	var err error
	if r.AdminCount, err = h.users.CountByRole(ctx, reference.RoleAdmin); err != nil {
		return err
	}
	if r.TeacherCount, err = h.users.CountByRole(ctx, reference.RoleTeacher); err != nil {
		return err
	}
	if r.StudentCount, err = h.users.CountByRole(ctx, reference.RoleStudent); err != nil {
		return err
	}
	if r.ActiveCourses, err = h.courses.CountActive(ctx); err != nil {
		return err
	}
	return nil
}

func (h *GetDashboardHandler) fillTeacher(ctx context.Context, teacherID string, r *DashboardResult) error {
	courses, err := h.courses.ListByTeacher(ctx, teacherID)
	if err != nil {
		return err
	}
	r.OwnCourses = len(courses)
	return nil
}

func (h *GetDashboardHandler) fillStudent(ctx context.Context, studentID string, r *DashboardResult) error {
	enrollments, err := h.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	r.EnrolledCourses = len(enrollments)

	if r.AverageAttendance, err = h.enrollments.AveragePercentage(ctx, studentID); err != nil {
		return err
	}
	return nil
}
