package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
)

type dashboardFixture struct {
	users       *fakeUsers
	courses     *fakeCourses
	enrollments *fakeEnrollments
}

func newDashboardFixture() *dashboardFixture {
	f := &dashboardFixture{
		users: &fakeUsers{byID: map[string]*user.User{}},
		courses: &fakeCourses{byID: map[string]*course.Course{
			"c1": seedCourse("c1", "room-1", "shift-1", "tch"),
			"c2": seedCourse("c2", "room-2", "shift-1", "tch"),
		}},
		enrollments: &fakeEnrollments{records: []*enrollment.Enrollment{
			seedEnrollment("e1", "std", "c1", 80),
			seedEnrollment("e2", "std", "c2", 60),
		}},
	}
	for _, u := range []*user.User{
		seedUser("adm", "admin", reference.RoleAdmin),
		seedUser("tch", "teacher", reference.RoleTeacher),
		seedUser("std", "student", reference.RoleStudent),
		seedUser("std2", "student2", reference.RoleStudent),
	} {
		f.users.byID[u.ID] = u
	}
	return f
}

func (f *dashboardFixture) handler(cache DashboardCache) *GetDashboardHandler {
	return NewGetDashboardHandler(f.users, f.courses, f.enrollments, cache, testLogger())
}

func TestGetDashboard_Admin(t *testing.T) {
	f := newDashboardFixture()

	result, err := f.handler(nil).Handle(context.Background(), GetDashboardQuery{
		UserID: "adm",
		Role:   reference.RoleAdmin,
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.AdminCount)
	assert.Equal(t, 1, result.TeacherCount)
	assert.Equal(t, 2, result.StudentCount)
	assert.Equal(t, 2, result.ActiveCourses)
}

func TestGetDashboard_Teacher(t *testing.T) {
	f := newDashboardFixture()

	result, err := f.handler(nil).Handle(context.Background(), GetDashboardQuery{
		UserID: "tch",
		Role:   reference.RoleTeacher,
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, result.OwnCourses)
	assert.Zero(t, result.AdminCount)
}

func TestGetDashboard_Student(t *testing.T) {
	f := newDashboardFixture()

	result, err := f.handler(nil).Handle(context.Background(), GetDashboardQuery{
		UserID: "std",
		Role:   reference.RoleStudent,
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, result.EnrolledCourses)
	assert.InDelta(t, 70.0, result.AverageAttendance, 0.001)
}

func TestGetDashboard_CachePartitioning(t *testing.T) {
	f := newDashboardFixture()
	cache := newFakeDashboardCache()
	h := f.handler(cache)

	_, err := h.Handle(context.Background(), GetDashboardQuery{UserID: "adm", Role: reference.RoleAdmin})
	assert.NoError(t, err)
	_, err = h.Handle(context.Background(), GetDashboardQuery{UserID: "std", Role: reference.RoleStudent})
	assert.NoError(t, err)
	_, err = h.Handle(context.Background(), GetDashboardQuery{UserID: "std2", Role: reference.RoleStudent})
	assert.NoError(t, err)

	// Admin dashboards share one key; student dashboards are per user.
	assert.Contains(t, cache.dashboards, "admin")
	assert.Contains(t, cache.dashboards, "student:std")
	assert.Contains(t, cache.dashboards, "student:std2")
	assert.Len(t, cache.dashboards, 3)
}

func TestGetDashboard_Validation(t *testing.T) {
	f := newDashboardFixture()

	_, err := f.handler(nil).Handle(context.Background(), GetDashboardQuery{Role: reference.RoleAdmin})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = f.handler(nil).Handle(context.Background(), GetDashboardQuery{UserID: "adm", Role: reference.Role("janitor")})
	assert.ErrorIs(t, err, shared.ErrValidation)
}
