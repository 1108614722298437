package query

import (
	"context"
	"errors"
	"io"
	"sort"

	"github.com/academy-hub/academy-lms/internal/domain/attendance"
	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// In-memory read-side stores. The query handlers only read, so the fakes
// are seeded directly with entities and answer from slices and maps.

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

type fakeUsers struct {
	byID map[string]*user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) Create(_ context.Context, _ *user.User) error { return nil }
func (f *fakeUsers) Update(_ context.Context, _ *user.User) error { return nil }

func (f *fakeUsers) GetByUsername(_ context.Context, _ string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) ListByRole(_ context.Context, role reference.Role) ([]*user.User, error) {
	var out []*user.User
	for _, u := range f.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUsers) CountByRole(ctx context.Context, role reference.Role) (int, error) {
	list, _ := f.ListByRole(ctx, role)
	return len(list), nil
}

type fakeCourses struct {
	byID map[string]*course.Course
}

func (f *fakeCourses) GetByID(_ context.Context, id string) (*course.Course, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return c, nil
}

func (f *fakeCourses) FindActiveBySlot(_ context.Context, roomID, shiftID string) (*course.Course, error) {
	for _, c := range f.byID {
		if c.Active && c.RoomID == roomID && c.ShiftID == shiftID {
			return c, nil
		}
	}
	return nil, course.ErrCourseNotFound
}

func (f *fakeCourses) ListActive(_ context.Context) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range f.byID {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCourses) ListByTeacher(_ context.Context, teacherID string) ([]*course.Course, error) {
	var out []*course.Course
	for _, c := range f.byID {
		if c.Active && c.TeacherID == teacherID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCourses) CountActive(ctx context.Context) (int, error) {
	list, _ := f.ListActive(ctx)
	return len(list), nil
}

func (f *fakeCourses) CreateExclusive(_ context.Context, _ *course.Course) error { return nil }
func (f *fakeCourses) UpdateExclusive(_ context.Context, _ *course.Course) error { return nil }

type fakeEnrollments struct {
	records []*enrollment.Enrollment
}

func (f *fakeEnrollments) ListByStudent(_ context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range f.records {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) ListByCourse(_ context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range f.records {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) CountByCourse(ctx context.Context, courseID string) (int, error) {
	list, _ := f.ListByCourse(ctx, courseID)
	return len(list), nil
}

func (f *fakeEnrollments) AveragePercentage(ctx context.Context, studentID string) (float64, error) {
	list, _ := f.ListByStudent(ctx, studentID)
	if len(list) == 0 {
		return 0, nil
	}
	var sum float64
	for _, e := range list {
		sum += e.AttendancePercentage
	}
	return sum / float64(len(list)), nil
}

func (f *fakeEnrollments) Enroll(_ context.Context, e *enrollment.Enrollment) (*enrollment.Enrollment, bool, error) {
	return e, true, nil
}

func (f *fakeEnrollments) EnrollBatch(_ context.Context, enrollments []*enrollment.Enrollment) ([]*enrollment.Enrollment, error) {
	return enrollments, nil
}

func (f *fakeEnrollments) GetByPair(_ context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	for _, e := range f.records {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, nil
		}
	}
	return nil, enrollment.ErrNotEnrolled
}

type fakeLessons struct {
	records []*lesson.Lesson
}

func (f *fakeLessons) ListByCourse(_ context.Context, courseID string) ([]*lesson.Lesson, error) {
	var out []*lesson.Lesson
	for _, l := range f.records {
		if l.CourseID == courseID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeLessons) CountByCourse(ctx context.Context, courseID string) (int, error) {
	list, _ := f.ListByCourse(ctx, courseID)
	return len(list), nil
}

func (f *fakeLessons) Create(_ context.Context, _ *lesson.Lesson) error { return nil }

func (f *fakeLessons) GetByID(_ context.Context, id string) (*lesson.Lesson, error) {
	for _, l := range f.records {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, lesson.ErrLessonNotFound
}

type fakeAttendances struct {
	records []*attendance.Attendance
}

func (f *fakeAttendances) GetByPair(_ context.Context, lessonID, studentID string) (*attendance.Attendance, error) {
	for _, a := range f.records {
		if a.LessonID == lessonID && a.StudentID == studentID {
			return a, nil
		}
	}
	return nil, attendance.ErrAttendanceNotFound
}

func (f *fakeAttendances) ListByLesson(_ context.Context, lessonID string) ([]*attendance.Attendance, error) {
	var out []*attendance.Attendance
	for _, a := range f.records {
		if a.LessonID == lessonID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttendances) ListByStudentCourse(ctx context.Context, studentID, _ string) ([]*attendance.Attendance, error) {
	var out []*attendance.Attendance
	for _, a := range f.records {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAttendances) CountPresent(_ context.Context, studentID, _ string) (int, error) {
	count := 0
	for _, a := range f.records {
		if a.StudentID == studentID && a.Status.CountsAsPresent() {
			count++
		}
	}
	return count, nil
}

// fakeSummaryCache stores summaries in memory and counts hits and writes.
type fakeSummaryCache struct {
	summaries map[string]*AttendanceSummaryResult
	hits      int
	writes    int
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{summaries: make(map[string]*AttendanceSummaryResult)}
}

func (f *fakeSummaryCache) GetSummary(_ context.Context, studentID string) (*AttendanceSummaryResult, error) {
	s, ok := f.summaries[studentID]
	if !ok {
		return nil, errors.New("cache miss")
	}
	f.hits++
	return s, nil
}

func (f *fakeSummaryCache) SetSummary(_ context.Context, studentID string, summary *AttendanceSummaryResult) error {
	f.summaries[studentID] = summary
	f.writes++
	return nil
}

func (f *fakeSummaryCache) InvalidateSummary(_ context.Context, studentID string) error {
	delete(f.summaries, studentID)
	return nil
}

type fakeDashboardCache struct {
	dashboards map[string]*DashboardResult
}

func newFakeDashboardCache() *fakeDashboardCache {
	return &fakeDashboardCache{dashboards: make(map[string]*DashboardResult)}
}

func (f *fakeDashboardCache) GetDashboard(_ context.Context, key string) (*DashboardResult, error) {
	d, ok := f.dashboards[key]
	if !ok {
		return nil, errors.New("cache miss")
	}
	return d, nil
}

func (f *fakeDashboardCache) SetDashboard(_ context.Context, key string, dashboard *DashboardResult) error {
	f.dashboards[key] = dashboard
	return nil
}

func (f *fakeDashboardCache) InvalidateDashboards(_ context.Context) error {
	f.dashboards = make(map[string]*DashboardResult)
	return nil
}

// seedUser builds a user fixture, panicking on invalid setup.
func seedUser(id, username string, role reference.Role) *user.User {
	u, err := user.NewUser(user.NewUserParams{
		ID:           id,
		Username:     username,
		FirstName:    "First" + id,
		LastName:     "Last" + id,
		PasswordHash: "$2a$10$fixture",
		Role:         role,
	})
	if err != nil {
		panic(err)
	}
	return u
}

func seedCourse(id, roomID, shiftID, teacherID string) *course.Course {
	c, err := course.NewCourse(course.NewCourseParams{
		ID:        id,
		Name:      "Course " + id,
		Level:     reference.LevelIntermediate,
		RoomID:    roomID,
		ShiftID:   shiftID,
		TeacherID: teacherID,
	})
	if err != nil {
		panic(err)
	}
	return c
}

func seedEnrollment(id, studentID, courseID string, percentage float64) *enrollment.Enrollment {
	e, err := enrollment.NewEnrollment(id, studentID, courseID)
	if err != nil {
		panic(err)
	}
	e.AttendancePercentage = percentage
	return e
}
