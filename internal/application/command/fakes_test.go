package command

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/attendance"
	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// In-memory repositories backing the handler tests. They mirror the
// transactional guarantees of the postgres implementations closely enough
// for handler-level behavior: idempotent Enroll, all-or-nothing EnrollBatch,
// slot exclusivity, duplicate lesson dates, and mark upserts that recompute
// the percentage.

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Output: io.Discard, Level: logger.LevelError})
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENTS
// ══════════════════════════════════════════════════════════════════════════════

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, event shared.Event) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) byType(t shared.EventType) []shared.Event {
	var out []shared.Event
	for _, e := range p.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

type fakeUsers struct {
	byID map[string]*user.User
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: make(map[string]*user.User)}
}

// seed creates and stores a user, panicking on invalid fixtures so broken
// test setup fails loudly.
func (f *fakeUsers) seed(id, username string, role reference.Role) *user.User {
	u, err := user.NewUser(user.NewUserParams{
		ID:           id,
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: "$2a$10$fixture",
		Role:         role,
	})
	if err != nil {
		panic(fmt.Sprintf("seed user %s: %v", username, err))
	}
	f.byID[u.ID] = u
	return u
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	for _, existing := range f.byID {
		if existing.Username == u.Username {
			return user.ErrUsernameTaken
		}
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *user.User) error {
	if _, ok := f.byID[u.ID]; !ok {
		return user.ErrUserNotFound
	}
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) ListByRole(_ context.Context, role reference.Role) ([]*user.User, error) {
	var out []*user.User
	for _, u := range f.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (f *fakeUsers) CountByRole(ctx context.Context, role reference.Role) (int, error) {
	list, _ := f.ListByRole(ctx, role)
	return len(list), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSES
// ══════════════════════════════════════════════════════════════════════════════

// fakeCourses serializes access with a mutex so handler tests can race
// goroutines at it the way concurrent requests race the database.
type fakeCourses struct {
	mu   sync.Mutex
	byID map[string]*course.Course
}

func newFakeCourses() *fakeCourses {
	return &fakeCourses{byID: make(map[string]*course.Course)}
}

func (f *fakeCourses) seed(id, roomID, shiftID, teacherID string) *course.Course {
	c, err := course.NewCourse(course.NewCourseParams{
		ID:        id,
		Name:      "Course " + id,
		Level:     reference.LevelBeginner,
		RoomID:    roomID,
		ShiftID:   shiftID,
		TeacherID: teacherID,
	})
	if err != nil {
		panic(fmt.Sprintf("seed course %s: %v", id, err))
	}
	f.byID[c.ID] = c
	return c
}

// slotHolder returns the active course in (room, shift), skipping excludeID.
// Callers hold f.mu.
func (f *fakeCourses) slotHolder(roomID, shiftID, excludeID string) *course.Course {
	for _, c := range f.byID {
		if c.ID != excludeID && c.Active && c.RoomID == roomID && c.ShiftID == shiftID {
			return c
		}
	}
	return nil
}

func (f *fakeCourses) CreateExclusive(_ context.Context, c *course.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if holder := f.slotHolder(c.RoomID, c.ShiftID, ""); holder != nil {
		return &course.SchedulingConflictError{
			RoomID:              c.RoomID,
			ShiftID:             c.ShiftID,
			ConflictingCourseID: holder.ID,
		}
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCourses) UpdateExclusive(_ context.Context, c *course.Course) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[c.ID]; !ok {
		return course.ErrCourseNotFound
	}
	if c.Active {
		if holder := f.slotHolder(c.RoomID, c.ShiftID, c.ID); holder != nil {
			return &course.SchedulingConflictError{
				RoomID:              c.RoomID,
				ShiftID:             c.ShiftID,
				ConflictingCourseID: holder.ID,
			}
		}
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCourses) GetByID(_ context.Context, id string) (*course.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, course.ErrCourseNotFound
	}
	return c, nil
}

func (f *fakeCourses) FindActiveBySlot(_ context.Context, roomID, shiftID string) (*course.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if holder := f.slotHolder(roomID, shiftID, ""); holder != nil {
		return holder, nil
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
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
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

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENTS
// ══════════════════════════════════════════════════════════════════════════════

type fakeEnrollments struct {
	mu     sync.Mutex
	byPair map[string]*enrollment.Enrollment // studentID + "|" + courseID
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{byPair: make(map[string]*enrollment.Enrollment)}
}

func pairKey(studentID, courseID string) string {
	return studentID + "|" + courseID
}

func (f *fakeEnrollments) Enroll(_ context.Context, e *enrollment.Enrollment) (*enrollment.Enrollment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.byPair[pairKey(e.StudentID, e.CourseID)]; ok {
		return existing, false, nil
	}
	f.byPair[pairKey(e.StudentID, e.CourseID)] = e
	return e, true, nil
}

func (f *fakeEnrollments) EnrollBatch(_ context.Context, enrollments []*enrollment.Enrollment) ([]*enrollment.Enrollment, error) {
	if len(enrollments) == 0 {
		return nil, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var conflicts []string
	for _, e := range enrollments {
		if _, ok := f.byPair[pairKey(e.StudentID, e.CourseID)]; ok {
			conflicts = append(conflicts, e.CourseID)
		}
	}
	if len(conflicts) > 0 {
		return nil, &enrollment.AlreadyEnrolledError{
			StudentID: enrollments[0].StudentID,
			CourseIDs: conflicts,
		}
	}

	for _, e := range enrollments {
		f.byPair[pairKey(e.StudentID, e.CourseID)] = e
	}
	return enrollments, nil
}

func (f *fakeEnrollments) GetByPair(_ context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.byPair[pairKey(studentID, courseID)]
	if !ok {
		return nil, enrollment.ErrNotEnrolled
	}
	return e, nil
}

func (f *fakeEnrollments) ListByStudent(_ context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range f.byPair {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
	return out, nil
}

func (f *fakeEnrollments) ListByCourse(_ context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	var out []*enrollment.Enrollment
	for _, e := range f.byPair {
		if e.CourseID == courseID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnrolledAt.Before(out[j].EnrolledAt) })
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

// ══════════════════════════════════════════════════════════════════════════════
// LESSONS
// ══════════════════════════════════════════════════════════════════════════════

type fakeLessons struct {
	mu   sync.Mutex
	byID map[string]*lesson.Lesson
}

func newFakeLessons() *fakeLessons {
	return &fakeLessons{byID: make(map[string]*lesson.Lesson)}
}

func (f *fakeLessons) seed(id, courseID string, date time.Time) *lesson.Lesson {
	l, err := lesson.NewLesson(lesson.NewLessonParams{
		ID:       id,
		CourseID: courseID,
		Date:     date,
		Topic:    "Topic " + id,
	})
	if err != nil {
		panic(fmt.Sprintf("seed lesson %s: %v", id, err))
	}
	f.byID[l.ID] = l
	return l
}

func (f *fakeLessons) Create(_ context.Context, l *lesson.Lesson) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.CourseID == l.CourseID && existing.Date.Equal(l.Date) {
			return &lesson.DuplicateLessonError{CourseID: l.CourseID, Date: l.Date}
		}
	}
	f.byID[l.ID] = l
	return nil
}

func (f *fakeLessons) GetByID(_ context.Context, id string) (*lesson.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.byID[id]
	if !ok {
		return nil, lesson.ErrLessonNotFound
	}
	return l, nil
}

func (f *fakeLessons) ListByCourse(_ context.Context, courseID string) ([]*lesson.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*lesson.Lesson
	for _, l := range f.byID {
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

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE RECORDER
// ══════════════════════════════════════════════════════════════════════════════

// fakeRecorder upserts marks and recomputes the percentage the way the
// transactional postgres recorder does, against the fake lesson and
// enrollment stores.
type fakeRecorder struct {
	lessons     *fakeLessons
	enrollments *fakeEnrollments
	marks       map[string]*attendance.Attendance // lessonID + "|" + studentID
}

func newFakeRecorder(lessons *fakeLessons, enrollments *fakeEnrollments) *fakeRecorder {
	return &fakeRecorder{
		lessons:     lessons,
		enrollments: enrollments,
		marks:       make(map[string]*attendance.Attendance),
	}
}

func (f *fakeRecorder) Mark(ctx context.Context, a *attendance.Attendance) (*attendance.MarkResult, error) {
	l, err := f.lessons.GetByID(ctx, a.LessonID)
	if err != nil {
		return nil, err
	}

	record, err := f.enrollments.GetByPair(ctx, a.StudentID, l.CourseID)
	if err != nil {
		return nil, err
	}

	key := a.LessonID + "|" + a.StudentID
	updated := false
	if existing, ok := f.marks[key]; ok {
		if err := existing.Remark(a.Status, a.MarkedByID); err != nil {
			return nil, err
		}
		a = existing
		updated = true
	} else {
		f.marks[key] = a
	}

	courseLessons, _ := f.lessons.ListByCourse(ctx, l.CourseID)
	present := 0
	for _, cl := range courseLessons {
		if m, ok := f.marks[cl.ID+"|"+a.StudentID]; ok && m.Status.CountsAsPresent() {
			present++
		}
	}
	record.AttendancePercentage = enrollment.ComputePercentage(present, len(courseLessons))

	return &attendance.MarkResult{
		Record:     a,
		Updated:    updated,
		Percentage: record.AttendancePercentage,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTER & REFERENCE DATA
// ══════════════════════════════════════════════════════════════════════════════

type fakeRecomputer struct {
	percentage float64
	err        error
	errOnce    error // returned by the first call only, then cleared
	calls      int
}

func (f *fakeRecomputer) Recompute(_ context.Context, _, _ string) (float64, error) {
	f.calls++
	if f.errOnce != nil {
		err := f.errOnce
		f.errOnce = nil
		return 0, err
	}
	if f.err != nil {
		return 0, f.err
	}
	return f.percentage, nil
}

func (f *fakeRecomputer) RecomputeCourse(_ context.Context, _ string) error {
	f.calls++
	return f.err
}

type fakeReference struct {
	rooms  map[string]*reference.Room
	shifts map[string]*reference.Shift
}

func newFakeReference() *fakeReference {
	return &fakeReference{
		rooms: map[string]*reference.Room{
			"room-1": {ID: "room-1", Number: "101", Capacity: 20},
			"room-2": {ID: "room-2", Number: "102", Capacity: 15},
		},
		shifts: map[string]*reference.Shift{
			"shift-1": {ID: "shift-1", Name: "Morning", StartTime: 9 * time.Hour, EndTime: 11 * time.Hour},
			"shift-2": {ID: "shift-2", Name: "Evening", StartTime: 18 * time.Hour, EndTime: 20 * time.Hour},
		},
	}
}

func (f *fakeReference) GetRoom(_ context.Context, id string) (*reference.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return nil, reference.ErrRoomNotFound
	}
	return r, nil
}

func (f *fakeReference) GetShift(_ context.Context, id string) (*reference.Shift, error) {
	s, ok := f.shifts[id]
	if !ok {
		return nil, reference.ErrShiftNotFound
	}
	return s, nil
}

func (f *fakeReference) ListRooms(_ context.Context) ([]*reference.Room, error) {
	out := make([]*reference.Room, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (f *fakeReference) ListShifts(_ context.Context) ([]*reference.Shift, error) {
	out := make([]*reference.Shift, 0, len(f.shifts))
	for _, s := range f.shifts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}
