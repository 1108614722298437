package command

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
)

type courseFixture struct {
	users   *fakeUsers
	courses *fakeCourses
	ref     *fakeReference
	events  *capturePublisher
}

func newCourseFixture() *courseFixture {
	f := &courseFixture{
		users:   newFakeUsers(),
		courses: newFakeCourses(),
		ref:     newFakeReference(),
		events:  &capturePublisher{},
	}
	f.users.seed("adm", "admin", reference.RoleAdmin)
	f.users.seed("tch", "teacher", reference.RoleTeacher)
	f.users.seed("std", "student", reference.RoleStudent)
	return f
}

func (f *courseFixture) createHandler() *CreateCourseHandler {
	return NewCreateCourseHandler(f.courses, f.users, f.ref, f.events, testLogger())
}

func (f *courseFixture) updateHandler() *UpdateCourseHandler {
	return NewUpdateCourseHandler(f.courses, f.users, f.ref, f.events, testLogger())
}

func (f *courseFixture) deactivateHandler() *DeactivateCourseHandler {
	return NewDeactivateCourseHandler(f.courses, f.users, f.events, testLogger())
}

func validCreate() CreateCourseCommand {
	return CreateCourseCommand{
		ActorID:   "adm",
		Name:      "Go Basics",
		Level:     reference.LevelBeginner,
		RoomID:    "room-1",
		ShiftID:   "shift-1",
		TeacherID: "tch",
	}
}

func TestCreateCourse(t *testing.T) {
	f := newCourseFixture()

	result, err := f.createHandler().Handle(context.Background(), validCreate())
	assert.NoError(t, err)
	assert.Equal(t, "Go Basics", result.Name)

	c, err := f.courses.GetByID(context.Background(), result.CourseID)
	assert.NoError(t, err)
	assert.True(t, c.Active)
	assert.Len(t, f.events.byType(shared.EventCourseCreated), 1)
}

func TestCreateCourse_SlotConflict(t *testing.T) {
	f := newCourseFixture()
	h := f.createHandler()

	first, err := h.Handle(context.Background(), validCreate())
	assert.NoError(t, err)

	second := validCreate()
	second.Name = "Go Advanced"
	_, err = h.Handle(context.Background(), second)

	assert.True(t, course.IsSchedulingConflict(err))
	var conflict *course.SchedulingConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.CourseID, conflict.ConflictingCourseID)

	// Same room in a different shift is free.
	third := validCreate()
	third.Name = "Go Evening"
	third.ShiftID = "shift-2"
	_, err = h.Handle(context.Background(), third)
	assert.NoError(t, err)
}

func TestCreateCourse_ConcurrentSlotClaimHasOneWinner(t *testing.T) {
	f := newCourseFixture()
	h := f.createHandler()

	const racers = 8
	errs := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := validCreate()
			cmd.Name = fmt.Sprintf("Go Basics %d", i)
			_, errs[i] = h.Handle(context.Background(), cmd)
		}(i)
	}
	wg.Wait()

	wins, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case course.IsSchedulingConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)

	// The slot holds exactly one active course.
	active, err := f.courses.ListActive(context.Background())
	assert.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCreateCourse_Authorization(t *testing.T) {
	f := newCourseFixture()
	h := f.createHandler()

	t.Run("teacher cannot manage courses", func(t *testing.T) {
		cmd := validCreate()
		cmd.ActorID = "tch"
		_, err := h.Handle(context.Background(), cmd)
		assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	})

	t.Run("assigned user must be a teacher", func(t *testing.T) {
		cmd := validCreate()
		cmd.TeacherID = "std"
		_, err := h.Handle(context.Background(), cmd)
		assert.ErrorIs(t, err, user.ErrNotATeacher)
	})
}

func TestCreateCourse_UnknownReferences(t *testing.T) {
	f := newCourseFixture()
	h := f.createHandler()

	cmd := validCreate()
	cmd.RoomID = "room-99"
	_, err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, reference.ErrRoomNotFound)

	cmd = validCreate()
	cmd.ShiftID = "shift-99"
	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, reference.ErrShiftNotFound)
}

func TestUpdateCourse_KeepingOwnSlotIsNotAConflict(t *testing.T) {
	f := newCourseFixture()

	created, err := f.createHandler().Handle(context.Background(), validCreate())
	assert.NoError(t, err)

	err = f.updateHandler().Handle(context.Background(), UpdateCourseCommand{
		ActorID:   "adm",
		CourseID:  created.CourseID,
		Name:      "Go Basics Renamed",
		Level:     reference.LevelElementary,
		RoomID:    "room-1",
		ShiftID:   "shift-1",
		TeacherID: "tch",
	})
	assert.NoError(t, err)

	c, err := f.courses.GetByID(context.Background(), created.CourseID)
	assert.NoError(t, err)
	assert.Equal(t, "Go Basics Renamed", c.Name)
	assert.Equal(t, reference.LevelElementary, c.Level)
}

func TestUpdateCourse_MovingIntoOccupiedSlot(t *testing.T) {
	f := newCourseFixture()
	h := f.createHandler()

	first, err := h.Handle(context.Background(), validCreate())
	assert.NoError(t, err)

	second := validCreate()
	second.Name = "Go Evening"
	second.ShiftID = "shift-2"
	moved, err := h.Handle(context.Background(), second)
	assert.NoError(t, err)

	err = f.updateHandler().Handle(context.Background(), UpdateCourseCommand{
		ActorID:   "adm",
		CourseID:  moved.CourseID,
		Name:      "Go Evening",
		Level:     reference.LevelBeginner,
		RoomID:    "room-1",
		ShiftID:   "shift-1",
		TeacherID: "tch",
	})

	assert.True(t, course.IsSchedulingConflict(err))
	var conflict *course.SchedulingConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, first.CourseID, conflict.ConflictingCourseID)
}

func TestUpdateCourse_InactiveRejected(t *testing.T) {
	f := newCourseFixture()

	created, err := f.createHandler().Handle(context.Background(), validCreate())
	assert.NoError(t, err)
	assert.NoError(t, f.deactivateHandler().Handle(context.Background(), DeactivateCourseCommand{
		ActorID:  "adm",
		CourseID: created.CourseID,
	}))

	err = f.updateHandler().Handle(context.Background(), UpdateCourseCommand{
		ActorID:   "adm",
		CourseID:  created.CourseID,
		Name:      "Too Late",
		Level:     reference.LevelBeginner,
		RoomID:    "room-1",
		ShiftID:   "shift-1",
		TeacherID: "tch",
	})
	assert.ErrorIs(t, err, course.ErrCourseInactive)
}

func TestDeactivateCourse_ReleasesSlot(t *testing.T) {
	f := newCourseFixture()
	h := f.createHandler()

	created, err := h.Handle(context.Background(), validCreate())
	assert.NoError(t, err)

	assert.NoError(t, f.deactivateHandler().Handle(context.Background(), DeactivateCourseCommand{
		ActorID:  "adm",
		CourseID: created.CourseID,
	}))

	// The slot is free again for a new course.
	reuse := validCreate()
	reuse.Name = "Go Basics II"
	_, err = h.Handle(context.Background(), reuse)
	assert.NoError(t, err)
}

func TestDeactivateCourse_TwiceIsNoOp(t *testing.T) {
	f := newCourseFixture()

	created, err := f.createHandler().Handle(context.Background(), validCreate())
	assert.NoError(t, err)

	h := f.deactivateHandler()
	cmd := DeactivateCourseCommand{ActorID: "adm", CourseID: created.CourseID}
	assert.NoError(t, h.Handle(context.Background(), cmd))
	assert.NoError(t, h.Handle(context.Background(), cmd))

	// Only one deactivation event for the two calls.
	assert.Len(t, f.events.byType(shared.EventCourseDeactivated), 1)
}
