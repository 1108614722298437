package course

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

func validParams() NewCourseParams {
	return NewCourseParams{
		ID:        "c1",
		Name:      "Go Bootcamp",
		Level:     reference.LevelIntermediate,
		RoomID:    "r1",
		ShiftID:   "sh1",
		TeacherID: "t1",
	}
}

func TestNewCourse(t *testing.T) {
	c, err := NewCourse(validParams())
	assert.NoError(t, err)
	assert.Equal(t, "Go Bootcamp", c.Name)
	assert.True(t, c.Active)
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)
}

func TestNewCourse_Validation(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		p := validParams()
		p.Name = "  "
		_, err := NewCourse(p)
		assert.ErrorIs(t, err, ErrInvalidCourseName)
	})

	t.Run("name too long", func(t *testing.T) {
		p := validParams()
		p.Name = strings.Repeat("x", 101)
		_, err := NewCourse(p)
		assert.ErrorIs(t, err, ErrInvalidCourseName)
	})

	t.Run("unknown level", func(t *testing.T) {
		p := validParams()
		p.Level = reference.Level("wizard")
		_, err := NewCourse(p)
		assert.ErrorIs(t, err, reference.ErrInvalidLevel)
	})

	t.Run("missing slot", func(t *testing.T) {
		p := validParams()
		p.RoomID = ""
		_, err := NewCourse(p)
		assert.Error(t, err)

		p = validParams()
		p.ShiftID = ""
		_, err = NewCourse(p)
		assert.Error(t, err)
	})

	t.Run("missing teacher", func(t *testing.T) {
		p := validParams()
		p.TeacherID = ""
		_, err := NewCourse(p)
		assert.Error(t, err)
	})
}

func TestDeactivate(t *testing.T) {
	c, err := NewCourse(validParams())
	assert.NoError(t, err)

	c.Deactivate()
	assert.False(t, c.Active)
	assert.True(t, c.UpdatedAt.After(c.CreatedAt) || c.UpdatedAt.Equal(c.CreatedAt))
}

func TestSchedulingConflictError(t *testing.T) {
	conflict := &SchedulingConflictError{
		RoomID:              "r1",
		ShiftID:             "sh1",
		ConflictingCourseID: "c9",
	}

	assert.True(t, IsSchedulingConflict(conflict))
	assert.True(t, IsSchedulingConflict(fmt.Errorf("create course: %w", conflict)))
	assert.Contains(t, conflict.Error(), "r1")
	assert.Contains(t, conflict.Error(), "c9")

	assert.False(t, IsSchedulingConflict(ErrCourseNotFound))
	assert.False(t, IsSchedulingConflict(errors.New("boom")))
}
