package attendance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

func TestNewAttendance(t *testing.T) {
	a, err := NewAttendance(NewAttendanceParams{
		ID:         "a1",
		LessonID:   "l1",
		StudentID:  "s1",
		Status:     reference.StatusPresent,
		MarkedByID: "t1",
	})
	assert.NoError(t, err)
	assert.Equal(t, reference.StatusPresent, a.Status)
	assert.Equal(t, "t1", a.MarkedByID)
	assert.False(t, a.MarkedAt.IsZero())
}

func TestNewAttendance_Validation(t *testing.T) {
	valid := NewAttendanceParams{
		ID:         "a1",
		LessonID:   "l1",
		StudentID:  "s1",
		Status:     reference.StatusAbsent,
		MarkedByID: "t1",
	}

	t.Run("missing lesson", func(t *testing.T) {
		p := valid
		p.LessonID = ""
		_, err := NewAttendance(p)
		assert.Error(t, err)
	})

	t.Run("missing marker", func(t *testing.T) {
		p := valid
		p.MarkedByID = ""
		_, err := NewAttendance(p)
		assert.Error(t, err)
	})

	t.Run("unknown status", func(t *testing.T) {
		p := valid
		p.Status = reference.AttendanceStatus("vacationing")
		_, err := NewAttendance(p)
		assert.ErrorIs(t, err, reference.ErrInvalidAttendanceStatus)
	})
}

func TestRemark(t *testing.T) {
	a, err := NewAttendance(NewAttendanceParams{
		ID:         "a1",
		LessonID:   "l1",
		StudentID:  "s1",
		Status:     reference.StatusAbsent,
		MarkedByID: "t1",
	})
	assert.NoError(t, err)

	first := a.MarkedAt
	time.Sleep(time.Millisecond)

	assert.NoError(t, a.Remark(reference.StatusPresent, "t2"))
	assert.Equal(t, reference.StatusPresent, a.Status)
	assert.Equal(t, "t2", a.MarkedByID)
	assert.True(t, a.MarkedAt.After(first))

	// Identity never changes on a re-mark.
	assert.Equal(t, "a1", a.ID)

	assert.Error(t, a.Remark(reference.AttendanceStatus("bogus"), "t1"))
}
