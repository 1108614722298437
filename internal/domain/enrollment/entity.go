// Package enrollment contains the enrollment ledger: the Student↔Course
// membership set, one record per (student, course) pair. The enrollment
// record is the sole owner of the derived attendance percentage; the value
// is recomputed by the metric engine, never set directly by a user action.
package enrollment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enrollment associates a student with a course.
type Enrollment struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// StudentID and CourseID form the unique pair.
	StudentID string
	CourseID  string

	// AttendancePercentage is the derived metric in [0,100].
	// Owned by the recomputation engine.
	AttendancePercentage float64

	// EnrolledAt is the enrollment timestamp.
	EnrolledAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNotEnrolled - no enrollment record exists for the (student, course)
	// pair. Recomputation against a missing record is an inconsistency, not
	// a silent no-op.
	ErrNotEnrolled = errors.New("student is not enrolled in the course")

	// ErrEnrollmentNotFound - enrollment record not found by ID.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
)

// AlreadyEnrolledError rejects a batch enrollment when the student already
// has a record for one or more of the requested courses. Batches are
// all-or-nothing: nothing is created when this error is returned.
type AlreadyEnrolledError struct {
	StudentID string
	CourseIDs []string
}

// Error implements the error interface.
func (e *AlreadyEnrolledError) Error() string {
	return fmt.Sprintf("student %s is already enrolled in: %s",
		e.StudentID, strings.Join(e.CourseIDs, ", "))
}

// IsAlreadyEnrolled reports whether err is an AlreadyEnrolledError.
func IsAlreadyEnrolled(err error) bool {
	var already *AlreadyEnrolledError
	return errors.As(err, &already)
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// NewEnrollment creates an enrollment record with a zero percentage.
func NewEnrollment(id, studentID, courseID string) (*Enrollment, error) {
	if id == "" {
		return nil, errors.New("enrollment id is required")
	}
	if studentID == "" {
		return nil, errors.New("student id is required")
	}
	if courseID == "" {
		return nil, errors.New("course id is required")
	}

	return &Enrollment{
		ID:                   id,
		StudentID:            studentID,
		CourseID:             courseID,
		AttendancePercentage: 0,
		EnrolledAt:           time.Now().UTC(),
	}, nil
}
