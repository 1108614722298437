// Package attendance contains the attendance recorder domain model: one
// outcome per (lesson, student) pair. Re-marking updates the record in
// place; it never creates a duplicate. Every write triggers recomputation
// of the affected attendance percentage in the same transaction.
package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

// Attendance records one student's outcome for one lesson.
type Attendance struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// LessonID and StudentID form the unique pair.
	LessonID  string
	StudentID string

	// Status is the recorded outcome (present/absent/late).
	Status reference.AttendanceStatus

	// MarkedByID is the teacher who last marked this record.
	MarkedByID string

	// MarkedAt is the last-write timestamp; it is refreshed on re-marking,
	// not frozen at first write.
	MarkedAt time.Time
}

// Remark updates the outcome in place.
func (a *Attendance) Remark(status reference.AttendanceStatus, markedByID string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", reference.ErrInvalidAttendanceStatus, status)
	}
	a.Status = status
	a.MarkedByID = markedByID
	a.MarkedAt = time.Now().UTC()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrAttendanceNotFound - attendance record not found.
	ErrAttendanceNotFound = errors.New("attendance record not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// NewAttendanceParams contains parameters for recording an outcome.
type NewAttendanceParams struct {
	ID         string
	LessonID   string
	StudentID  string
	Status     reference.AttendanceStatus
	MarkedByID string
}

// NewAttendance creates an attendance record with validation of all fields.
func NewAttendance(params NewAttendanceParams) (*Attendance, error) {
	if params.ID == "" {
		return nil, errors.New("attendance id is required")
	}
	if params.LessonID == "" {
		return nil, errors.New("lesson id is required")
	}
	if params.StudentID == "" {
		return nil, errors.New("student id is required")
	}
	if params.MarkedByID == "" {
		return nil, errors.New("marker id is required")
	}
	if !params.Status.IsValid() {
		return nil, fmt.Errorf("%w: %q", reference.ErrInvalidAttendanceStatus, params.Status)
	}

	return &Attendance{
		ID:         params.ID,
		LessonID:   params.LessonID,
		StudentID:  params.StudentID,
		Status:     params.Status,
		MarkedByID: params.MarkedByID,
		MarkedAt:   time.Now().UTC(),
	}, nil
}
