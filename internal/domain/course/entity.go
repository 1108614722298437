// Package course contains the course domain model and the scheduling
// allocator contract: at most one active course may claim a (room, shift)
// pair at any time.
package course

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

// Course is one taught class occupying a (room, shift) slot.
type Course struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// Name is the display name of the course.
	Name string

	// Level is the proficiency level tag.
	Level reference.Level

	// RoomID and ShiftID identify the claimed slot.
	RoomID  string
	ShiftID string

	// TeacherID is the owning teacher. Only that teacher schedules lessons
	// and marks attendance for the course.
	TeacherID string

	// Active marks whether the course currently occupies its slot.
	// Courses are deactivated, never hard-deleted, to preserve historical
	// lesson, attendance and enrollment references.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deactivate releases the course's (room, shift) slot.
func (c *Course) Deactivate() {
	c.Active = false
	c.UpdatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCourseNotFound - course not found or inactive.
	ErrCourseNotFound = errors.New("course not found")

	// ErrInvalidCourseName - course name fails validation.
	ErrInvalidCourseName = errors.New("invalid course name: must be 1-100 chars")

	// ErrCourseInactive - the course has been deactivated.
	ErrCourseInactive = errors.New("course is inactive")
)

// SchedulingConflictError reports that another active course already claims
// the (room, shift) slot.
type SchedulingConflictError struct {
	RoomID              string
	ShiftID             string
	ConflictingCourseID string
}

// Error implements the error interface.
func (e *SchedulingConflictError) Error() string {
	return fmt.Sprintf("scheduling conflict: room %s is already booked for shift %s by course %s",
		e.RoomID, e.ShiftID, e.ConflictingCourseID)
}

// IsSchedulingConflict reports whether err is a SchedulingConflictError.
func IsSchedulingConflict(err error) bool {
	var conflict *SchedulingConflictError
	return errors.As(err, &conflict)
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// NewCourseParams contains parameters for creating a new course.
type NewCourseParams struct {
	ID        string
	Name      string
	Level     reference.Level
	RoomID    string
	ShiftID   string
	TeacherID string
}

// NewCourse creates a new course with validation of all fields.
// The scheduling-conflict check is the repository's job; the factory only
// validates shape.
func NewCourse(params NewCourseParams) (*Course, error) {
	if params.ID == "" {
		return nil, errors.New("course id is required")
	}

	name := strings.TrimSpace(params.Name)
	if len(name) == 0 || len(name) > 100 {
		return nil, ErrInvalidCourseName
	}

	if !params.Level.IsValid() {
		return nil, fmt.Errorf("%w: %q", reference.ErrInvalidLevel, params.Level)
	}

	if params.RoomID == "" {
		return nil, errors.New("room id is required")
	}
	if params.ShiftID == "" {
		return nil, errors.New("shift id is required")
	}
	if params.TeacherID == "" {
		return nil, errors.New("teacher id is required")
	}

	now := time.Now().UTC()

	return &Course{
		ID:        params.ID,
		Name:      name,
		Level:     params.Level,
		RoomID:    params.RoomID,
		ShiftID:   params.ShiftID,
		TeacherID: params.TeacherID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
