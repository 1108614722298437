// Package reference contains the closed reference enumerations and the small
// seldom-mutated reference entities (rooms, shifts) that the rest of the
// domain points at. The enumerations are fixed code sets with human-readable
// labels; they are seeded once and never cascade-deleted.
package reference

import (
	"context"
	"errors"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROLE
// ══════════════════════════════════════════════════════════════════════════════

// Role is the closed set of user roles.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleTeacher    Role = "teacher"
	RoleStudent    Role = "student"
)

// Roles lists every role in display order.
func Roles() []Role {
	return []Role{RoleSuperadmin, RoleAdmin, RoleTeacher, RoleStudent}
}

// IsValid reports whether the role is one of the fixed values.
func (r Role) IsValid() bool {
	switch r {
	case RoleSuperadmin, RoleAdmin, RoleTeacher, RoleStudent:
		return true
	default:
		return false
	}
}

// Label returns the human-readable label for the role.
func (r Role) Label() string {
	switch r {
	case RoleSuperadmin:
		return "Superadmin"
	case RoleAdmin:
		return "Admin"
	case RoleTeacher:
		return "Teacher"
	case RoleStudent:
		return "Student"
	default:
		return string(r)
	}
}

// String returns the role tag.
func (r Role) String() string { return string(r) }

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL
// ══════════════════════════════════════════════════════════════════════════════

// Level is the closed set of course proficiency levels.
type Level string

const (
	LevelBeginner          Level = "beginner"
	LevelElementary        Level = "elementary"
	LevelIntermediate      Level = "intermediate"
	LevelUpperIntermediate Level = "upper_intermediate"
	LevelAdvanced          Level = "advanced"
)

// Levels lists every level in ascending order.
func Levels() []Level {
	return []Level{
		LevelBeginner,
		LevelElementary,
		LevelIntermediate,
		LevelUpperIntermediate,
		LevelAdvanced,
	}
}

// IsValid reports whether the level is one of the fixed values.
func (l Level) IsValid() bool {
	switch l {
	case LevelBeginner, LevelElementary, LevelIntermediate, LevelUpperIntermediate, LevelAdvanced:
		return true
	default:
		return false
	}
}

// Label returns the human-readable label for the level.
func (l Level) Label() string {
	switch l {
	case LevelBeginner:
		return "Beginner"
	case LevelElementary:
		return "Elementary"
	case LevelIntermediate:
		return "Intermediate"
	case LevelUpperIntermediate:
		return "Upper Intermediate"
	case LevelAdvanced:
		return "Advanced"
	default:
		return string(l)
	}
}

// String returns the level tag.
func (l Level) String() string { return string(l) }

// ══════════════════════════════════════════════════════════════════════════════
// ATTENDANCE STATUS
// ══════════════════════════════════════════════════════════════════════════════

// AttendanceStatus is the closed set of per-lesson attendance outcomes.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "present"
	StatusAbsent  AttendanceStatus = "absent"
	StatusLate    AttendanceStatus = "late"
)

// AttendanceStatuses lists every status in display order.
func AttendanceStatuses() []AttendanceStatus {
	return []AttendanceStatus{StatusPresent, StatusAbsent, StatusLate}
}

// IsValid reports whether the status is one of the fixed values.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	default:
		return false
	}
}

// CountsAsPresent reports whether the status contributes to the attendance
// percentage numerator. Only "present" counts; "late" does not.
func (s AttendanceStatus) CountsAsPresent() bool {
	return s == StatusPresent
}

// Label returns the human-readable label for the status.
func (s AttendanceStatus) Label() string {
	switch s {
	case StatusPresent:
		return "Present"
	case StatusAbsent:
		return "Absent"
	case StatusLate:
		return "Late"
	default:
		return string(s)
	}
}

// String returns the status tag.
func (s AttendanceStatus) String() string { return string(s) }

// ══════════════════════════════════════════════════════════════════════════════
// ROOM & SHIFT
// ══════════════════════════════════════════════════════════════════════════════

// Room is a physical classroom. Referenced by courses, never cascade-deleted.
type Room struct {
	ID       string
	Number   string
	Capacity int
}

// Shift is a fixed daily time slot (e.g. "Morning 9:00-11:00").
type Shift struct {
	ID        string
	Name      string
	StartTime time.Duration // offset from midnight
	EndTime   time.Duration
}

// Overlaps reports whether two shifts overlap in time.
func (s Shift) Overlaps(other Shift) bool {
	return s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// Domain errors for reference data.
var (
	// ErrRoomNotFound - room not found.
	ErrRoomNotFound = errors.New("room not found")

	// ErrShiftNotFound - shift not found.
	ErrShiftNotFound = errors.New("shift not found")

	// ErrInvalidRole - role outside the fixed set.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidLevel - level outside the fixed set.
	ErrInvalidLevel = errors.New("invalid level")

	// ErrInvalidAttendanceStatus - attendance status outside the fixed set.
	ErrInvalidAttendanceStatus = errors.New("invalid attendance status")
)

// Repository provides access to the reference entities.
type Repository interface {
	// GetRoom returns a room by ID.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// GetShift returns a shift by ID.
	GetShift(ctx context.Context, id string) (*Shift, error)

	// ListRooms returns all rooms ordered by number.
	ListRooms(ctx context.Context) ([]*Room, error)

	// ListShifts returns all shifts ordered by start time.
	ListShifts(ctx context.Context) ([]*Shift, error)
}
