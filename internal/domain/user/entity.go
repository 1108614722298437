// Package user contains the user domain model for Academy LMS.
// The core treats a user as an opaque principal with a role tag and a unique
// username; sessions and the authentication protocol live outside this module.
package user

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERMISSIONS
// ══════════════════════════════════════════════════════════════════════════════

// Action is an operation a principal may be permitted to perform.
type Action string

const (
	ActionCreateAdmin    Action = "create_admin"
	ActionCreateTeacher  Action = "create_teacher"
	ActionCreateStudent  Action = "create_student"
	ActionManageCourses  Action = "manage_courses"
	ActionEnrollStudents Action = "enroll_students"
	ActionScheduleLesson Action = "schedule_lesson"
	ActionMarkAttendance Action = "mark_attendance"
	ActionViewAttendance Action = "view_attendance"
)

// rolePermissions is the single dispatch point mapping role to permitted
// action set. Keep authorization decisions here rather than scattering
// role checks through handlers.
var rolePermissions = map[reference.Role]map[Action]bool{
	reference.RoleSuperadmin: {
		ActionCreateAdmin: true,
	},
	reference.RoleAdmin: {
		ActionCreateTeacher:  true,
		ActionCreateStudent:  true,
		ActionManageCourses:  true,
		ActionEnrollStudents: true,
	},
	reference.RoleTeacher: {
		ActionScheduleLesson: true,
		ActionMarkAttendance: true,
		ActionViewAttendance: true,
	},
	reference.RoleStudent: {
		ActionViewAttendance: true,
	},
}

// Can reports whether the role permits the action.
func Can(role reference.Role, action Action) bool {
	return rolePermissions[role][action]
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// User is a principal known to the system.
type User struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// Username is the unique login name.
	Username string

	// FirstName and LastName form the display name.
	FirstName string
	LastName  string

	// Email is the contact address.
	Email string

	// PasswordHash is the bcrypt hash of the password. Never the plaintext.
	PasswordHash string

	// Role is the role tag driving permission dispatch.
	Role reference.Role

	// Active marks whether the account may act. Users are deactivated,
	// never hard-deleted, so historical references stay intact.
	Active bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName returns "First Last".
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Can reports whether this user's role permits the action. Inactive users
// are permitted nothing.
func (u *User) Can(action Action) bool {
	if !u.Active {
		return false
	}
	return Can(u.Role, action)
}

// IsTeacher reports whether the user carries the teacher role.
func (u *User) IsTeacher() bool {
	return u.Role == reference.RoleTeacher
}

// IsStudent reports whether the user carries the student role.
func (u *User) IsStudent() bool {
	return u.Role == reference.RoleStudent
}

// Deactivate marks the account inactive.
func (u *User) Deactivate() {
	u.Active = false
	u.UpdatedAt = time.Now().UTC()
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrUserNotFound - user not found.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken - username already exists.
	ErrUsernameTaken = errors.New("username already exists")

	// ErrInvalidUsername - username fails validation.
	ErrInvalidUsername = errors.New("invalid username: must be 2-150 chars without whitespace")

	// ErrInvalidName - first or last name fails validation.
	ErrInvalidName = errors.New("invalid name: must be 1-30 chars")

	// ErrNotATeacher - a teacher-roled user was required.
	ErrNotATeacher = errors.New("user does not have the teacher role")

	// ErrNotAStudent - a student-roled user was required.
	ErrNotAStudent = errors.New("user does not have the student role")

	// ErrUserInactive - the account is deactivated.
	ErrUserInactive = errors.New("user account is inactive")
)

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// NewUserParams contains parameters for creating a new user.
type NewUserParams struct {
	ID           string
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         reference.Role
}

// NewUser creates a new user with validation of all fields.
func NewUser(params NewUserParams) (*User, error) {
	if params.ID == "" {
		return nil, errors.New("user id is required")
	}

	username := strings.TrimSpace(params.Username)
	if len(username) < 2 || len(username) > 150 || strings.ContainsAny(username, " \t\n\r") {
		return nil, ErrInvalidUsername
	}

	firstName := strings.TrimSpace(params.FirstName)
	lastName := strings.TrimSpace(params.LastName)
	if len(firstName) == 0 || len(firstName) > 30 || len(lastName) == 0 || len(lastName) > 30 {
		return nil, ErrInvalidName
	}

	if !params.Role.IsValid() {
		return nil, fmt.Errorf("%w: %q", reference.ErrInvalidRole, params.Role)
	}

	if params.PasswordHash == "" {
		return nil, errors.New("password hash is required")
	}

	now := time.Now().UTC()

	return &User{
		ID:           params.ID,
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        strings.TrimSpace(params.Email),
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
