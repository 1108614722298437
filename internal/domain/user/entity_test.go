package user

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

func TestRolePermissionDispatch(t *testing.T) {
	tests := []struct {
		role    reference.Role
		action  Action
		allowed bool
	}{
		{reference.RoleSuperadmin, ActionCreateAdmin, true},
		{reference.RoleSuperadmin, ActionCreateTeacher, false},
		{reference.RoleSuperadmin, ActionManageCourses, false},
		{reference.RoleSuperadmin, ActionMarkAttendance, false},

		{reference.RoleAdmin, ActionCreateTeacher, true},
		{reference.RoleAdmin, ActionCreateStudent, true},
		{reference.RoleAdmin, ActionManageCourses, true},
		{reference.RoleAdmin, ActionEnrollStudents, true},
		{reference.RoleAdmin, ActionCreateAdmin, false},
		{reference.RoleAdmin, ActionScheduleLesson, false},
		{reference.RoleAdmin, ActionMarkAttendance, false},

		{reference.RoleTeacher, ActionScheduleLesson, true},
		{reference.RoleTeacher, ActionMarkAttendance, true},
		{reference.RoleTeacher, ActionViewAttendance, true},
		{reference.RoleTeacher, ActionManageCourses, false},
		{reference.RoleTeacher, ActionEnrollStudents, false},
		{reference.RoleTeacher, ActionCreateStudent, false},

		{reference.RoleStudent, ActionViewAttendance, true},
		{reference.RoleStudent, ActionMarkAttendance, false},
		{reference.RoleStudent, ActionScheduleLesson, false},
	}

	for _, tt := range tests {
		got := Can(tt.role, tt.action)
		assert.Equal(t, tt.allowed, got, "%s / %s", tt.role, tt.action)
	}
}

func TestUserCan_InactiveDeniedEverything(t *testing.T) {
	u := &User{Role: reference.RoleAdmin, Active: true}
	assert.True(t, u.Can(ActionManageCourses))

	u.Deactivate()
	assert.False(t, u.Can(ActionManageCourses))
	assert.False(t, u.Can(ActionEnrollStudents))
}

func TestNewUser(t *testing.T) {
	params := NewUserParams{
		ID:           "u1",
		Username:     "  aida.bek  ",
		FirstName:    " Aida ",
		LastName:     "Bek",
		Email:        "aida@example.com",
		PasswordHash: "$2a$10$hash",
		Role:         reference.RoleStudent,
	}

	u, err := NewUser(params)
	assert.NoError(t, err)
	assert.Equal(t, "aida.bek", u.Username)
	assert.Equal(t, "Aida Bek", u.FullName())
	assert.True(t, u.Active)
	assert.True(t, u.IsStudent())
	assert.False(t, u.IsTeacher())
}

func TestNewUser_Validation(t *testing.T) {
	valid := NewUserParams{
		ID:           "u1",
		Username:     "teacher1",
		FirstName:    "Dana",
		LastName:     "Serik",
		PasswordHash: "hash",
		Role:         reference.RoleTeacher,
	}

	t.Run("username with whitespace", func(t *testing.T) {
		p := valid
		p.Username = "two words"
		_, err := NewUser(p)
		assert.ErrorIs(t, err, ErrInvalidUsername)
	})

	t.Run("username too short", func(t *testing.T) {
		p := valid
		p.Username = "a"
		_, err := NewUser(p)
		assert.ErrorIs(t, err, ErrInvalidUsername)
	})

	t.Run("empty first name", func(t *testing.T) {
		p := valid
		p.FirstName = "   "
		_, err := NewUser(p)
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("unknown role", func(t *testing.T) {
		p := valid
		p.Role = reference.Role("janitor")
		_, err := NewUser(p)
		assert.ErrorIs(t, err, reference.ErrInvalidRole)
	})

	t.Run("missing password hash", func(t *testing.T) {
		p := valid
		p.PasswordHash = ""
		_, err := NewUser(p)
		assert.Error(t, err)
	})
}
