package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
)

func newCreateUserFixture() (*CreateUserHandler, *fakeUsers, *capturePublisher) {
	users := newFakeUsers()
	events := &capturePublisher{}
	return NewCreateUserHandler(users, events, testLogger()), users, events
}

func TestCreateUser_SuperadminCreatesAdmin(t *testing.T) {
	h, users, events := newCreateUserFixture()
	users.seed("root", "root", reference.RoleSuperadmin)

	result, err := h.Handle(context.Background(), CreateUserCommand{
		ActorID:   "root",
		Username:  "director",
		FirstName: "Dana",
		LastName:  "Lee",
		Password:  "long-enough-pass",
		Role:      reference.RoleAdmin,
	})
	assert.NoError(t, err)
	assert.Equal(t, "director", result.Username)
	assert.Equal(t, "admin", result.Role)

	created, err := users.GetByID(context.Background(), result.UserID)
	assert.NoError(t, err)
	assert.True(t, created.Active)
	assert.Len(t, events.byType(shared.EventUserCreated), 1)
}

func TestCreateUser_AdminCreatesTeacherAndStudent(t *testing.T) {
	h, users, _ := newCreateUserFixture()
	users.seed("adm", "admin", reference.RoleAdmin)

	for _, role := range []reference.Role{reference.RoleTeacher, reference.RoleStudent} {
		result, err := h.Handle(context.Background(), CreateUserCommand{
			ActorID:   "adm",
			Username:  "user_" + role.String(),
			FirstName: "A",
			LastName:  "B",
			Password:  "long-enough-pass",
			Role:      role,
		})
		assert.NoError(t, err, role)
		assert.Equal(t, role.String(), result.Role)
	}
}

func TestCreateUser_AdminCannotCreateAdmin(t *testing.T) {
	h, users, events := newCreateUserFixture()
	users.seed("adm", "admin", reference.RoleAdmin)

	_, err := h.Handle(context.Background(), CreateUserCommand{
		ActorID:  "adm",
		Username: "rival",
		Password: "long-enough-pass",
		Role:     reference.RoleAdmin,
	})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
	assert.Empty(t, events.events)
}

func TestCreateUser_TeacherCannotCreateAnyone(t *testing.T) {
	h, users, _ := newCreateUserFixture()
	users.seed("tch", "teacher", reference.RoleTeacher)

	_, err := h.Handle(context.Background(), CreateUserCommand{
		ActorID:  "tch",
		Username: "pupil",
		Password: "long-enough-pass",
		Role:     reference.RoleStudent,
	})
	assert.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestCreateUser_Validation(t *testing.T) {
	h, users, _ := newCreateUserFixture()
	users.seed("root", "root", reference.RoleSuperadmin)

	t.Run("superadmin role rejected", func(t *testing.T) {
		_, err := h.Handle(context.Background(), CreateUserCommand{
			ActorID:  "root",
			Username: "another_root",
			Password: "long-enough-pass",
			Role:     reference.RoleSuperadmin,
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := h.Handle(context.Background(), CreateUserCommand{
			ActorID:  "root",
			Username: "shorty",
			Password: "short",
			Role:     reference.RoleAdmin,
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("unknown role", func(t *testing.T) {
		_, err := h.Handle(context.Background(), CreateUserCommand{
			ActorID:  "root",
			Username: "nobody",
			Password: "long-enough-pass",
			Role:     reference.Role("janitor"),
		})
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("unknown actor", func(t *testing.T) {
		_, err := h.Handle(context.Background(), CreateUserCommand{
			ActorID:  "ghost",
			Username: "nobody",
			Password: "long-enough-pass",
			Role:     reference.RoleAdmin,
		})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
	})
}

func TestCreateUser_UsernameTaken(t *testing.T) {
	h, users, events := newCreateUserFixture()
	users.seed("root", "root", reference.RoleSuperadmin)
	users.seed("adm", "director", reference.RoleAdmin)

	_, err := h.Handle(context.Background(), CreateUserCommand{
		ActorID:   "root",
		Username:  "director",
		FirstName: "Dana",
		LastName:  "Lee",
		Password:  "long-enough-pass",
		Role:      reference.RoleAdmin,
	})
	assert.ErrorIs(t, err, user.ErrUsernameTaken)
	assert.Empty(t, events.events)
}

func TestCreateUser_PasswordIsHashed(t *testing.T) {
	h, users, _ := newCreateUserFixture()
	users.seed("root", "root", reference.RoleSuperadmin)

	result, err := h.Handle(context.Background(), CreateUserCommand{
		ActorID:   "root",
		Username:  "hashed",
		FirstName: "Hash",
		LastName:  "Check",
		Password:  "long-enough-pass",
		Role:      reference.RoleAdmin,
	})
	assert.NoError(t, err)

	created, err := users.GetByID(context.Background(), result.UserID)
	assert.NoError(t, err)
	assert.NotEqual(t, "long-enough-pass", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("long-enough-pass")))
}
