// Package command contains the write-side handlers. Each command is a
// struct with Validate; handlers check the actor's permission, drive the
// domain repositories, and publish events after the write commits.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// CreateUserCommand creates an account. Superadmins create admins; admins
// create teachers and students.
type CreateUserCommand struct {
	ActorID   string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      reference.Role
}

// Validate checks the command parameters.
func (c CreateUserCommand) Validate() error {
	if c.ActorID == "" {
		return shared.NewValidationError("actor_id", "must not be empty")
	}
	if strings.TrimSpace(c.Username) == "" {
		return shared.NewValidationError("username", "must not be empty")
	}
	if len(c.Password) < 8 {
		return shared.NewValidationError("password", "must be at least 8 characters")
	}
	if !c.Role.IsValid() {
		return shared.NewValidationError("role", "unknown role")
	}
	if c.Role == reference.RoleSuperadmin {
		return shared.NewValidationError("role", "superadmin accounts are provisioned, not created")
	}
	return nil
}

// creationAction maps the target role to the permission the actor needs.
func (c CreateUserCommand) creationAction() user.Action {
	switch c.Role {
	case reference.RoleAdmin:
		return user.ActionCreateAdmin
	case reference.RoleTeacher:
		return user.ActionCreateTeacher
	default:
		return user.ActionCreateStudent
	}
}

// CreateUserResult reports the created account.
type CreateUserResult struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CreateUserHandler handles account creation.
type CreateUserHandler struct {
	users  user.Repository
	events shared.EventPublisher
	log    *logger.Logger
}

// NewCreateUserHandler creates the handler. events may be nil.
func NewCreateUserHandler(users user.Repository, events shared.EventPublisher, log *logger.Logger) *CreateUserHandler {
	return &CreateUserHandler{
		users:  users,
		events: events,
		log:    log.With(logger.Component("create_user")),
	}
}

// Handle creates the account after the role-creation permission check.
func (h *CreateUserHandler) Handle(ctx context.Context, cmd CreateUserCommand) (*CreateUserResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	actor, err := h.users.GetByID(ctx, cmd.ActorID)
	if err != nil {
		return nil, err
	}
	if !actor.Can(cmd.creationAction()) {
		return nil, shared.ErrPermissionDenied
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err := user.NewUser(user.NewUserParams{
		ID:           uuid.NewString(),
		Username:     cmd.Username,
		FirstName:    cmd.FirstName,
		LastName:     cmd.LastName,
		Email:        cmd.Email,
		PasswordHash: string(hash),
		Role:         cmd.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := h.users.Create(ctx, u); err != nil {
		return nil, err
	}

	publishEvent(ctx, h.events, h.log, shared.NewUserCreatedEvent(u.ID, u.Username, u.Role.String()))

	h.log.Info("user created",
		logger.UserID(u.ID),
		logger.String("role", u.Role.String()),
		logger.String("created_by", actor.ID),
	)

	return &CreateUserResult{
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role.String(),
	}, nil
}
