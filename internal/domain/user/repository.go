package user

import (
	"context"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
)

// Repository provides persistence for users.
type Repository interface {
	// Create persists a new user. Returns ErrUsernameTaken when the
	// username is already in use, even if the race was lost at the
	// storage layer.
	Create(ctx context.Context, u *User) error

	// GetByID returns a user by internal ID.
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByUsername returns a user by username.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// Update persists changes to an existing user.
	Update(ctx context.Context, u *User) error

	// ListByRole returns users with the given role, ordered by first name.
	ListByRole(ctx context.Context, role reference.Role) ([]*User, error)

	// CountByRole returns the number of users with the given role.
	CountByRole(ctx context.Context, role reference.Role) (int, error)
}
