package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/internal/domain/user"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewUserRepository creates a new user repository.
func NewUserRepository(conn *Connection, log *logger.Logger) *UserRepository {
	return &UserRepository{
		conn: conn,
		log:  log.With(logger.Component("user_repo")),
	}
}

const userColumns = `id, username, first_name, last_name, email, password_hash, role, active, created_at, updated_at`

func scanUser(row pgx.Row) (*user.User, error) {
	var u user.User
	var role string

	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&role,
		&u.Active,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = reference.Role(role)
	return &u, nil
}

// Create persists a new user. A username race lost at the storage layer
// surfaces as user.ErrUsernameTaken.
func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.conn.pool.Exec(ctx, query,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email,
		u.PasswordHash, u.Role.String(), u.Active, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}

	r.log.Debug("user created",
		logger.UserID(u.ID),
		logger.String("role", u.Role.String()),
	)

	return nil
}

// GetByID returns a user by internal ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.conn.pool.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return u, nil
}

// GetByUsername returns a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`

	u, err := scanUser(r.conn.pool.QueryRow(ctx, query, username))
	if err != nil {
		if IsNoRows(err) {
			return nil, user.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}

	return u, nil
}

// Update persists changes to an existing user.
func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	query := `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, email = $5,
		    password_hash = $6, role = $7, active = $8, updated_at = $9
		WHERE id = $1
	`

	tag, err := r.conn.pool.Exec(ctx, query,
		u.ID, u.Username, u.FirstName, u.LastName, u.Email,
		u.PasswordHash, u.Role.String(), u.Active, u.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrUsernameTaken
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return user.ErrUserNotFound
	}

	return nil
}

// ListByRole returns users with the given role, ordered by first name.
func (r *UserRepository) ListByRole(ctx context.Context, role reference.Role) ([]*user.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = $1
		ORDER BY first_name, last_name
	`

	rows, err := r.conn.pool.Query(ctx, query, role.String())
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var users []*user.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// CountByRole returns the number of users with the given role.
func (r *UserRepository) CountByRole(ctx context.Context, role reference.Role) (int, error) {
	var count int
	err := r.conn.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, role.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users by role: %w", err)
	}

	return count, nil
}
