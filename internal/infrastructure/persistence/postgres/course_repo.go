package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// CourseRepository implements course.Repository backed by PostgreSQL.
//
// The (room, shift) slot invariant is enforced twice: a SELECT inside the
// transaction for a precise conflict report, and a partial unique index on
// active courses for the race a SELECT under ReadCommitted cannot see.
type CourseRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(conn *Connection, log *logger.Logger) *CourseRepository {
	return &CourseRepository{
		conn: conn,
		log:  log.With(logger.Component("course_repo")),
	}
}

const courseColumns = `id, name, level, room_id, shift_id, teacher_id, active, created_at, updated_at`

func scanCourse(row pgx.Row) (*course.Course, error) {
	var c course.Course
	var level string

	err := row.Scan(
		&c.ID,
		&c.Name,
		&level,
		&c.RoomID,
		&c.ShiftID,
		&c.TeacherID,
		&c.Active,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Level = reference.Level(level)
	return &c, nil
}

// slotHolder returns the ID of the active course occupying (room, shift),
// excluding excludeID when non-empty. Runs on the given querier so it can
// share the caller's transaction.
func slotHolder(ctx context.Context, q Querier, roomID, shiftID, excludeID string) (string, error) {
	query := `
		SELECT id FROM courses
		WHERE room_id = $1 AND shift_id = $2 AND active AND id != $3
		LIMIT 1
	`

	var holderID string
	err := q.QueryRow(ctx, query, roomID, shiftID, excludeID).Scan(&holderID)
	if err != nil {
		if IsNoRows(err) {
			return "", nil
		}
		return "", fmt.Errorf("probe slot: %w", err)
	}

	return holderID, nil
}

// CreateExclusive checks the slot and inserts the course in one transaction.
func (r *CourseRepository) CreateExclusive(ctx context.Context, c *course.Course) error {
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		holderID, err := slotHolder(ctx, tx, c.RoomID, c.ShiftID, "")
		if err != nil {
			return err
		}
		if holderID != "" {
			return &course.SchedulingConflictError{
				RoomID:              c.RoomID,
				ShiftID:             c.ShiftID,
				ConflictingCourseID: holderID,
			}
		}

		query := `
			INSERT INTO courses (` + courseColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		_, err = tx.Exec(ctx, query,
			c.ID, c.Name, c.Level.String(), c.RoomID, c.ShiftID,
			c.TeacherID, c.Active, c.CreatedAt, c.UpdatedAt,
		)
		return err
	})
	if err != nil {
		if course.IsSchedulingConflict(err) {
			return err
		}
		// Lost the check-then-act race: the partial unique index fired.
		if IsUniqueViolation(err, "uq_courses_room_shift_active") {
			return r.conflictFromIndex(ctx, c.RoomID, c.ShiftID, "")
		}
		return fmt.Errorf("create course: %w", err)
	}

	r.log.Info("course created",
		logger.CourseID(c.ID),
		logger.RoomID(c.RoomID),
		logger.ShiftID(c.ShiftID),
	)

	return nil
}

// UpdateExclusive checks the slot excluding the course itself, then persists
// the update, all in one transaction.
func (r *CourseRepository) UpdateExclusive(ctx context.Context, c *course.Course) error {
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if c.Active {
			holderID, err := slotHolder(ctx, tx, c.RoomID, c.ShiftID, c.ID)
			if err != nil {
				return err
			}
			if holderID != "" {
				return &course.SchedulingConflictError{
					RoomID:              c.RoomID,
					ShiftID:             c.ShiftID,
					ConflictingCourseID: holderID,
				}
			}
		}

		query := `
			UPDATE courses
			SET name = $2, level = $3, room_id = $4, shift_id = $5,
			    teacher_id = $6, active = $7, updated_at = $8
			WHERE id = $1
		`
		tag, err := tx.Exec(ctx, query,
			c.ID, c.Name, c.Level.String(), c.RoomID, c.ShiftID,
			c.TeacherID, c.Active, c.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return course.ErrCourseNotFound
		}
		return nil
	})
	if err != nil {
		if course.IsSchedulingConflict(err) || errors.Is(err, course.ErrCourseNotFound) {
			return err
		}
		if IsUniqueViolation(err, "uq_courses_room_shift_active") {
			return r.conflictFromIndex(ctx, c.RoomID, c.ShiftID, c.ID)
		}
		return fmt.Errorf("update course: %w", err)
	}

	return nil
}

// conflictFromIndex builds a SchedulingConflictError after a unique-index
// race loss, re-reading the winner's ID outside the failed transaction.
func (r *CourseRepository) conflictFromIndex(ctx context.Context, roomID, shiftID, excludeID string) error {
	holderID, err := slotHolder(ctx, r.conn.pool, roomID, shiftID, excludeID)
	if err != nil || holderID == "" {
		// The winner may have been deactivated since; report the conflict
		// without a holder rather than hide it.
		holderID = ""
	}
	return &course.SchedulingConflictError{
		RoomID:              roomID,
		ShiftID:             shiftID,
		ConflictingCourseID: holderID,
	}
}

// GetByID returns a course by ID, active or not.
func (r *CourseRepository) GetByID(ctx context.Context, id string) (*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`

	c, err := scanCourse(r.conn.pool.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, course.ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course by id: %w", err)
	}

	return c, nil
}

// FindActiveBySlot returns the active course occupying (room, shift).
func (r *CourseRepository) FindActiveBySlot(ctx context.Context, roomID, shiftID string) (*course.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE room_id = $1 AND shift_id = $2 AND active
	`

	c, err := scanCourse(r.conn.pool.QueryRow(ctx, query, roomID, shiftID))
	if err != nil {
		if IsNoRows(err) {
			return nil, course.ErrCourseNotFound
		}
		return nil, fmt.Errorf("find course by slot: %w", err)
	}

	return c, nil
}

// ListActive returns all active courses ordered by name.
func (r *CourseRepository) ListActive(ctx context.Context) ([]*course.Course, error) {
	query := `SELECT ` + courseColumns + ` FROM courses WHERE active ORDER BY name`

	return r.queryCourses(ctx, query)
}

// ListByTeacher returns the active courses owned by a teacher.
func (r *CourseRepository) ListByTeacher(ctx context.Context, teacherID string) ([]*course.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE teacher_id = $1 AND active
		ORDER BY name
	`

	return r.queryCourses(ctx, query, teacherID)
}

// CountActive returns the number of active courses.
func (r *CourseRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.conn.pool.QueryRow(ctx, `SELECT COUNT(*) FROM courses WHERE active`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active courses: %w", err)
	}

	return count, nil
}

func (r *CourseRepository) queryCourses(ctx context.Context, query string, args ...any) ([]*course.Course, error) {
	rows, err := r.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query courses: %w", err)
	}
	defer rows.Close()

	var courses []*course.Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course row: %w", err)
		}
		courses = append(courses, c)
	}

	return courses, rows.Err()
}
