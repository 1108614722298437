package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// LessonRepository implements lesson.Repository backed by PostgreSQL.
//
// Create also refreshes the attendance percentage of every enrollment in the
// course, in the same transaction as the insert: the new lesson moves the
// denominator, and a commit must never leave stale percentages behind.
type LessonRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewLessonRepository creates a new lesson repository.
func NewLessonRepository(conn *Connection, log *logger.Logger) *LessonRepository {
	return &LessonRepository{
		conn: conn,
		log:  log.With(logger.Component("lesson_repo")),
	}
}

const lessonColumns = `id, course_id, lesson_date, topic, created_at`

func scanLesson(row pgx.Row) (*lesson.Lesson, error) {
	var l lesson.Lesson

	err := row.Scan(
		&l.ID,
		&l.CourseID,
		&l.Date,
		&l.Topic,
		&l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &l, nil
}

// Create inserts the lesson and recomputes the course's percentages in one
// transaction. Two concurrent creates for the same (course, date) yield
// exactly one success; the loser gets *DuplicateLessonError from the unique
// index even when its existence check saw nothing.
func (r *LessonRepository) Create(ctx context.Context, l *lesson.Lesson) error {
	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var existingID string
		err := tx.QueryRow(ctx,
			`SELECT id FROM lessons WHERE course_id = $1 AND lesson_date = $2`,
			l.CourseID, l.Date,
		).Scan(&existingID)
		if err == nil {
			return &lesson.DuplicateLessonError{CourseID: l.CourseID, Date: l.Date}
		}
		if !IsNoRows(err) {
			return fmt.Errorf("check lesson date: %w", err)
		}

		query := `
			INSERT INTO lessons (` + lessonColumns + `)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, query,
			l.ID, l.CourseID, l.Date, l.Topic, l.CreatedAt,
		); err != nil {
			return err
		}

		_, err = recomputeCourse(ctx, tx, l.CourseID)
		return err
	})
	if err != nil {
		return mapLessonCreateError(err, l.CourseID, l.Date)
	}

	r.log.Info("lesson scheduled",
		logger.LessonID(l.ID),
		logger.CourseID(l.CourseID),
		logger.LessonDate(l.Date),
	)

	return nil
}

// mapLessonCreateError turns storage failures from the insert into domain
// errors. A unique violation means a concurrent create won the
// (course, date) race after our existence check, so the caller sees the
// same *DuplicateLessonError the check itself would have produced.
func mapLessonCreateError(err error, courseID string, date time.Time) error {
	if lesson.IsDuplicateLesson(err) {
		return err
	}
	if IsUniqueViolation(err) {
		return &lesson.DuplicateLessonError{CourseID: courseID, Date: date}
	}
	return fmt.Errorf("create lesson: %w", err)
}

// GetByID returns a lesson by ID.
func (r *LessonRepository) GetByID(ctx context.Context, id string) (*lesson.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	l, err := scanLesson(r.conn.pool.QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, lesson.ErrLessonNotFound
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return l, nil
}

// ListByCourse returns a course's lessons, most recent date first.
func (r *LessonRepository) ListByCourse(ctx context.Context, courseID string) ([]*lesson.Lesson, error) {
	query := `
		SELECT ` + lessonColumns + `
		FROM lessons
		WHERE course_id = $1
		ORDER BY lesson_date DESC
	`

	rows, err := r.conn.pool.Query(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}
	defer rows.Close()

	var lessons []*lesson.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson row: %w", err)
		}
		lessons = append(lessons, l)
	}

	return lessons, rows.Err()
}

// CountByCourse returns the lesson denominator for a course.
func (r *LessonRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.conn.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM lessons WHERE course_id = $1`, courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}

	return count, nil
}
