package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/internal/domain/attendance"
	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/lesson"
	"github.com/academy-hub/academy-lms/internal/domain/reference"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// AttendanceRepository implements attendance.Repository and
// attendance.Recorder backed by PostgreSQL.
//
// Mark runs the enrollment check, the upsert, and the percentage
// recomputation inside one transaction. The upsert is a single
// INSERT ... ON CONFLICT, so two concurrent marks for the same
// (lesson, student) serialize on the unique index instead of racing a
// check-then-act window.
type AttendanceRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(conn *Connection, log *logger.Logger) *AttendanceRepository {
	return &AttendanceRepository{
		conn: conn,
		log:  log.With(logger.Component("attendance_repo")),
	}
}

const attendanceColumns = `id, lesson_id, student_id, status, marked_by, marked_at`

func scanAttendance(row pgx.Row) (*attendance.Attendance, error) {
	var a attendance.Attendance
	var status string

	err := row.Scan(
		&a.ID,
		&a.LessonID,
		&a.StudentID,
		&status,
		&a.MarkedByID,
		&a.MarkedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Status = reference.AttendanceStatus(status)
	return &a, nil
}

// Mark upserts the attendance record and recomputes the student's percentage
// for the lesson's course, all in one transaction.
func (r *AttendanceRepository) Mark(ctx context.Context, a *attendance.Attendance) (*attendance.MarkResult, error) {
	var result attendance.MarkResult

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var courseID string
		err := tx.QueryRow(ctx,
			`SELECT course_id FROM lessons WHERE id = $1`, a.LessonID,
		).Scan(&courseID)
		if err != nil {
			if IsNoRows(err) {
				return lesson.ErrLessonNotFound
			}
			return fmt.Errorf("resolve lesson: %w", err)
		}

		var enrolled bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2)`,
			a.StudentID, courseID,
		).Scan(&enrolled)
		if err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if !enrolled {
			return enrollment.ErrNotEnrolled
		}

		// On conflict the existing row keeps its ID; xmax reveals whether
		// the row was updated in place.
		query := `
			INSERT INTO attendances (` + attendanceColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lesson_id, student_id) DO UPDATE
			SET status = EXCLUDED.status,
			    marked_by = EXCLUDED.marked_by,
			    marked_at = EXCLUDED.marked_at
			RETURNING id, (xmax <> 0) AS updated
		`
		record := *a
		err = tx.QueryRow(ctx, query,
			a.ID, a.LessonID, a.StudentID, a.Status.String(), a.MarkedByID, a.MarkedAt,
		).Scan(&record.ID, &result.Updated)
		if err != nil {
			return fmt.Errorf("upsert attendance: %w", err)
		}
		result.Record = &record

		pct, err := recomputePair(ctx, tx, a.StudentID, courseID)
		if err != nil {
			return err
		}
		result.Percentage = pct
		return nil
	})
	if err != nil {
		if errors.Is(err, lesson.ErrLessonNotFound) || errors.Is(err, enrollment.ErrNotEnrolled) {
			return nil, err
		}
		return nil, fmt.Errorf("mark attendance: %w", err)
	}

	r.log.Info("attendance marked",
		logger.LessonID(a.LessonID),
		logger.StudentID(a.StudentID),
		logger.String("status", a.Status.String()),
		logger.Bool("updated", result.Updated),
		logger.Percentage(result.Percentage),
	)

	return &result, nil
}

// GetByPair returns the record for (lesson, student).
func (r *AttendanceRepository) GetByPair(ctx context.Context, lessonID, studentID string) (*attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE lesson_id = $1 AND student_id = $2
	`

	a, err := scanAttendance(r.conn.pool.QueryRow(ctx, query, lessonID, studentID))
	if err != nil {
		if IsNoRows(err) {
			return nil, attendance.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("get attendance by pair: %w", err)
	}

	return a, nil
}

// ListByLesson returns all records for a lesson.
func (r *AttendanceRepository) ListByLesson(ctx context.Context, lessonID string) ([]*attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE lesson_id = $1
		ORDER BY marked_at
	`

	return r.queryAttendances(ctx, query, lessonID)
}

// ListByStudentCourse returns a student's records across a course's lessons,
// most recent lesson first.
func (r *AttendanceRepository) ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]*attendance.Attendance, error) {
	query := `
		SELECT a.id, a.lesson_id, a.student_id, a.status, a.marked_by, a.marked_at
		FROM attendances a
		JOIN lessons l ON l.id = a.lesson_id
		WHERE a.student_id = $1 AND l.course_id = $2
		ORDER BY l.lesson_date DESC
	`

	return r.queryAttendances(ctx, query, studentID, courseID)
}

// CountPresent returns the number of present outcomes a student has across a
// course's lessons.
func (r *AttendanceRepository) CountPresent(ctx context.Context, studentID, courseID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM attendances a
		JOIN lessons l ON l.id = a.lesson_id
		JOIN attendance_statuses s ON s.code = a.status
		WHERE a.student_id = $1 AND l.course_id = $2 AND s.counts_as_present
	`

	var count int
	if err := r.conn.pool.QueryRow(ctx, query, studentID, courseID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count present: %w", err)
	}

	return count, nil
}

func (r *AttendanceRepository) queryAttendances(ctx context.Context, query string, args ...any) ([]*attendance.Attendance, error) {
	rows, err := r.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attendances: %w", err)
	}
	defer rows.Close()

	var records []*attendance.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		records = append(records, a)
	}

	return records, rows.Err()
}
