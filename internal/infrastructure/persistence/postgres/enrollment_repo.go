package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// EnrollmentRepository implements enrollment.Repository backed by PostgreSQL.
//
// The (student, course) unique index is the backstop for both the idempotent
// single enroll and the all-or-nothing batch: a check-then-act race lost at
// commit time is re-read and reported through the same domain results as a
// race lost at check time.
type EnrollmentRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(conn *Connection, log *logger.Logger) *EnrollmentRepository {
	return &EnrollmentRepository{
		conn: conn,
		log:  log.With(logger.Component("enrollment_repo")),
	}
}

const enrollmentColumns = `id, student_id, course_id, attendance_percentage, enrolled_at`

func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var e enrollment.Enrollment

	err := row.Scan(
		&e.ID,
		&e.StudentID,
		&e.CourseID,
		&e.AttendancePercentage,
		&e.EnrolledAt,
	)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

func getEnrollmentByPair(ctx context.Context, q Querier, studentID, courseID string) (*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE student_id = $1 AND course_id = $2
	`

	e, err := scanEnrollment(q.QueryRow(ctx, query, studentID, courseID))
	if err != nil {
		if IsNoRows(err) {
			return nil, enrollment.ErrNotEnrolled
		}
		return nil, fmt.Errorf("get enrollment by pair: %w", err)
	}

	return e, nil
}

// Enroll creates the enrollment, or returns the existing record unchanged.
func (r *EnrollmentRepository) Enroll(ctx context.Context, e *enrollment.Enrollment) (*enrollment.Enrollment, bool, error) {
	var result *enrollment.Enrollment
	var created bool

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := getEnrollmentByPair(ctx, tx, e.StudentID, e.CourseID)
		if err == nil {
			result = existing
			created = false
			return nil
		}
		if err != enrollment.ErrNotEnrolled {
			return err
		}

		query := `
			INSERT INTO enrollments (` + enrollmentColumns + `)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, query,
			e.ID, e.StudentID, e.CourseID, e.AttendancePercentage, e.EnrolledAt,
		); err != nil {
			return err
		}

		result = e
		created = true
		return nil
	})
	if err != nil {
		// Race lost to a concurrent enroll of the same pair: treat as the
		// idempotent no-op and hand back the winner's record.
		if IsUniqueViolation(err) {
			existing, readErr := getEnrollmentByPair(ctx, r.conn.pool, e.StudentID, e.CourseID)
			if readErr != nil {
				return nil, false, readErr
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("enroll: %w", err)
	}

	if created {
		r.log.Info("student enrolled",
			logger.StudentID(e.StudentID),
			logger.CourseID(e.CourseID),
		)
	}

	return result, created, nil
}

// EnrollBatch pre-checks the whole batch and creates all records or none.
func (r *EnrollmentRepository) EnrollBatch(ctx context.Context, enrollments []*enrollment.Enrollment) ([]*enrollment.Enrollment, error) {
	if len(enrollments) == 0 {
		return nil, nil
	}

	studentID := enrollments[0].StudentID

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var conflicts []string
		for _, e := range enrollments {
			_, err := getEnrollmentByPair(ctx, tx, e.StudentID, e.CourseID)
			if err == nil {
				conflicts = append(conflicts, e.CourseID)
				continue
			}
			if err != enrollment.ErrNotEnrolled {
				return err
			}
		}
		if len(conflicts) > 0 {
			return &enrollment.AlreadyEnrolledError{
				StudentID: studentID,
				CourseIDs: conflicts,
			}
		}

		query := `
			INSERT INTO enrollments (` + enrollmentColumns + `)
			VALUES ($1, $2, $3, $4, $5)
		`
		for _, e := range enrollments {
			if _, err := tx.Exec(ctx, query,
				e.ID, e.StudentID, e.CourseID, e.AttendancePercentage, e.EnrolledAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if enrollment.IsAlreadyEnrolled(err) {
			return nil, err
		}
		// Unique-index race: some pair was created between check and commit.
		// The transaction rolled back, so zero rows exist; report the pairs
		// that now conflict.
		if IsUniqueViolation(err) {
			var conflicts []string
			for _, e := range enrollments {
				if _, readErr := getEnrollmentByPair(ctx, r.conn.pool, e.StudentID, e.CourseID); readErr == nil {
					conflicts = append(conflicts, e.CourseID)
				}
			}
			return nil, &enrollment.AlreadyEnrolledError{
				StudentID: studentID,
				CourseIDs: conflicts,
			}
		}
		return nil, fmt.Errorf("enroll batch: %w", err)
	}

	r.log.Info("batch enrolled",
		logger.StudentID(studentID),
		logger.Int("courses", len(enrollments)),
	)

	return enrollments, nil
}

// GetByPair returns the enrollment for (student, course), or ErrNotEnrolled.
func (r *EnrollmentRepository) GetByPair(ctx context.Context, studentID, courseID string) (*enrollment.Enrollment, error) {
	return getEnrollmentByPair(ctx, r.conn.pool, studentID, courseID)
}

// ListByStudent returns a student's enrollments ordered by enrollment time.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE student_id = $1
		ORDER BY enrolled_at
	`

	return r.queryEnrollments(ctx, query, studentID)
}

// ListByCourse returns a course's enrollments ordered by enrollment time.
func (r *EnrollmentRepository) ListByCourse(ctx context.Context, courseID string) ([]*enrollment.Enrollment, error) {
	query := `
		SELECT ` + enrollmentColumns + `
		FROM enrollments
		WHERE course_id = $1
		ORDER BY enrolled_at
	`

	return r.queryEnrollments(ctx, query, courseID)
}

// CountByCourse returns the number of students enrolled in the course.
func (r *EnrollmentRepository) CountByCourse(ctx context.Context, courseID string) (int, error) {
	var count int
	err := r.conn.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM enrollments WHERE course_id = $1`, courseID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}

	return count, nil
}

// AveragePercentage returns the mean attendance percentage across a
// student's enrollments, or 0 when the student has none.
func (r *EnrollmentRepository) AveragePercentage(ctx context.Context, studentID string) (float64, error) {
	var avg float64
	err := r.conn.pool.QueryRow(ctx,
		`SELECT COALESCE(AVG(attendance_percentage), 0) FROM enrollments WHERE student_id = $1`,
		studentID,
	).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("average percentage: %w", err)
	}

	return avg, nil
}

func (r *EnrollmentRepository) queryEnrollments(ctx context.Context, query string, args ...any) ([]*enrollment.Enrollment, error) {
	rows, err := r.conn.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var result []*enrollment.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment row: %w", err)
		}
		result = append(result, e)
	}

	return result, rows.Err()
}
