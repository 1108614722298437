package postgres

import (
	"context"
	"fmt"

	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERCENTAGE RECOMPUTATION
// ══════════════════════════════════════════════════════════════════════════════

// percentageExpr computes 100 × present / lessons for the enrollment row it
// runs against, clamped to [0,100], 0 when the course has no lessons. It is
// the SQL twin of enrollment.ComputePercentage; stray attendance rows from a
// since-emptied calendar cannot push the result off 0 because the zero
// denominator short-circuits first.
const percentageExpr = `
	LEAST(100.0, GREATEST(0.0,
		CASE WHEN (SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id) = 0
			THEN 0
			ELSE 100.0 * (
				SELECT COUNT(*)
				FROM attendances a
				JOIN lessons l ON l.id = a.lesson_id
				JOIN attendance_statuses s ON s.code = a.status
				WHERE l.course_id = e.course_id
				  AND a.student_id = e.student_id
				  AND s.counts_as_present
			) / (SELECT COUNT(*) FROM lessons l WHERE l.course_id = e.course_id)
		END))`

// recomputePair refreshes one (student, course) percentage on q and returns
// the new value. Returns enrollment.ErrNotEnrolled when no ledger row exists.
func recomputePair(ctx context.Context, q Querier, studentID, courseID string) (float64, error) {
	query := `
		UPDATE enrollments e
		SET attendance_percentage = ` + percentageExpr + `
		WHERE e.student_id = $1 AND e.course_id = $2
		RETURNING e.attendance_percentage
	`

	var pct float64
	err := q.QueryRow(ctx, query, studentID, courseID).Scan(&pct)
	if err != nil {
		if IsNoRows(err) {
			return 0, enrollment.ErrNotEnrolled
		}
		return 0, fmt.Errorf("recompute pair: %w", err)
	}

	return pct, nil
}

// recomputeCourse refreshes every enrollment of a course on q and returns
// the number of rows touched.
func recomputeCourse(ctx context.Context, q Querier, courseID string) (int64, error) {
	query := `
		UPDATE enrollments e
		SET attendance_percentage = ` + percentageExpr + `
		WHERE e.course_id = $1
	`

	tag, err := q.Exec(ctx, query, courseID)
	if err != nil {
		return 0, fmt.Errorf("recompute course: %w", err)
	}

	return tag.RowsAffected(), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOMPUTER
// ══════════════════════════════════════════════════════════════════════════════

// MetricsRepository implements enrollment.Recomputer backed by PostgreSQL.
// Each recomputation is a single UPDATE, so it needs no explicit transaction.
type MetricsRepository struct {
	conn *Connection
	log  *logger.Logger
}

// NewMetricsRepository creates a new metrics repository.
func NewMetricsRepository(conn *Connection, log *logger.Logger) *MetricsRepository {
	return &MetricsRepository{
		conn: conn,
		log:  log.With(logger.Component("metrics_repo")),
	}
}

// Recompute refreshes the percentage for one (student, course) pair.
func (r *MetricsRepository) Recompute(ctx context.Context, studentID, courseID string) (float64, error) {
	pct, err := recomputePair(ctx, r.conn.pool, studentID, courseID)
	if err != nil {
		return 0, err
	}

	r.log.Debug("percentage recomputed",
		logger.StudentID(studentID),
		logger.CourseID(courseID),
		logger.Percentage(pct),
	)

	return pct, nil
}

// RecomputeCourse refreshes the percentage of every student in the course.
func (r *MetricsRepository) RecomputeCourse(ctx context.Context, courseID string) error {
	touched, err := recomputeCourse(ctx, r.conn.pool, courseID)
	if err != nil {
		return err
	}

	r.log.Debug("course percentages recomputed",
		logger.CourseID(courseID),
		logger.Int64("enrollments", touched),
	)

	return nil
}

// ReconcileAll refreshes every enrollment in the ledger. Used by the
// background sweep; returns the number of rows touched.
func (r *MetricsRepository) ReconcileAll(ctx context.Context) (int64, error) {
	query := `
		UPDATE enrollments e
		SET attendance_percentage = ` + percentageExpr + `
	`

	tag, err := r.conn.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("reconcile all: %w", err)
	}

	return tag.RowsAffected(), nil
}
