package enrollment

import "context"

// ComputePercentage derives the attendance percentage from raw counts:
// 100 × present / total, clamped to [0,100]. A course with zero lessons has
// no denominator, so the result is 0 regardless of stray attendance rows.
func ComputePercentage(presentCount, totalLessons int) float64 {
	if totalLessons <= 0 {
		return 0
	}

	pct := 100 * float64(presentCount) / float64(totalLessons)

	// Counts should never push the value out of bounds; clamp defensively.
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Recomputer is the metric recomputation engine. Implementations count the
// course's lessons and the student's present outcomes, derive the
// percentage, and write it back into the enrollment record - all against a
// consistent snapshot.
type Recomputer interface {
	// Recompute recalculates and persists the attendance percentage for the
	// (student, course) pair, returning the new value. Returns ErrNotEnrolled
	// when no enrollment record exists. Safe to call repeatedly.
	Recompute(ctx context.Context, studentID, courseID string) (float64, error)

	// RecomputeCourse recalculates the percentage for every student enrolled
	// in the course. Used when the lesson denominator changes.
	RecomputeCourse(ctx context.Context, courseID string) error
}
