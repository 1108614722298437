package lesson

import "context"

// Repository provides persistence for the lesson calendar.
//
// Create runs the (course, date) existence check and the insert inside one
// transaction, with the unique index as the race backstop: two concurrent
// creates for the same pair yield exactly one success and one
// *DuplicateLessonError.
type Repository interface {
	// Create inserts the lesson, failing with *DuplicateLessonError when
	// the course already has a lesson on the date.
	Create(ctx context.Context, l *Lesson) error

	// GetByID returns a lesson by ID.
	GetByID(ctx context.Context, id string) (*Lesson, error)

	// ListByCourse returns a course's lessons, most recent date first.
	ListByCourse(ctx context.Context, courseID string) ([]*Lesson, error)

	// CountByCourse returns the lesson denominator for a course.
	CountByCourse(ctx context.Context, courseID string) (int, error)
}
