package enrollment

import "context"

// Repository provides persistence for the enrollment ledger.
//
// Enroll is idempotent; EnrollBatch is all-or-nothing. Both run their
// existence check and their writes inside one transaction, with the
// (student, course) unique index as the backstop for check-then-act races.
type Repository interface {
	// Enroll creates an enrollment for the pair, or returns the existing
	// record unchanged when the student is already enrolled. The returned
	// bool is true when a new record was created.
	Enroll(ctx context.Context, e *Enrollment) (*Enrollment, bool, error)

	// EnrollBatch pre-checks the whole batch against existing enrollments
	// before creating anything. If any course already has an enrollment for
	// the student, the batch fails with *AlreadyEnrolledError and zero
	// records are created.
	EnrollBatch(ctx context.Context, enrollments []*Enrollment) ([]*Enrollment, error)

	// GetByPair returns the enrollment for (student, course), or
	// ErrNotEnrolled.
	GetByPair(ctx context.Context, studentID, courseID string) (*Enrollment, error)

	// ListByStudent returns a student's enrollments ordered by enrollment time.
	ListByStudent(ctx context.Context, studentID string) ([]*Enrollment, error)

	// ListByCourse returns a course's enrollments ordered by enrollment time.
	ListByCourse(ctx context.Context, courseID string) ([]*Enrollment, error)

	// CountByCourse returns the number of students enrolled in the course.
	CountByCourse(ctx context.Context, courseID string) (int, error)

	// AveragePercentage returns the mean attendance percentage across a
	// student's enrollments, or 0 when the student has none.
	AveragePercentage(ctx context.Context, studentID string) (float64, error)
}
