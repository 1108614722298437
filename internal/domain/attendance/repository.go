package attendance

import "context"

// MarkResult reports what an upsert did.
type MarkResult struct {
	// Record is the attendance row after the write.
	Record *Attendance

	// Updated is true when an existing record was re-marked in place.
	Updated bool

	// Percentage is the student's recomputed attendance percentage for the
	// lesson's course.
	Percentage float64
}

// Recorder is the attendance write path.
//
// Mark performs the upsert and the percentage recomputation inside one
// transaction: concurrent requests either fully observe each other's
// completed effects or none of them. The (lesson, student) unique index
// backs the upsert. Mark requires the student to be enrolled in the
// lesson's course and fails with enrollment.ErrNotEnrolled otherwise.
type Recorder interface {
	Mark(ctx context.Context, a *Attendance) (*MarkResult, error)
}

// Repository provides read access to attendance records.
type Repository interface {
	// GetByPair returns the record for (lesson, student), or
	// ErrAttendanceNotFound.
	GetByPair(ctx context.Context, lessonID, studentID string) (*Attendance, error)

	// ListByLesson returns all records for a lesson.
	ListByLesson(ctx context.Context, lessonID string) ([]*Attendance, error)

	// ListByStudentCourse returns a student's records across a course's
	// lessons, most recent lesson first.
	ListByStudentCourse(ctx context.Context, studentID, courseID string) ([]*Attendance, error)

	// CountPresent returns the number of present outcomes a student has
	// across a course's lessons.
	CountPresent(ctx context.Context, studentID, courseID string) (int, error)
}
