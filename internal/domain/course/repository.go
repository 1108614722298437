package course

import "context"

// Repository provides persistence for courses.
//
// CreateExclusive and UpdateExclusive run the scheduling-allocator check and
// the write inside one transaction, so two concurrent submissions for the
// same (room, shift) cannot both commit. A unique partial index on active
// courses backs the check; a lost race surfaces as SchedulingConflictError,
// never as a raw storage error.
type Repository interface {
	// CreateExclusive checks the (room, shift) slot and inserts the course
	// atomically. Returns *SchedulingConflictError when another active
	// course holds the slot.
	CreateExclusive(ctx context.Context, c *Course) error

	// UpdateExclusive checks the slot excluding the course itself, then
	// persists the update atomically.
	UpdateExclusive(ctx context.Context, c *Course) error

	// GetByID returns a course by ID, active or not.
	GetByID(ctx context.Context, id string) (*Course, error)

	// FindActiveBySlot returns the active course occupying (room, shift),
	// or ErrCourseNotFound. Used by the conflict probe read accessor.
	FindActiveBySlot(ctx context.Context, roomID, shiftID string) (*Course, error)

	// ListActive returns all active courses ordered by name.
	ListActive(ctx context.Context) ([]*Course, error)

	// ListByTeacher returns the active courses owned by a teacher.
	ListByTeacher(ctx context.Context, teacherID string) ([]*Course, error)

	// CountActive returns the number of active courses.
	CountActive(ctx context.Context) (int, error)
}
