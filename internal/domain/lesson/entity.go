// Package lesson contains the lesson calendar domain model: an append-only
// sequence of session records per course, at most one per (course, date).
// The lesson count is the denominator of every attendance percentage for
// the course.
package lesson

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/academy-hub/academy-lms/pkg/timeutil"
)

// Lesson is one scheduled session of a course on a calendar date.
type Lesson struct {
	// ID is the internal unique identifier (UUID in string form).
	ID string

	// CourseID and Date form the unique pair. Date is a calendar date
	// normalized to midnight UTC.
	CourseID string
	Date     time.Time

	// Topic is what the session covers.
	Topic string

	CreatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLessonNotFound - lesson not found.
	ErrLessonNotFound = errors.New("lesson not found")

	// ErrInvalidTopic - topic fails validation.
	ErrInvalidTopic = errors.New("invalid topic: must be 1-200 chars")
)

// DuplicateLessonError reports that the course already has a lesson on the
// date. Exactly one of two concurrent schedule calls for the same pair
// receives this error; the other wins.
type DuplicateLessonError struct {
	CourseID string
	Date     time.Time
}

// Error implements the error interface.
func (e *DuplicateLessonError) Error() string {
	return fmt.Sprintf("a lesson already exists for course %s on %s",
		e.CourseID, timeutil.FormatDate(e.Date))
}

// IsDuplicateLesson reports whether err is a DuplicateLessonError.
func IsDuplicateLesson(err error) bool {
	var dup *DuplicateLessonError
	return errors.As(err, &dup)
}

// ══════════════════════════════════════════════════════════════════════════════
// FACTORY
// ══════════════════════════════════════════════════════════════════════════════

// NewLessonParams contains parameters for scheduling a lesson.
type NewLessonParams struct {
	ID       string
	CourseID string
	Date     time.Time
	Topic    string
}

// NewLesson creates a lesson with its date normalized to midnight UTC.
func NewLesson(params NewLessonParams) (*Lesson, error) {
	if params.ID == "" {
		return nil, errors.New("lesson id is required")
	}
	if params.CourseID == "" {
		return nil, errors.New("course id is required")
	}
	if params.Date.IsZero() {
		return nil, errors.New("lesson date is required")
	}

	topic := strings.TrimSpace(params.Topic)
	if len(topic) == 0 || len(topic) > 200 {
		return nil, ErrInvalidTopic
	}

	return &Lesson{
		ID:        params.ID,
		CourseID:  params.CourseID,
		Date:      timeutil.DateOf(params.Date),
		Topic:     topic,
		CreatedAt: time.Now().UTC(),
	}, nil
}
