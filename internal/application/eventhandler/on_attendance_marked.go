// Package eventhandler contains the subscribers wired onto the event bus.
package eventhandler

import (
	"context"

	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// SummaryInvalidator drops cached read models for a student. Implemented by
// the redis summary cache.
type SummaryInvalidator interface {
	InvalidateSummary(ctx context.Context, studentID string) error
	InvalidateDashboards(ctx context.Context) error
}

// OnAttendanceMarked invalidates the read-side caches after an attendance
// write. The write path already committed the new percentage; this handler
// only makes sure no stale summary outlives it past the TTL.
type OnAttendanceMarked struct {
	cache SummaryInvalidator
	log   *logger.Logger
}

// NewOnAttendanceMarked creates the subscriber.
func NewOnAttendanceMarked(cache SummaryInvalidator, log *logger.Logger) *OnAttendanceMarked {
	return &OnAttendanceMarked{
		cache: cache,
		log:   log.With(logger.Component("on_attendance_marked")),
	}
}

// Name implements shared.EventHandler.
func (h *OnAttendanceMarked) Name() string {
	return "attendance_cache_invalidation"
}

// Handle implements shared.EventHandler. It reacts to attendance.marked and
// attendance.percentage_recomputed, ignoring everything else.
func (h *OnAttendanceMarked) Handle(ctx context.Context, event shared.Event) error {
	var studentID string

	switch e := event.(type) {
	case shared.AttendanceMarkedEvent:
		studentID = e.StudentID
	case shared.PercentageRecomputedEvent:
		studentID = e.StudentID
	default:
		return nil
	}

	if h.cache == nil || studentID == "" {
		return nil
	}

	if err := h.cache.InvalidateSummary(ctx, studentID); err != nil {
		h.log.Warn("summary invalidation failed",
			logger.StudentID(studentID),
			logger.Err(err),
		)
		return err
	}

	if err := h.cache.InvalidateDashboards(ctx); err != nil {
		h.log.Warn("dashboard invalidation failed", logger.Err(err))
		return err
	}

	h.log.Debug("caches invalidated", logger.StudentID(studentID))

	return nil
}
