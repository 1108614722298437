package command

import (
	"context"
	"errors"

	"github.com/academy-hub/academy-lms/internal/domain/enrollment"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/pkg/logger"
	"github.com/academy-hub/academy-lms/pkg/retry"
)

// RecomputePercentageCommand forces a recomputation for one
// (student, course) pair. Normally recomputation rides along with marks and
// lesson creation; this command is the manual escape hatch for operators.
type RecomputePercentageCommand struct {
	StudentID string
	CourseID  string
}

// Validate checks the command parameters.
func (c RecomputePercentageCommand) Validate() error {
	if c.StudentID == "" {
		return shared.NewValidationError("student_id", "must not be empty")
	}
	if c.CourseID == "" {
		return shared.NewValidationError("course_id", "must not be empty")
	}
	return nil
}

// RecomputePercentageResult reports the fresh value.
type RecomputePercentageResult struct {
	StudentID  string  `json:"student_id"`
	CourseID   string  `json:"course_id"`
	Percentage float64 `json:"percentage"`
}

// RecomputePercentageHandler handles forced recomputation.
type RecomputePercentageHandler struct {
	recomputer enrollment.Recomputer
	retrier    *retry.Retrier
	events     shared.EventPublisher
	log        *logger.Logger
}

// NewRecomputePercentageHandler creates the handler. events may be nil.
func NewRecomputePercentageHandler(
	recomputer enrollment.Recomputer,
	events shared.EventPublisher,
	log *logger.Logger,
) *RecomputePercentageHandler {
	return &RecomputePercentageHandler{
		recomputer: recomputer,
		retrier:    retry.DatabaseRetrier(),
		events:     events,
		log:        log.With(logger.Component("recompute_percentage")),
	}
}

// Handle recomputes the pair. Without a ledger row there is nowhere to
// write, so the command fails with enrollment.ErrNotEnrolled.
func (h *RecomputePercentageHandler) Handle(ctx context.Context, cmd RecomputePercentageCommand) (*RecomputePercentageResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var percentage float64
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		pct, err := h.recomputer.Recompute(ctx, cmd.StudentID, cmd.CourseID)
		if err != nil {
			if errors.Is(err, enrollment.ErrNotEnrolled) {
				return retry.Permanent(err)
			}
			return err
		}
		percentage = pct
		return nil
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, h.events, h.log,
		shared.NewPercentageRecomputedEvent("", cmd.StudentID, cmd.CourseID, percentage))

	return &RecomputePercentageResult{
		StudentID:  cmd.StudentID,
		CourseID:   cmd.CourseID,
		Percentage: percentage,
	}, nil
}
