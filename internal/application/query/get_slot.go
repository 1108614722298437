package query

import (
	"context"
	"errors"

	"github.com/academy-hub/academy-lms/internal/domain/course"
	"github.com/academy-hub/academy-lms/internal/domain/shared"
)

// GetSlotQuery probes a (room, shift) slot for an active course.
//
// This is an advisory read: under concurrent writes the answer may be stale
// by the time it is acted on, which is why course creation re-checks the
// slot inside its own transaction.
type GetSlotQuery struct {
	RoomID  string
	ShiftID string
}

// Validate checks the query parameters.
func (q GetSlotQuery) Validate() error {
	if q.RoomID == "" {
		return shared.NewValidationError("room_id", "must not be empty")
	}
	if q.ShiftID == "" {
		return shared.NewValidationError("shift_id", "must not be empty")
	}
	return nil
}

// SlotResult reports whether the slot is occupied.
type SlotResult struct {
	RoomID     string `json:"room_id"`
	ShiftID    string `json:"shift_id"`
	Occupied   bool   `json:"occupied"`
	CourseID   string `json:"course_id,omitempty"`
	CourseName string `json:"course_name,omitempty"`
}

// GetSlotHandler serves slot availability probes.
type GetSlotHandler struct {
	courses course.Repository
}

// NewGetSlotHandler creates the handler.
func NewGetSlotHandler(courses course.Repository) *GetSlotHandler {
	return &GetSlotHandler{courses: courses}
}

// Handle probes the slot.
func (h *GetSlotHandler) Handle(ctx context.Context, q GetSlotQuery) (*SlotResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	result := &SlotResult{RoomID: q.RoomID, ShiftID: q.ShiftID}

	c, err := h.courses.FindActiveBySlot(ctx, q.RoomID, q.ShiftID)
	if err != nil {
		if errors.Is(err, course.ErrCourseNotFound) {
			return result, nil
		}
		return nil, err
	}

	result.Occupied = true
	result.CourseID = c.ID
	result.CourseName = c.Name

	return result, nil
}
