package command

import (
	"context"

	"github.com/academy-hub/academy-lms/internal/domain/shared"
	"github.com/academy-hub/academy-lms/pkg/logger"
)

// publishEvent publishes after the write has committed. A failed publish is
// logged and swallowed: events drive caches and audit trails, and those must
// not undo a durable write.
func publishEvent(ctx context.Context, events shared.EventPublisher, log *logger.Logger, event shared.Event) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, event); err != nil {
		log.Warn("event publish failed",
			logger.String("event", string(event.EventType())),
			logger.Err(err),
		)
	}
}
