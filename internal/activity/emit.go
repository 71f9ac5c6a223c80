package activity

import (
	"context"

	"ceycent/internal/log"
)

// Emit publishes e and logs, rather than returns, any failure.
func Emit(ctx context.Context, p Publisher, e Event, logger *log.Logger) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil && logger != nil {
		logger.WarnContext(ctx, "Failed to publish activity event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err).
				ToSlice()...)
	}
}
