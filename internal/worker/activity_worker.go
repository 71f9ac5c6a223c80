// Package worker persists dashboard activity events consumed from AMQP.
package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ceycent/internal/activity"
	"ceycent/internal/log"
)

// ActivityStore appends events to the activity log. recorded is false when
// the event ID was already stored.
type ActivityStore interface {
	RecordActivity(ctx context.Context, e activity.Event) (recorded bool, err error)
}

// Stats counts what the worker has done since start.
type Stats struct {
	Recorded   int64
	Duplicates int64
	Failed     int64
}

// ActivityWorker writes each consumed event to the store.
type ActivityWorker struct {
	store  ActivityStore
	logger *log.Logger

	recorded   atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

func NewActivityWorker(store ActivityStore, logger *log.Logger) *ActivityWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ActivityWorker{
		store:  store,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent is an activity.Handler. A returned error makes the consumer
// requeue the delivery.
func (w *ActivityWorker) HandleEvent(ctx context.Context, e activity.Event) error {
	recorded, err := w.store.RecordActivity(ctx, e)
	if err != nil {
		w.failed.Add(1)
		return fmt.Errorf("record activity %s: %w", e.ID, err)
	}

	fields := log.NewFields().WithSessionID(e.SessionID).WithOperation(log.OpWrite)
	fields["event_id"] = e.ID
	fields["kind"] = string(e.Kind)

	if !recorded {
		w.duplicates.Add(1)
		w.logger.DebugContext(ctx, "Skipping already recorded activity event", fields.ToSlice()...)
		return nil
	}
	w.recorded.Add(1)
	w.logger.InfoContext(ctx, "Recorded activity event", fields.ToSlice()...)
	return nil
}

func (w *ActivityWorker) Stats() Stats {
	return Stats{
		Recorded:   w.recorded.Load(),
		Duplicates: w.duplicates.Load(),
		Failed:     w.failed.Load(),
	}
}

// LogStats logs the counters every interval until ctx is done.
func (w *ActivityWorker) LogStats(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := w.Stats()
			w.logger.InfoContext(ctx, "Activity worker stats",
				"recorded", s.Recorded,
				"duplicates", s.Duplicates,
				"failed", s.Failed)
		}
	}
}
