package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskIdempotencySweep removes idempotency records past their retention.
const TaskIdempotencySweep = "idempotency:sweep"

// QueueMaintenance holds periodic housekeeping jobs.
const QueueMaintenance = "maintenance"

// SweepStore deletes expired idempotency records.
type SweepStore interface {
	DeleteRecordsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewIdempotencySweepHandler builds the sweep job processor.
func NewIdempotencySweepHandler(store SweepStore, retention time.Duration, log *slog.Logger) asynq.HandlerFunc {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return func(ctx context.Context, _ *asynq.Task) error {
		cutoff := time.Now().UTC().Add(-retention)
		deleted, err := store.DeleteRecordsBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "idempotency sweep completed", "deleted", deleted, "cutoff", cutoff)
		return nil
	}
}
