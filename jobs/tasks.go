package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionSweep deletes expired login sessions.
	TaskSessionSweep = "auth:session-sweep"
	// TaskRevocationSweep deletes expired token revocation entries. Expired
	// tokens fail verification on their own, so the rows are pure garbage.
	TaskRevocationSweep = "auth:revocation-sweep"
)

// Sweeper removes rows whose expiry is before now and reports how many.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// NewSessionSweepTask constructs the session sweep task.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskSessionSweep, nil)
}

// NewRevocationSweepTask constructs the revocation sweep task.
func NewRevocationSweepTask() *asynq.Task {
	return asynq.NewTask(TaskRevocationSweep, nil)
}

// SweepHandler adapts a Sweeper into an Asynq handler.
func SweepHandler(name string, sweeper Sweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		removed, err := sweeper.SweepExpired(ctx, time.Now().UTC())
		if err != nil {
			logger.Error("sweep failed", slog.String("task", name), slog.Any("error", err))
			return err
		}
		logger.Info("sweep completed", slog.String("task", name), slog.Int64("removed", removed))
		return nil
	}
}
