package tasks

import (
	"context"
	"fmt"
	"time"
)

// newProcessSweepTask creates the task clearing handles of bots that died
// since the last reconciliation, and purging expired sessions.
func newProcessSweepTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "process_sweep")

	return func(ctx context.Context) error {
		startTime := time.Now()

		cleared, err := deps.Supervisor.Sweep(ctx)
		if err != nil {
			log.ErrorContext(ctx, "Process sweep failed", "error", err, "cleared", cleared, "duration", time.Since(startTime))
			return fmt.Errorf("process sweep failed: %w", err)
		}

		purged := 0
		if deps.Sessions != nil {
			purged = deps.Sessions.Purge()
		}

		if cleared > 0 || purged > 0 {
			log.InfoContext(ctx, "Process sweep completed", "cleared_handles", cleared, "purged_sessions", purged, "duration", time.Since(startTime))
		} else {
			log.DebugContext(ctx, "Process sweep found nothing to clear", "duration", time.Since(startTime))
		}
		return nil
	}
}
