// Package tasks implements the scheduled maintenance tasks of botforge.
package tasks

import (
	"context"
	"log/slog"

	"github.com/edgard/botforge/internal/database"
)

// Sweeper clears handles of generated bots that are no longer running.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Purger drops expired conversation sessions.
type Purger interface {
	Purge() int
}

// TaskDeps contains the dependencies of the scheduled tasks.
// Sessions is nil when the session backend expires entries on its own.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Supervisor Sweeper
	Sessions   Purger
}
