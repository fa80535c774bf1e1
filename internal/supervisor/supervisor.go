// Package supervisor launches, tracks and terminates the OS processes that
// run generated bots, keeping the persisted process handles in sync.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/botforge/internal/botspec"
	"github.com/edgard/botforge/internal/database"
	errs "github.com/edgard/botforge/internal/errors"
	"github.com/edgard/botforge/internal/generator"
)

// Config holds the supervisor settings.
type Config struct {
	Layout               generator.Layout
	Builder              Builder
	ServerURL            string
	StopTimeout          time.Duration
	ReconcileTimeout     time.Duration
	ReconcileConcurrency int
}

// Supervisor owns the lifecycle of generated bot processes.
type Supervisor struct {
	store  database.Store
	cfg    Config
	logger *slog.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex

	childMu  sync.Mutex
	children map[int]*child
}

// New creates a Supervisor. The layout directory is resolved to an absolute path.
func New(store database.Store, cfg Config, logger *slog.Logger) (*Supervisor, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("builder cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dir, err := filepath.Abs(cfg.Layout.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}
	cfg.Layout.Dir = dir

	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	if cfg.ReconcileTimeout <= 0 {
		cfg.ReconcileTimeout = 3 * time.Second
	}
	if cfg.ReconcileConcurrency <= 0 {
		cfg.ReconcileConcurrency = 4
	}

	return &Supervisor{
		store:    store,
		cfg:      cfg,
		logger:   logger.With("component", "supervisor"),
		locks:    make(map[int64]*sync.Mutex),
		children: make(map[int]*child),
	}, nil
}

// Layout returns the resolved per-bot file layout.
func (s *Supervisor) Layout() generator.Layout {
	return s.cfg.Layout
}

func (s *Supervisor) lockFor(configID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[configID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[configID] = l
	}
	return l
}

// Launch (re)starts the bot for configID: any previous instance is
// terminated, the artifact is regenerated and built, and the new process
// handle is persisted. On failure no handle is left behind.
func (s *Supervisor) Launch(ctx context.Context, cfg *botspec.Configuration, token string, configID int64) error {
	l := s.lockFor(configID)
	l.Lock()
	defer l.Unlock()

	log := s.logger.With("config_id", configID)

	if err := s.stopLocked(ctx, configID, s.cfg.StopTimeout); err != nil {
		return errs.NewProcessError("failed to stop previous instance", err)
	}

	layout := s.cfg.Layout
	if err := generator.Generate(cfg, layout.Artifact(configID), configID); err != nil {
		if errs.Is(err, errs.CodeValidation) {
			return err
		}
		return errs.NewProcessError("failed to generate bot", err)
	}

	if err := generator.WriteCredentials(layout.Credentials(configID), generator.Credentials{
		Token:     token,
		ServerURL: s.cfg.ServerURL,
	}); err != nil {
		return errs.NewProcessError("failed to write bot credentials", err)
	}

	log.InfoContext(ctx, "Building bot", "artifact", layout.Artifact(configID))
	if err := s.cfg.Builder.Build(ctx, layout.Artifact(configID), layout.Binary(configID)); err != nil {
		log.ErrorContext(ctx, "Failed to build bot", "error", err)
		return errs.NewProcessError("failed to build bot", err)
	}

	c, err := s.start(layout, configID, token)
	if err != nil {
		log.ErrorContext(ctx, "Failed to start bot", "error", err)
		return errs.NewProcessError("failed to start bot", err)
	}

	pid := c.cmd.Process.Pid
	handle := &database.ProcessHandle{PID: pid, StartedAt: createTime(ctx, pid)}
	if handle.StartedAt == 0 {
		log.WarnContext(ctx, "Process creation time unknown, identity falls back to pid", "pid", pid)
	}

	if err := s.store.SetProcessHandle(ctx, configID, handle); err != nil {
		log.ErrorContext(ctx, "Failed to persist process handle, killing process", "pid", pid, "error", err)
		if killErr := c.cmd.Process.Kill(); killErr != nil {
			log.WarnContext(ctx, "Failed to kill unpersisted process", "pid", pid, "error", killErr)
		}
		<-c.done
		s.removeOrphanedArtifacts(ctx, configID)
		return errs.NewProcessError("failed to record bot process", err)
	}

	log.InfoContext(ctx, "Bot started", "pid", pid, "pid_started_at", handle.StartedAt)
	return nil
}

// removeOrphanedArtifacts deletes the generated files of configID once its
// row is gone, so a deleted bot's token does not stay on disk.
func (s *Supervisor) removeOrphanedArtifacts(ctx context.Context, configID int64) {
	log := s.logger.With("config_id", configID)

	cfg, err := s.store.GetBotConfig(ctx, configID)
	if err != nil {
		log.WarnContext(ctx, "Failed to look up bot config after failed launch", "error", err)
		return
	}
	if cfg != nil {
		return
	}

	if err := s.cfg.Layout.RemoveArtifacts(configID); err != nil {
		log.WarnContext(ctx, "Failed to remove artifacts of deleted bot", "error", err)
		return
	}
	log.InfoContext(ctx, "Removed artifacts of deleted bot")
}

func (s *Supervisor) start(layout generator.Layout, configID int64, token string) (*child, error) {
	logFile, err := os.OpenFile(layout.Log(configID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open bot log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(layout.Binary(configID))
	cmd.Dir = layout.Dir
	cmd.Env = append(os.Environ(), "BOT_TOKEN="+token)
	if s.cfg.ServerURL != "" {
		cmd.Env = append(cmd.Env, "BOT_SERVER_URL="+s.cfg.ServerURL)
	}
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return s.track(cmd), nil
}

// Stop terminates the bot's process, if any, and clears its handle.
func (s *Supervisor) Stop(ctx context.Context, configID int64) error {
	l := s.lockFor(configID)
	l.Lock()
	defer l.Unlock()

	return s.stopLocked(ctx, configID, s.cfg.StopTimeout)
}

// stopLocked terminates the persisted process of configID. A missing
// process, a reused pid and a timeout are logged, never returned; only
// store failures are.
func (s *Supervisor) stopLocked(ctx context.Context, configID int64, timeout time.Duration) error {
	handle, err := s.store.GetProcessHandle(ctx, configID)
	if err != nil {
		return err
	}
	if handle == nil {
		return nil
	}

	s.terminateLogged(ctx, configID, *handle, timeout)

	return s.store.SetProcessHandle(ctx, configID, nil)
}

func (s *Supervisor) terminateLogged(ctx context.Context, configID int64, h database.ProcessHandle, timeout time.Duration) {
	log := s.logger.With("config_id", configID, "pid", h.PID)

	err := s.terminate(ctx, h, timeout)
	switch {
	case err == nil:
		log.InfoContext(ctx, "Bot process terminated")
	case errors.Is(err, ErrNotRunning):
		log.InfoContext(ctx, "Bot process already gone")
	case errors.Is(err, ErrIdentityMismatch):
		log.WarnContext(ctx, "Pid reused by another process, treating bot as stopped")
	case errors.Is(err, ErrStopTimeout):
		log.WarnContext(ctx, "Bot process did not exit in time and was killed", "timeout", timeout)
	default:
		log.WarnContext(ctx, "Failed to terminate bot process", "error", err)
	}
}

// Delete removes a bot owned by userID: its process is terminated, its row
// deleted and its files removed. Non-owners get false and nothing is touched.
func (s *Supervisor) Delete(ctx context.Context, configID, userID int64) (bool, error) {
	cfg, err := s.store.GetBotConfig(ctx, configID)
	if err != nil {
		return false, err
	}
	if cfg == nil || cfg.UserID != userID {
		return false, nil
	}

	l := s.lockFor(configID)
	l.Lock()
	defer l.Unlock()

	if err := s.stopLocked(ctx, configID, s.cfg.StopTimeout); err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteBotConfig(ctx, configID, userID)
	if err != nil || !deleted {
		return deleted, err
	}

	if err := s.cfg.Layout.RemoveArtifacts(configID); err != nil {
		s.logger.WarnContext(ctx, "Failed to remove bot files", "config_id", configID, "error", err)
	}

	s.logger.InfoContext(ctx, "Bot deleted", "config_id", configID, "user_id", userID)
	return true, nil
}

// ReconcileOnStartup terminates every process recorded in the store and
// clears its handle, whatever the termination outcome.
func (s *Supervisor) ReconcileOnStartup(ctx context.Context) error {
	tracked, err := s.store.ListProcessHandles(ctx)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Reconciling bot processes", "count", len(tracked))

	var g errgroup.Group
	g.SetLimit(s.cfg.ReconcileConcurrency)

	for _, tp := range tracked {
		tp := tp
		g.Go(func() error {
			l := s.lockFor(tp.ConfigID)
			l.Lock()
			defer l.Unlock()

			s.terminateLogged(ctx, tp.ConfigID, tp.Handle, s.cfg.ReconcileTimeout)
			if err := s.store.SetProcessHandle(ctx, tp.ConfigID, nil); err != nil {
				return fmt.Errorf("failed to clear handle of bot %d: %w", tp.ConfigID, err)
			}
			return nil
		})
	}

	return g.Wait()
}

// Sweep clears the handles of bots whose process has exited. Bots that are
// being launched or stopped are skipped. It returns the number of handles cleared.
func (s *Supervisor) Sweep(ctx context.Context) (int, error) {
	tracked, err := s.store.ListProcessHandles(ctx)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, tp := range tracked {
		l := s.lockFor(tp.ConfigID)
		if !l.TryLock() {
			continue
		}

		swept, err := s.sweepOne(ctx, tp.ConfigID)
		l.Unlock()

		if err != nil {
			return cleared, err
		}
		if swept {
			cleared++
		}
	}

	if cleared > 0 {
		s.logger.InfoContext(ctx, "Cleared handles of exited bots", "count", cleared)
	}
	return cleared, nil
}

func (s *Supervisor) sweepOne(ctx context.Context, configID int64) (bool, error) {
	handle, err := s.store.GetProcessHandle(ctx, configID)
	if err != nil || handle == nil {
		return false, err
	}
	if s.alive(ctx, *handle) {
		return false, nil
	}

	s.logger.InfoContext(ctx, "Bot process no longer running", "config_id", configID, "pid", handle.PID)
	if err := s.store.SetProcessHandle(ctx, configID, nil); err != nil {
		return false, err
	}
	return true, nil
}
