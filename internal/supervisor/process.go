package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/edgard/botforge/internal/database"
)

var (
	// ErrNotRunning means no process with the handle's pid exists.
	ErrNotRunning = errors.New("process is not running")
	// ErrIdentityMismatch means the pid now belongs to a different process.
	ErrIdentityMismatch = errors.New("pid belongs to a different process")
	// ErrStopTimeout means the process outlived the termination bound and was killed.
	ErrStopTimeout = errors.New("process did not exit in time")
)

const pollInterval = 50 * time.Millisecond

// createTimeTolerance absorbs the drift of creation times derived from the
// boot time, which moves when the wall clock is stepped.
const createTimeTolerance = time.Second

// child is a process started by this supervisor. done is closed once it has been reaped.
type child struct {
	cmd  *exec.Cmd
	done chan struct{}
}

// track reaps cmd in the background so exited children never linger as zombies.
func (s *Supervisor) track(cmd *exec.Cmd) *child {
	c := &child{cmd: cmd, done: make(chan struct{})}
	pid := cmd.Process.Pid

	s.childMu.Lock()
	s.children[pid] = c
	s.childMu.Unlock()

	go func() {
		err := cmd.Wait()
		s.childMu.Lock()
		if s.children[pid] == c {
			delete(s.children, pid)
		}
		s.childMu.Unlock()
		close(c.done)
		s.logger.Info("Bot process exited", "pid", pid, "error", err)
	}()

	return c
}

func (s *Supervisor) ownChild(pid int) *child {
	s.childMu.Lock()
	defer s.childMu.Unlock()
	return s.children[pid]
}

// lookup resolves a handle to a live process, verifying its creation time
// when one was recorded.
func lookup(ctx context.Context, h database.ProcessHandle) (*process.Process, error) {
	if h.PID <= 0 {
		return nil, ErrNotRunning
	}

	p, err := process.NewProcessWithContext(ctx, int32(h.PID))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("failed to look up pid %d: %w", h.PID, err)
	}

	if h.StartedAt != 0 {
		created, err := p.CreateTimeWithContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read creation time of pid %d: %w", h.PID, err)
		}
		if !sameCreateTime(h.StartedAt, created) {
			return nil, ErrIdentityMismatch
		}
	}

	return p, nil
}

// sameCreateTime reports whether two creation times in unix milliseconds
// belong to the same process.
func sameCreateTime(recorded, actual int64) bool {
	diff := recorded - actual
	if diff < 0 {
		diff = -diff
	}
	return diff <= createTimeTolerance.Milliseconds()
}

// createTime returns the creation time of pid in unix milliseconds, or 0 if unknown.
func createTime(ctx context.Context, pid int) int64 {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return 0
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		return 0
	}
	return created
}

// alive reports whether the process behind h is still running.
func (s *Supervisor) alive(ctx context.Context, h database.ProcessHandle) bool {
	if c := s.ownChild(h.PID); c != nil {
		select {
		case <-c.done:
			return false
		default:
			return true
		}
	}

	p, err := lookup(ctx, h)
	if err != nil {
		return false
	}

	running, err := p.IsRunningWithContext(ctx)
	return err == nil && running
}

// terminate asks the process behind h to exit and waits up to timeout,
// killing it afterwards.
func (s *Supervisor) terminate(ctx context.Context, h database.ProcessHandle, timeout time.Duration) error {
	p, err := lookup(ctx, h)
	if err != nil {
		return err
	}

	if err := p.TerminateWithContext(ctx); err != nil {
		if !s.alive(ctx, h) {
			return nil
		}
		return fmt.Errorf("failed to signal pid %d: %w", h.PID, err)
	}

	if s.waitExit(ctx, h, p, timeout) {
		return nil
	}

	if err := p.KillWithContext(ctx); err != nil {
		s.logger.WarnContext(ctx, "Failed to kill process", "pid", h.PID, "error", err)
	}
	if c := s.ownChild(h.PID); c != nil {
		select {
		case <-c.done:
		case <-time.After(time.Second):
		}
	}

	return ErrStopTimeout
}

func (s *Supervisor) waitExit(ctx context.Context, h database.ProcessHandle, p *process.Process, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if c := s.ownChild(h.PID); c != nil {
		select {
		case <-c.done:
			return true
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		running, err := p.IsRunningWithContext(ctx)
		if err != nil || !running {
			return true
		}

		select {
		case <-ticker.C:
		case <-timer.C:
			return false
		case <-ctx.Done():
			return false
		}
	}
}
