package stream

import (
	"context"
	"io"
	"log/slog"
	"sync"
)

// Supervisor enforces the one-connection-per-consumer rule: at most one
// manager runs at a time, and switching task ids fully tears the previous
// one down before the next opens.
type Supervisor struct {
	dialer  Dialer
	optsFor func(taskID string) Options
	logger  *slog.Logger

	// switchMu serializes whole attach/detach transitions so a teardown
	// and the start that follows it are one atomic step. mu only guards
	// the current-manager fields for readers.
	switchMu sync.Mutex
	mu       sync.Mutex
	cur      *Manager
	curID    string
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSupervisor(dialer Dialer, optsFor func(taskID string) Options, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Supervisor{dialer: dialer, optsFor: optsFor, logger: logger}
}

// Attach returns the manager for taskID, starting one if needed. Attaching
// the id already running is idempotent; attaching a different id detaches
// the previous manager first and waits for its socket to be released.
func (s *Supervisor) Attach(ctx context.Context, taskID string) *Manager {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	s.mu.Lock()
	if s.cur != nil && s.curID == taskID {
		m := s.cur
		s.mu.Unlock()
		return m
	}
	prevCancel := s.cancel
	prevDone := s.done
	s.cur = nil
	s.curID = ""
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if prevCancel != nil {
		prevCancel()
		<-prevDone
	}

	runCtx, cancel := context.WithCancel(ctx)
	m := NewManager(taskID, s.dialer, s.optsFor(taskID))
	done := make(chan struct{})

	s.mu.Lock()
	s.cur = m
	s.curID = taskID
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		if err := m.Run(runCtx); err != nil && runCtx.Err() == nil {
			s.logger.Warn("stream ended", "task_id", taskID, "err", err)
		}
	}()
	return m
}

// Detach stops the running manager, if any, and waits for release.
func (s *Supervisor) Detach() {
	s.switchMu.Lock()
	defer s.switchMu.Unlock()

	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cur = nil
	s.curID = ""
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// Current returns the attached manager and its task id.
func (s *Supervisor) Current() (*Manager, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur, s.curID, s.cur != nil
}
