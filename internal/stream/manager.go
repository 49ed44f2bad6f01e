// Package stream owns the persistent per-task connection to the
// orchestrator: connect/reconnect lifecycle, ordered event application into
// the derived task view, and the outbound operator-message channel.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"taskdeck/internal/event"
	"taskdeck/internal/protocol"
	"taskdeck/internal/taskview"
)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Options struct {
	BaseURL         string
	TranscriptLimit int
	MaxReconnects   int
	DialTimeout     time.Duration
	BackoffBase     time.Duration
	BackoffCap      time.Duration
	Logger          *slog.Logger
	// OnUpdate receives a copy of the view after every applied event and
	// on connectivity changes. Called from the manager goroutine.
	OnUpdate func(taskview.TaskView)
}

const (
	defaultMaxReconnects = 10
	defaultDialTimeout   = 10 * time.Second
	defaultBackoffBase   = time.Second
	defaultBackoffCap    = 30 * time.Second
)

// Manager drives one connection for one task id. Run is the single writer
// of the task view; every other method only reads or enqueues.
type Manager struct {
	taskID string
	dialer Dialer
	opts   Options
	logger *slog.Logger

	mu              sync.RWMutex
	state           State
	sock            Socket
	view            taskview.TaskView
	lastCloseReason string
}

func NewManager(taskID string, dialer Dialer, opts Options) *Manager {
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = defaultMaxReconnects
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = defaultDialTimeout
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = defaultBackoffCap
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		taskID: taskID,
		dialer: dialer,
		opts:   opts,
		logger: logger.With("task_id", taskID),
		view:   taskview.New(taskID, opts.TranscriptLimit),
	}
}

// WSURL maps the registry base URL to the per-task stream address.
func WSURL(baseURL, taskID string) string {
	base := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/task/" + taskID
}

// Run connects and applies inbound events until ctx is cancelled or the
// reconnect budget is exhausted. The socket is released on every exit path.
func (m *Manager) Run(ctx context.Context) error {
	defer m.shutdown()

	attempt := 0
	for {
		sock, err := m.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.noteClosed(err)
			attempt++
			if attempt > m.opts.MaxReconnects {
				return fmt.Errorf("connect %s: %w", m.taskID, err)
			}
			if !m.waitBackoff(ctx, attempt) {
				return nil
			}
			continue
		}

		m.markOpen(sock)
		attempt = 0

		err = m.readLoop(ctx, sock)
		_ = sock.Close()
		m.noteClosed(err)
		if ctx.Err() != nil {
			return nil
		}

		attempt++
		if attempt > m.opts.MaxReconnects {
			if err != nil && err != io.EOF {
				return fmt.Errorf("stream %s: %w", m.taskID, err)
			}
			return fmt.Errorf("stream %s: reconnect budget exhausted", m.taskID)
		}
		if !m.waitBackoff(ctx, attempt) {
			return nil
		}
	}
}

func (m *Manager) dial(ctx context.Context) (Socket, error) {
	m.setState(StateConnecting)
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.DialTimeout)
	defer cancel()
	return m.dialer.Dial(dialCtx, WSURL(m.opts.BaseURL, m.taskID))
}

func (m *Manager) readLoop(ctx context.Context, sock Socket) error {
	for {
		text, err := sock.ReadText(ctx)
		if err != nil {
			return err
		}
		m.apply(text)
	}
}

// apply decodes and reduces one frame. Malformed frames are dropped without
// touching the view or the connection.
func (m *Manager) apply(text string) {
	ev, err := event.Decode([]byte(text))
	if err != nil {
		m.logger.Warn("dropped undecodable frame", "err", err)
		return
	}

	m.mu.Lock()
	m.view = taskview.Reduce(m.view, ev)
	snapshot := m.view.Clone()
	m.mu.Unlock()

	m.notify(snapshot)
}

// SendCommand serializes one operator message onto the open connection.
// Returns false, without error, when not open: delivery is at-most-once and
// the orchestrator echoes effects back through the stream.
func (m *Manager) SendCommand(ctx context.Context, content string) bool {
	m.mu.RLock()
	sock := m.sock
	open := m.state == StateOpen
	m.mu.RUnlock()
	if !open || sock == nil {
		m.logger.Debug("command dropped, stream not open", "state", m.State().String())
		return false
	}

	raw, err := json.Marshal(protocol.NewUserMessage(content))
	if err != nil {
		return false
	}
	if err := sock.WriteText(ctx, string(raw)); err != nil {
		m.logger.Warn("command write failed", "err", err)
		return false
	}
	return true
}

// Snapshot returns an independent copy of the current view.
func (m *Manager) Snapshot() taskview.TaskView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view.Clone()
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) LastCloseReason() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastCloseReason
}

// SetPolledStatus records the registry's task status, the fallback used
// before any terminal stream event arrives.
func (m *Manager) SetPolledStatus(status string) {
	m.mu.Lock()
	m.view.PolledStatus = status
	snapshot := m.view.Clone()
	m.mu.Unlock()
	m.notify(snapshot)
}

func (m *Manager) markOpen(sock Socket) {
	m.mu.Lock()
	m.state = StateOpen
	m.sock = sock
	m.view.Connected = true
	snapshot := m.view.Clone()
	m.mu.Unlock()
	m.logger.Info("stream open")
	m.notify(snapshot)
}

func (m *Manager) noteClosed(err error) {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	m.mu.Lock()
	m.state = StateClosed
	m.sock = nil
	m.lastCloseReason = reason
	m.view.Connected = false
	snapshot := m.view.Clone()
	m.mu.Unlock()
	m.logger.Warn("stream closed", "reason", reason)
	m.notify(snapshot)
}

func (m *Manager) shutdown() {
	m.mu.Lock()
	sock := m.sock
	m.sock = nil
	m.state = StateDisconnected
	m.view.Connected = false
	snapshot := m.view.Clone()
	m.mu.Unlock()
	if sock != nil {
		_ = sock.Close()
	}
	m.notify(snapshot)
}

func (m *Manager) waitBackoff(ctx context.Context, attempt int) bool {
	delay := m.backoff(attempt)
	m.logger.Info("reconnect scheduled", "attempt", attempt, "delay", delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (m *Manager) backoff(attempt int) time.Duration {
	delay := m.opts.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= m.opts.BackoffCap {
			return m.opts.BackoffCap
		}
	}
	if delay > m.opts.BackoffCap {
		return m.opts.BackoffCap
	}
	return delay
}

func (m *Manager) notify(snapshot taskview.TaskView) {
	if m.opts.OnUpdate != nil {
		m.opts.OnUpdate(snapshot)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}
