package files

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

type ListFunc func(ctx context.Context, taskID string) ([]Artifact, error)

// Poller keeps a periodically refreshed artifact snapshot for one task and
// reports changes through a callback.
type Poller struct {
	taskID   string
	list     ListFunc
	interval time.Duration
	logger   *slog.Logger
	onChange func([]Artifact)

	mu     sync.RWMutex
	latest []Artifact
}

func NewPoller(taskID string, list ListFunc, interval time.Duration, logger *slog.Logger, onChange func([]Artifact)) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Poller{
		taskID:   taskID,
		list:     list,
		interval: interval,
		logger:   logger.With("task_id", taskID),
		onChange: onChange,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) Snapshot() []Artifact {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Artifact, len(p.latest))
	copy(out, p.latest)
	return out
}

func (p *Poller) refresh(ctx context.Context) {
	artifacts, err := p.list(ctx, p.taskID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("artifact poll failed", "err", err)
		}
		return
	}

	p.mu.Lock()
	changed := !sameArtifacts(p.latest, artifacts)
	if changed {
		p.latest = artifacts
	}
	p.mu.Unlock()

	if changed && p.onChange != nil {
		p.onChange(artifacts)
	}
}

func sameArtifacts(a, b []Artifact) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
