package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/files"
	"taskdeck/internal/lifecycle"
	"taskdeck/internal/registry"
	"taskdeck/internal/stream"
)

// runWatch attaches to one task and mirrors its activity onto out until the
// task reaches a terminal state, the stream gives up, or the operator
// interrupts.
func runWatch(ctx context.Context, out, errOut io.Writer, cfg config.Config, taskID string) error {
	logger := newRuntimeLogger(errOut, cfg.LogLevel)
	_, _ = fmt.Fprintf(out, "taskdeck %s (built %s)\n", version, buildTime)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	printer := newConsolePrinter(out, cancel)
	mgr := stream.NewManager(taskID, stream.RealDialer{}, stream.Options{
		BaseURL:         cfg.OrchestratorBaseURL,
		TranscriptLimit: cfg.TranscriptLimit,
		MaxReconnects:   cfg.ReconnectMax,
		DialTimeout:     time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		Logger:          logger.With("module", "stream"),
		OnUpdate:        printer.OnUpdate,
	})

	reg := registry.NewClient(cfg.OrchestratorBaseURL)
	description := ""
	if task, err := reg.GetTask(ctx, taskID); err != nil {
		logger.Warn("registry fetch failed, relying on stream only", "err", err)
	} else {
		description = task.Description
		mgr.SetPolledStatus(task.Status)
		_, _ = fmt.Fprintf(out, "task %s [%s]: %s\n", task.TaskID, task.Status, task.Description)
	}

	lister := files.NewLister(cfg.OrchestratorBaseURL)
	poller := files.NewPoller(taskID, lister.List,
		time.Duration(cfg.FilePollSeconds)*time.Second,
		logger.With("module", "files"), printer.OnArtifacts)

	store := openHistoryStore(logger)

	life := lifecycle.NewManager()
	life.AddRun("stream", mgr.Run)
	life.AddRun("files", func(runCtx context.Context) error {
		poller.Run(runCtx)
		return nil
	})
	life.AddRun("status_poll", func(runCtx context.Context) error {
		pollRegistryStatus(runCtx, reg, taskID, mgr)
		return nil
	})
	life.AddShutdown("history", func(context.Context) error {
		if store == nil {
			return nil
		}
		return store.RecordView(mgr.Snapshot(), description)
	})
	return life.StartAndWait(watchCtx)
}

// taskStatusSource is the slice of the registry client the status poll
// needs.
type taskStatusSource interface {
	GetTask(ctx context.Context, taskID string) (registry.Task, error)
}

// pollRegistryStatus keeps the fallback status fresh while no terminal
// stream event has been observed. The first fetch happens immediately so an
// already-finished task is reported without waiting a full tick.
func pollRegistryStatus(ctx context.Context, reg taskStatusSource, taskID string, mgr *stream.Manager) {
	refresh := func() {
		task, err := reg.GetTask(ctx, taskID)
		if err != nil {
			return
		}
		mgr.SetPolledStatus(task.Status)
	}

	refresh()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
