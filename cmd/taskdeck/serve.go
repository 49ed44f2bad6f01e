package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"taskdeck/internal/config"
	"taskdeck/internal/files"
	"taskdeck/internal/lifecycle"
	"taskdeck/internal/localapi"
	"taskdeck/internal/registry"
	"taskdeck/internal/stream"
	"taskdeck/internal/taskview"
)

// serveSession adapts the stream supervisor to the local API, binding
// attachments to the server's run context. Each attached manager gets a
// registry status poll so the fallback status is present before any
// terminal stream event arrives.
type serveSession struct {
	ctx context.Context
	sup *stream.Supervisor
	reg taskStatusSource

	mu       sync.Mutex
	polled   *stream.Manager
	stopPoll context.CancelFunc
}

func (s *serveSession) Attach(taskID string) localapi.ViewSource {
	mgr := s.sup.Attach(s.ctx, taskID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.polled == mgr {
		return mgr
	}
	if s.stopPoll != nil {
		s.stopPoll()
	}
	pollCtx, cancel := context.WithCancel(s.ctx)
	s.polled = mgr
	s.stopPoll = cancel
	if s.reg != nil {
		go pollRegistryStatus(pollCtx, s.reg, taskID, mgr)
	}
	return mgr
}

func (s *serveSession) Detach() {
	s.mu.Lock()
	if s.stopPoll != nil {
		s.stopPoll()
		s.stopPoll = nil
	}
	s.polled = nil
	s.mu.Unlock()

	s.sup.Detach()
}

func (s *serveSession) Current() (localapi.ViewSource, string, bool) {
	mgr, taskID, ok := s.sup.Current()
	if !ok {
		return nil, "", false
	}
	return mgr, taskID, true
}

func runServe(ctx context.Context, out, errOut io.Writer, cfg config.Config) error {
	logger := newRuntimeLogger(errOut, cfg.LogLevel)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := openHistoryStore(logger)
	reg := registry.NewClient(cfg.OrchestratorBaseURL)
	session := &serveSession{ctx: serveCtx, reg: reg}

	deps := localapi.Deps{
		Registry: reg,
		Files:    files.NewLister(cfg.OrchestratorBaseURL),
		Streams:  session,
	}
	if store != nil {
		deps.History = store
	}
	server := localapi.NewServer(deps)

	hub := server.Hub()
	session.sup = stream.NewSupervisor(stream.RealDialer{}, func(taskID string) stream.Options {
		return stream.Options{
			BaseURL:         cfg.OrchestratorBaseURL,
			TranscriptLimit: cfg.TranscriptLimit,
			MaxReconnects:   cfg.ReconnectMax,
			DialTimeout:     time.Duration(cfg.DialTimeoutSeconds) * time.Second,
			Logger:          logger.With("module", "stream"),
			OnUpdate: func(v taskview.TaskView) {
				hub.Publish("task.view", taskID, localapi.ViewPayload(v))
			},
		}
	}, logger.With("module", "streams"))

	addr := fmt.Sprintf("%s:%d", cfg.LocalHost, cfg.LocalPort)
	httpSrv := &http.Server{Addr: addr, Handler: server.Handler()}

	life := lifecycle.NewManager()
	life.AddRun("http", func(context.Context) error {
		_, _ = fmt.Fprintf(out, "taskdeck console on http://%s\n", addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	life.AddRun("http_stopper", func(runCtx context.Context) error {
		<-runCtx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 3*time.Second)
		defer stop()
		_ = httpSrv.Shutdown(shutdownCtx)
		return nil
	})
	life.AddShutdown("streams", func(context.Context) error {
		if store != nil {
			if mgr, _, ok := session.sup.Current(); ok {
				if err := store.RecordView(mgr.Snapshot(), ""); err != nil {
					logger.Warn("history record failed", "err", err)
				}
			}
		}
		session.Detach()
		return nil
	})
	return life.StartAndWait(serveCtx)
}
