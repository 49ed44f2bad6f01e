package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskdeck/internal/registry"
	"taskdeck/internal/stream"
)

type stubDialer struct{}

func (stubDialer) Dial(context.Context, string) (stream.Socket, error) {
	return stream.NewFakeSocket(), nil
}

type stubRegistry struct {
	tasks map[string]registry.Task
}

func (s *stubRegistry) GetTask(_ context.Context, taskID string) (registry.Task, error) {
	task, ok := s.tasks[taskID]
	if !ok {
		return registry.Task{}, errors.New("no such task")
	}
	return task, nil
}

func newTestSession(ctx context.Context, reg taskStatusSource) *serveSession {
	sup := stream.NewSupervisor(stubDialer{}, func(string) stream.Options {
		return stream.Options{BaseURL: "http://127.0.0.1:8000", BackoffBase: time.Millisecond}
	}, nil)
	return &serveSession{ctx: ctx, sup: sup, reg: reg}
}

func TestServeSessionSeedsPolledStatus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := &stubRegistry{tasks: map[string]registry.Task{
		"t1": {TaskID: "t1", Status: "completed", Description: "long gone"},
	}}
	session := newTestSession(ctx, reg)
	defer session.Detach()

	source := session.Attach("t1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if source.Snapshot().PolledStatus == "completed" {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if got := source.Snapshot().PolledStatus; got != "completed" {
		t.Fatalf("polled status = %q, want completed", got)
	}
}

func TestServeSessionReattachKeepsOnePoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newTestSession(ctx, &stubRegistry{tasks: map[string]registry.Task{}})
	defer session.Detach()

	first := session.Attach("t1")
	if second := session.Attach("t1"); second != first {
		t.Fatalf("re-attach returned a different source")
	}
	session.mu.Lock()
	polled := session.polled
	session.mu.Unlock()
	if polled == nil {
		t.Fatalf("no poll bound after attach")
	}

	session.Detach()
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.polled != nil || session.stopPoll != nil {
		t.Fatalf("poll still bound after detach")
	}
}
