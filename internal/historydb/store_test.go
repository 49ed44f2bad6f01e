package historydb

import (
	"path/filepath"
	"testing"

	"taskdeck/internal/db"
	"taskdeck/internal/event"
	"taskdeck/internal/taskview"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	gdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewStore(gdb)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func sampleView(taskID string) taskview.TaskView {
	v := taskview.New(taskID, 0)
	v = taskview.Reduce(v, event.Event{Kind: event.KindPlanUpdate, PlanUpdate: &event.PlanUpdate{Plan: "1. look\n2. fix"}})
	v = taskview.Reduce(v, event.Event{Kind: event.KindAgentSpawn, AgentSpawn: &event.AgentSpawn{Name: "coder-1", Role: "coder"}})
	v = taskview.Reduce(v, event.Event{Kind: event.KindAgentComplete, AgentComplete: &event.AgentComplete{Name: "coder-1"}})
	v = taskview.Reduce(v, event.Event{Kind: event.KindTaskComplete, TaskComplete: &event.TaskComplete{Summary: "done"}})
	return v
}

func TestRecordViewAndRecent(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordView(sampleView("t1"), "fix the build"); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v", entries)
	}
	e := entries[0]
	if e.TaskID != "t1" || e.Description != "fix the build" || e.Status != "completed" {
		t.Fatalf("entry = %+v", e)
	}
	if e.PlanText != "1. look\n2. fix" || e.Summary != "done" {
		t.Fatalf("entry plan/summary = %+v", e)
	}
	if e.AgentsSpawned != 1 || e.AgentsCompleted != 1 || e.TranscriptLen != 4 {
		t.Fatalf("entry counters = %+v", e)
	}
	if e.WatchCount != 1 {
		t.Fatalf("watch count = %d", e.WatchCount)
	}
}

func TestRecordViewUpsertsOnRewatch(t *testing.T) {
	store := openTestStore(t)

	v := taskview.New("t1", 0)
	v.Connected = true
	if err := store.RecordView(v, "first pass"); err != nil {
		t.Fatalf("first RecordView failed: %v", err)
	}
	if err := store.RecordView(sampleView("t1"), "second pass"); err != nil {
		t.Fatalf("second RecordView failed: %v", err)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("rewatch created a second row: %+v", entries)
	}
	e := entries[0]
	if e.Status != "completed" || e.Description != "second pass" {
		t.Fatalf("entry not updated: %+v", e)
	}
	if e.WatchCount != 2 {
		t.Fatalf("watch count = %d, want 2", e.WatchCount)
	}
}

func TestRecordViewKeepsDescriptionOnEmptyUpdate(t *testing.T) {
	store := openTestStore(t)

	if err := store.RecordView(sampleView("t1"), "fix the build"); err != nil {
		t.Fatalf("first RecordView failed: %v", err)
	}
	if err := store.RecordView(sampleView("t1"), ""); err != nil {
		t.Fatalf("second RecordView failed: %v", err)
	}

	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Description != "fix the build" {
		t.Fatalf("description wiped by empty update: %+v", entries)
	}
	if entries[0].WatchCount != 2 {
		t.Fatalf("watch count = %d, want 2", entries[0].WatchCount)
	}
}

func TestRecordViewRejectsEmptyTaskID(t *testing.T) {
	store := openTestStore(t)
	if err := store.RecordView(taskview.New("  ", 0), ""); err == nil {
		t.Fatalf("expected error for empty task id")
	}
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	if err := store.RecordView(sampleView("t1"), ""); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	entries, err := store.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries after clear = %+v", entries)
	}
}
