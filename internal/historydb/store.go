// Package historydb records summaries of watched tasks in the local sqlite
// database. The event log itself is not persisted; a registry re-fetch plus
// the live stream reconstruct the view after a reload.
package historydb

import (
	"errors"
	"strings"
	"time"

	dbmodel "taskdeck/internal/db"
	"taskdeck/internal/taskview"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	TaskID          string
	Description     string
	Status          string
	PlanText        string
	Summary         string
	TranscriptLen   int
	AgentsSpawned   int
	AgentsCompleted int
	FirstWatched    time.Time
	LastEvent       time.Time
	WatchCount      int
}

type Store struct {
	db *gorm.DB
}

// NewStore uses the shared DB handle. Caller must not close it.
func NewStore(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	return &Store{db: db}, nil
}

// RecordView upserts the summary row for one task from the current derived
// view. Called after terminal events and on detach.
func (s *Store) RecordView(v taskview.TaskView, description string) error {
	if s == nil || s.db == nil {
		return errors.New("history store is not initialized")
	}
	taskID := strings.TrimSpace(v.TaskID)
	if taskID == "" {
		return errors.New("task id is required")
	}

	spawned := len(v.Agents)
	completed := 0
	for _, rec := range v.Agents {
		if rec.Status == taskview.AgentCompleted {
			completed++
		}
	}

	now := time.Now().UTC().Unix()
	row := dbmodel.WatchedTask{
		TaskID:          taskID,
		Description:     description,
		Status:          v.TerminalStatus(),
		PlanText:        v.LatestPlan,
		Summary:         v.Summary,
		TranscriptLen:   len(v.Transcript) + v.DroppedEvents,
		AgentsSpawned:   spawned,
		AgentsCompleted: completed,
		FirstWatchedAt:  now,
		LastEventAt:     now,
		WatchCount:      1,
	}
	updates := map[string]any{
		"status":           row.Status,
		"plan_text":        row.PlanText,
		"summary":          row.Summary,
		"transcript_len":   row.TranscriptLen,
		"agents_spawned":   row.AgentsSpawned,
		"agents_completed": row.AgentsCompleted,
		"last_event_at":    now,
		"watch_count":      gorm.Expr("watched_tasks.watch_count + 1"),
	}
	// A re-record without a description must not erase the one a previous
	// watch stored.
	if row.Description != "" {
		updates["description"] = row.Description
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "task_id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&row).Error
}

func (s *Store) Recent(limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("history store is not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows := make([]dbmodel.WatchedTask, 0, limit)
	if err := s.db.Order("last_event_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			TaskID:          row.TaskID,
			Description:     row.Description,
			Status:          row.Status,
			PlanText:        row.PlanText,
			Summary:         row.Summary,
			TranscriptLen:   row.TranscriptLen,
			AgentsSpawned:   row.AgentsSpawned,
			AgentsCompleted: row.AgentsCompleted,
			FirstWatched:    time.Unix(row.FirstWatchedAt, 0).UTC(),
			LastEvent:       time.Unix(row.LastEventAt, 0).UTC(),
			WatchCount:      row.WatchCount,
		})
	}
	return entries, nil
}

func (s *Store) Clear() error {
	if s == nil || s.db == nil {
		return errors.New("history store is not initialized")
	}
	return s.db.Where("1 = 1").Delete(&dbmodel.WatchedTask{}).Error
}
