package db

// WatchedTask is the durable summary of one observed task: enough for a
// local history listing, never the raw event log.
type WatchedTask struct {
	TaskID          string `gorm:"column:task_id;primaryKey"`
	Description     string `gorm:"column:description;not null;default:''"`
	Status          string `gorm:"column:status;not null;default:''"`
	PlanText        string `gorm:"column:plan_text;not null;default:''"`
	Summary         string `gorm:"column:summary;not null;default:''"`
	TranscriptLen   int    `gorm:"column:transcript_len;not null;default:0"`
	AgentsSpawned   int    `gorm:"column:agents_spawned;not null;default:0"`
	AgentsCompleted int    `gorm:"column:agents_completed;not null;default:0"`
	FirstWatchedAt  int64  `gorm:"column:first_watched_at;not null;default:0"`
	LastEventAt     int64  `gorm:"column:last_event_at;not null;default:0"`
	WatchCount      int    `gorm:"column:watch_count;not null;default:0"`
}

func (WatchedTask) TableName() string { return "watched_tasks" }
