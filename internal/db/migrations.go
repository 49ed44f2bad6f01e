package db

import (
	"errors"

	"gorm.io/gorm"
)

// SyncSchema creates/updates tables and indexes from models.
func SyncSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(
		&WatchedTask{},
	); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_watched_tasks_last_event_at ON watched_tasks(last_event_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_watched_tasks_status ON watched_tasks(status);`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

func MigrateUp(db *gorm.DB) error {
	return SyncSchema(db)
}
