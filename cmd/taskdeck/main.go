package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"taskdeck/internal/command"
	"taskdeck/internal/config"
	"taskdeck/internal/db"
	"taskdeck/internal/global"
	"taskdeck/internal/historydb"
	"taskdeck/internal/logging"

	"gorm.io/gorm"
)

var version = "dev"
var buildTime = "unknown"

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: loadRuntimeConfig,
		RunServe: func(ctx context.Context, cfg config.Config) error {
			return runServe(ctx, os.Stdout, os.Stderr, cfg)
		},
		RunWatch: func(ctx context.Context, cfg config.Config, taskID string) error {
			return runWatch(ctx, os.Stdout, os.Stderr, cfg, taskID)
		},
		ListTasks:    listTasks,
		CreateTask:   createTask,
		CancelTask:   cancelTask,
		SendMessage:  sendMessage,
		RunMigrateUp: runMigrateUp,
	})

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr, Component: "taskdeck"}).Error("taskdeck failed", "err", err)
		os.Exit(1)
	}
}

// loadRuntimeConfig resolves configuration in three layers: built-in
// defaults, then the global config file, then the TASKDECK_* environment.
// A missing or unreadable config file falls back to defaults silently.
func loadRuntimeConfig() config.Config {
	base := config.DefaultConfig()
	if dir, err := global.DefaultConfigDir(); err == nil {
		if gcfg, err := global.NewConfigStore(dir).LoadOrInit(); err == nil {
			base.OrchestratorBaseURL = gcfg.OrchestratorBaseURL
			base.LocalPort = gcfg.LocalPort
			base.TranscriptLimit = gcfg.Watch.TranscriptLimit
			base.ReconnectMax = gcfg.Watch.ReconnectMax
			base.FilePollSeconds = gcfg.Watch.FilePollSeconds
		}
	}
	return config.LoadConfigFrom(base)
}

func newRuntimeLogger(w io.Writer, level string) *slog.Logger {
	if w == nil {
		w = io.Discard
	}
	return logging.NewLogger(logging.Options{Level: level, Writer: w, Component: "taskdeck"})
}

func runMigrateUp(_ context.Context, _ config.Config) error {
	gdb, err := openHistoryDB()
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// openHistoryDB opens the local sqlite history database under the config
// dir, creating and migrating it as needed.
func openHistoryDB() (*gorm.DB, error) {
	configDir, err := global.DefaultConfigDir()
	if err != nil {
		return nil, err
	}
	return db.OpenSQLite(filepath.Join(configDir, "taskdeck.db"))
}

// openHistoryStore is best-effort: watching a task must not depend on local
// persistence being healthy.
func openHistoryStore(logger *slog.Logger) *historydb.Store {
	gdb, err := openHistoryDB()
	if err != nil {
		logger.Warn("history db unavailable", "err", err)
		return nil
	}
	store, err := historydb.NewStore(gdb)
	if err != nil {
		logger.Warn("history store unavailable", "err", err)
		return nil
	}
	return store
}
