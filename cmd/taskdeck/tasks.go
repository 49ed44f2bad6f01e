package main

import (
	"context"
	"fmt"
	"os"

	"taskdeck/internal/config"
	"taskdeck/internal/registry"
)

func listTasks(ctx context.Context, cfg config.Config, local bool) error {
	if local {
		return listLocalHistory(cfg)
	}
	client := registry.NewClient(cfg.OrchestratorBaseURL)
	tasks, err := client.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, t := range tasks {
		fmt.Printf("%-36s %-10s %s\n", t.TaskID, t.Status, t.Description)
	}
	return nil
}

func listLocalHistory(cfg config.Config) error {
	logger := newRuntimeLogger(os.Stderr, cfg.LogLevel)
	store := openHistoryStore(logger)
	if store == nil {
		return fmt.Errorf("watch history unavailable")
	}
	entries, err := store.Recent(50)
	if err != nil {
		return fmt.Errorf("read watch history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no watched tasks")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%-36s %-10s events=%-6d %s\n", e.TaskID, e.Status, e.TranscriptLen, e.LastEvent.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func createTask(ctx context.Context, cfg config.Config, description string) error {
	client := registry.NewClient(cfg.OrchestratorBaseURL)
	task, err := client.CreateTask(ctx, description)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	fmt.Printf("created %s (%s)\n", task.TaskID, task.Status)
	return nil
}

func cancelTask(ctx context.Context, cfg config.Config, taskID string) error {
	client := registry.NewClient(cfg.OrchestratorBaseURL)
	if err := client.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("cancel task %s: %w", taskID, err)
	}
	fmt.Printf("cancel requested for %s\n", taskID)
	return nil
}

func sendMessage(ctx context.Context, cfg config.Config, taskID, message string) error {
	client := registry.NewClient(cfg.OrchestratorBaseURL)
	if err := client.SendMessage(ctx, taskID, message); err != nil {
		return fmt.Errorf("send message to %s: %w", taskID, err)
	}
	fmt.Printf("message queued for %s\n", taskID)
	return nil
}
