package command

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"taskdeck/internal/config"
)

type Deps struct {
	LoadConfig   func() config.Config
	RunServe     func(context.Context, config.Config) error
	RunWatch     func(context.Context, config.Config, string) error
	ListTasks    func(context.Context, config.Config, bool) error
	CreateTask   func(context.Context, config.Config, string) error
	CancelTask   func(context.Context, config.Config, string) error
	SendMessage  func(context.Context, config.Config, string, string) error
	RunMigrateUp func(context.Context, config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	return &cli.App{
		Name:  "taskdeck",
		Usage: "operator console for autonomous tasks",
		Action: func(ctx *cli.Context) error {
			cfg := loadConfig(deps)
			return runServe(ctx.Context, deps, cfg)
		},
		Commands: []*cli.Command{
			{
				Name:      "watch",
				Usage:     "attach to a task and stream its activity",
				ArgsUsage: "<task-id>",
				Action: func(ctx *cli.Context) error {
					taskID := strings.TrimSpace(ctx.Args().First())
					if taskID == "" {
						return errors.New("task id is required")
					}
					if deps.RunWatch == nil {
						return errors.New("watch runner is not configured")
					}
					return deps.RunWatch(ctx.Context, loadConfig(deps), taskID)
				},
			},
			{
				Name:  "serve",
				Usage: "start the local console server",
				Action: func(ctx *cli.Context) error {
					return runServe(ctx.Context, deps, loadConfig(deps))
				},
			},
			{
				Name:  "tasks",
				Usage: "task registry operations",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list tasks",
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "local", Usage: "list locally watched tasks instead of the registry"},
						},
						Action: func(ctx *cli.Context) error {
							if deps.ListTasks == nil {
								return errors.New("task lister is not configured")
							}
							return deps.ListTasks(ctx.Context, loadConfig(deps), ctx.Bool("local"))
						},
					},
					{
						Name:      "create",
						Usage:     "submit a new task",
						ArgsUsage: "<description>",
						Action: func(ctx *cli.Context) error {
							description := strings.TrimSpace(strings.Join(ctx.Args().Slice(), " "))
							if description == "" {
								return errors.New("description is required")
							}
							if deps.CreateTask == nil {
								return errors.New("task creator is not configured")
							}
							return deps.CreateTask(ctx.Context, loadConfig(deps), description)
						},
					},
					{
						Name:      "cancel",
						Usage:     "cancel a running task",
						ArgsUsage: "<task-id>",
						Action: func(ctx *cli.Context) error {
							taskID := strings.TrimSpace(ctx.Args().First())
							if taskID == "" {
								return errors.New("task id is required")
							}
							if deps.CancelTask == nil {
								return errors.New("task canceller is not configured")
							}
							return deps.CancelTask(ctx.Context, loadConfig(deps), taskID)
						},
					},
				},
			},
			{
				Name:      "send",
				Usage:     "send an operator message to a task",
				ArgsUsage: "<task-id> <message>",
				Action: func(ctx *cli.Context) error {
					taskID := strings.TrimSpace(ctx.Args().First())
					message := strings.TrimSpace(strings.Join(ctx.Args().Tail(), " "))
					if taskID == "" || message == "" {
						return errors.New("task id and message are required")
					}
					if deps.SendMessage == nil {
						return errors.New("message sender is not configured")
					}
					return deps.SendMessage(ctx.Context, loadConfig(deps), taskID, message)
				},
			},
			{
				Name:  "migrate",
				Usage: "run database migration",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply pending migrations",
						Action: func(ctx *cli.Context) error {
							if deps.RunMigrateUp == nil {
								return errors.New("migrate up runner is not configured")
							}
							return deps.RunMigrateUp(ctx.Context, loadConfig(deps))
						},
					},
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func runServe(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunServe == nil {
		return errors.New("serve runner is not configured")
	}
	return deps.RunServe(ctx, cfg)
}
