package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/funnelworks/journeyd/pkg/cmd"
	"github.com/funnelworks/journeyd/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "journeyd-activator",
		Usage:                 "Consume business events from the bus and drive automations",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			NewValidateCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "activator-id",
				Aliases: []string{"id"},
				Usage:   "Custom activator ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("ACTIVATOR_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "walker-url",
				Usage:   "Step walker endpoint invoked after execution activation",
				Sources: cli.EnvVars("WALKER_URL"),
			},
			&cli.StringFlag{
				Name:    "walker-token",
				Usage:   "Bearer token for the step walker endpoint",
				Sources: cli.EnvVars("WALKER_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for the idempotency fast-path guard",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			activatorID := command.String("activator-id")
			if activatorID == "" {
				activatorID = fmt.Sprintf("activator-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("journeyd-activator").With("activator_id", activatorID)

			logger.Info("Initializing journeyd Activator", "activator_id", activatorID)

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			businessEventBus := cmd.NewBusinessEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := businessEventBus.Close(); err != nil {
					logger.Error("Failed to close business event bus", "error", err)
				}
			}()

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			guard := cmd.NewIdempotencyGuard(command.String("redis-url"), logger)
			stepWalker := cmd.NewWalker(command.String("walker-url"), command.String("walker-token"), eventBus, logger)
			processor := cmd.NewEventProcessor(persistence, guard, stepWalker, eventBus, logger)

			activator := NewActivator(
				activatorID,
				processor,
				businessEventBus,
				logger,
			)

			activator.Start(ctx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
