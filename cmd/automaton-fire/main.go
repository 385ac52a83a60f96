// Package main provides a CLI to fire a business event against the rule catalog.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/driftline/automaton/pkg/cmd"
	"github.com/driftline/automaton/pkg/engine"
	"github.com/driftline/automaton/pkg/lock"
	"github.com/driftline/automaton/pkg/log"
	"github.com/driftline/automaton/pkg/models"
)

func main() {
	logger := log.WithModule("fire")

	command := &cli.Command{
		Name:                  "automaton-fire",
		Usage:                 "Fire a business event and print the per-rule outcomes",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "trigger-type",
				Aliases:  []string{"t"},
				Usage:    "Trigger type of the event (e.g. quote_sent)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "entity-id",
				Usage:    "Identifier of the affected entity",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "entity-type",
				Usage: "Type of the affected entity",
				Value: "opportunity",
			},
			&cli.StringFlag{
				Name:  "fields",
				Usage: "Entity fields as a JSON object",
				Value: "{}",
			},
			&cli.StringFlag{
				Name:  "context",
				Usage: "Event context as a JSON object",
				Value: "{}",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			var fields map[string]any
			if err := json.Unmarshal([]byte(command.String("fields")), &fields); err != nil {
				return fmt.Errorf("invalid --fields JSON: %w", err)
			}

			var eventCtx map[string]any
			if err := json.Unmarshal([]byte(command.String("context")), &eventCtx); err != nil {
				return fmt.Errorf("invalid --context JSON: %w", err)
			}

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, nil)

			dispatcher, err := engine.NewDispatcher(engine.Config{
				Rules:    persistence.RuleRepository(),
				Ledger:   persistence.ExecutionRepository(),
				Registry: registry,
				Logger:   logger,
				Lock:     lock.NewLocalLock(),
			})
			if err != nil {
				return err
			}

			outcomes, err := dispatcher.Fire(ctx,
				models.TriggerType(command.String("trigger-type")),
				models.Entity{
					ID:     command.String("entity-id"),
					Type:   command.String("entity-type"),
					Fields: fields,
				},
				eventCtx,
			)
			if err != nil {
				return err
			}

			output, err := json.MarshalIndent(outcomes, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(output))

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
