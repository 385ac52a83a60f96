// Package main provides the execution ledger retention sweeper.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/driftline/automaton/pkg/cmd"
	"github.com/driftline/automaton/pkg/log"
	"github.com/driftline/automaton/pkg/services"
)

const (
	defaultSchedule      = "0 3 * * *"
	defaultRetentionDays = 90
	hoursPerDay          = 24
)

func main() {
	logger := log.WithModule("janitor")

	command := &cli.Command{
		Name:                  "automaton-janitor",
		Usage:                 "Prune old terminal execution records on a schedule",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the retention sweep",
				Value:   defaultSchedule,
				Sources: cli.EnvVars("JANITOR_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "retention-days",
				Usage:   "Terminal records older than this many days are pruned",
				Value:   defaultRetentionDays,
				Sources: cli.EnvVars("RETENTION_DAYS"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single sweep and exit",
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

			retentionDays := command.Int("retention-days")
			if retentionDays <= 0 {
				return fmt.Errorf("retention-days must be positive, got %d", retentionDays)
			}

			retention := time.Duration(retentionDays) * hoursPerDay * time.Hour

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			executionService := services.NewExecution(persistence, logger)

			sweep := func() {
				pruned, err := executionService.PruneHistory(ctx, retention)
				if err != nil {
					logger.ErrorContext(ctx, "Retention sweep failed", "error", err)

					return
				}

				logger.InfoContext(ctx, "Retention sweep finished", "pruned", pruned)
			}

			if command.Bool("once") {
				sweep()

				return nil
			}

			schedule := command.String("schedule")
			if _, err := cron.ParseStandard(schedule); err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
			}

			scheduler := cron.New()
			if _, err := scheduler.AddFunc(schedule, sweep); err != nil {
				return fmt.Errorf("failed to schedule sweep: %w", err)
			}

			logger.InfoContext(ctx, "Starting retention sweeper",
				"schedule", schedule, "retention_days", retentionDays)
			scheduler.Start()

			<-ctx.Done()

			stopCtx := scheduler.Stop()
			<-stopCtx.Done()

			return nil
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := command.Run(ctx, os.Args); err != nil {
		panic(err)
	}
}
