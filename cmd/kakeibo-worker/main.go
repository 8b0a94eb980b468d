package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("kakeibo-worker stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := cli.LoadEnvFile()
	cfg, err := cli.LoadConfig((*config.Config).ValidateWorker)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)
	if envErr != nil {
		logger.Warn("Ignoring .env file", "error", envErr)
	}
	logger.Info("Starting kakeibo-worker")

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	if runs, err := repo.RecentArchiveRuns(ctx, 5); err != nil {
		logger.Warn("Could not read recent archive runs", "error", err)
	} else {
		for _, r := range runs {
			logger.Info("Recent archive run",
				"event_id", r.EventID,
				"moved", r.Moved,
				"rejected", r.Rejected,
				"source", r.Source,
				"occurred_at", r.OccurredAt)
		}
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	audit := worker.NewAuditWorker(repo)
	logger.Info("Consuming archive events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	err = client.ConsumeArchiveMoved(log.WithLogger(ctx, logger), audit.HandleArchiveMoved)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Worker shutdown complete")
	return nil
}
