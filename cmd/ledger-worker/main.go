package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting ledger-worker")

	result, factory, bcfg := cli.InitBackend(context.Background(), logger, cfg)
	store := result.Store

	exporter, err := factory.CreateExporter(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize exporter", log.FieldError, err)
		_ = result.Close()
		os.Exit(1)
	}

	amqpClient := cli.InitAMQP(logger, cfg, true)

	// The worker holds no dashboard cache of its own; the API server's
	// cache expires on its TTL.
	commitments := services.NewCommitmentService(store, nil, nil, logger)
	ledger := worker.NewLedgerWorker(commitments, services.NewExportProcessor(store, exporter, logger), logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	go func() {
		err := amqpClient.Consume(ctx, ledger.HandleEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	logger.Info("Ledger worker consuming", "queue", cfg.AMQPQueue, "export_enabled", bcfg.ExportEnabled())
	cli.WaitForShutdown(ctx, done)
	logger.Info("Ledger worker stopped")
}
