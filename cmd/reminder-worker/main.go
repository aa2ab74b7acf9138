package main

import (
	"context"
	"os"
	"time"

	"finboard/internal/cli"
	"finboard/internal/config"
	"finboard/internal/log"
	"finboard/internal/notify"
	"finboard/internal/services"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(os.Getenv("LOG_LEVEL")))
	logger := cli.SetupLogger(cfg.LogLevel)
	logger.Info("Starting reminder-worker", "schedule", cfg.ReminderSchedule, "days_ahead", cfg.ReminderDaysAhead)

	result, _, _ := cli.InitBackend(context.Background(), logger, cfg)

	processor := services.NewReminderProcessor(result.Store, notifiers(cfg, logger), cfg.ReminderDaysAhead, logger)
	scheduler, err := worker.NewReminderScheduler(cfg.ReminderSchedule, processor, logger)
	if err != nil {
		logger.Error("Failed to create reminder scheduler", log.FieldError, err)
		_ = result.Close()
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := scheduler.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop error", log.FieldError, err)
		}
		if err := result.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	if cfg.RunRemindersNow {
		sent, err := scheduler.RunOnce(ctx)
		if err != nil {
			logger.Error("Startup reminder run failed", log.FieldError, err)
		} else {
			logger.Info("Startup reminder run complete", "sent", sent)
		}
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start reminder scheduler", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder worker stopped")
}

// notifiers builds the reminder channels that are configured. The log
// channel is always present.
func notifiers(cfg *config.Config, logger *log.Logger) notify.Notifier {
	channels := notify.Multi{notify.NewLogNotifier(logger)}

	if cfg.EmailEnabled() {
		channels = append(channels, notify.NewEmailNotifier(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		}, logger))
	}

	if cfg.TelegramBotToken != "" {
		bot, err := notify.NewTelegramBot(cfg.TelegramBotToken)
		if err != nil {
			logger.Warn("Telegram disabled, bot login failed", log.FieldError, err)
		} else {
			channels = append(channels, notify.NewTelegramNotifier(bot, logger))
		}
	}
	return channels
}
