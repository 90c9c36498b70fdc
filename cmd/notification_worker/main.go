// Command notification_worker delivers notifications published by the API
// when NOTIFY_TRANSPORT=kafka.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vaultledger/internal/config"
	"vaultledger/internal/logger"
	"vaultledger/internal/services/notification"
)

func main() {
	config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Service: "vaultledger-notification-worker",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	mailer, err := notification.NewMailSender(cfg.Notification.Mail)
	if err != nil {
		zl.Fatal("mail sender not configured", zap.Error(err))
	}

	reader := notification.NewReader(cfg.Notification.Brokers, cfg.Notification.Topic, cfg.Notification.GroupID)
	defer reader.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := &notification.Consumer{
		Log:     zl,
		Reader:  reader,
		Sender:  mailer,
		Timeout: cfg.Notification.Timeout,
	}

	zl.Info("consuming notifications",
		zap.String("brokers", cfg.Notification.Brokers),
		zap.String("topic", cfg.Notification.Topic))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("consumer stopped", zap.Error(err))
	}
}
