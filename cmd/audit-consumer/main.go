package main

import (
    "context"
    "errors"
    "os"
    "os/signal"
    "syscall"

    "github.com/joho/godotenv"

    "github.com/iliyamo/account-service/internal/config"
    "github.com/iliyamo/account-service/internal/queue"
)

func main() {
    _ = godotenv.Load()

    cfg := config.LoadConsumerConfig()
    log := config.NewLogger(cfg.Logging())

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    c := &queue.Consumer{URL: cfg.AMQPURL, LogPath: cfg.LogPath, Log: log}
    log.WithField("log_path", cfg.LogPath).Info("audit consumer started")
    if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
        log.WithError(err).Fatal("audit consumer stopped")
    }
    log.Info("audit consumer stopped")
}
