package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/ledger"
	"budget/internal/services"
	"budget/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	kv, err := storage.NewSQLiteKV(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open storage", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer kv.Close()

	transactions := ledger.New(kv)

	// Announce materialized occurrences so the export worker refreshes
	// the affected period.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change notifications", "error", err)
		} else {
			defer amqpClient.Close()
			transactions.Subscribe(func(ev ledger.Event) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := amqpClient.PublishChange(ctx, string(ev.Op), ev.ID, ev.Period.Month, ev.Period.Year); err != nil {
					logger.Error("Failed to publish change", "error", err, "transaction_id", ev.ID)
				}
			})
		}
	}

	processor := services.NewRecurringProcessor(transactions)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("Recurring processor configured",
		"interval", cfg.RecurringInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	run := func(now time.Time) {
		// Reload on every pass: the API process owns the collection and
		// may have changed it since the last tick.
		transactions.Load(ctx)
		count, err := processor.ProcessDue(ctx, now)
		if err != nil {
			logger.Error("Recurring processing failed", "error", err)
			return
		}
		logger.Info("Recurring processing complete", "transactions_created", count)
	}

	run(time.Now())

	ticker := time.NewTicker(cfg.RecurringInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				run(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()
	time.Sleep(time.Second)
	logger.Info("Recurring-worker shutdown complete")
}
