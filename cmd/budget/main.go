package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"budget/internal/amqp"
	"budget/internal/config"
	"budget/internal/goal"
	apphttp "budget/internal/http"
	"budget/internal/ledger"
	"budget/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

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
	goals := goal.NewStore(kv)

	srv := apphttp.NewServer(":"+cfg.Port, transactions, goals, kv, cfg.PageSize)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	// Every ledger mutation is announced so the export worker can
	// recompute the period's summary out of process.
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
			logger.Info("AMQP client initialized - changes will be announced")
		}
	} else {
		logger.Info("AMQP disabled - changes stay local")
	}

	ctx := context.Background()
	transactions.Load(ctx)
	goals.Load(ctx)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budget server", "port", cfg.Port, "db", cfg.SQLiteDBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
