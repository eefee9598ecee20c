// cmd/worker/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cnpj-workers/internal/common/config"
	"cnpj-workers/internal/common/database"
	"cnpj-workers/internal/common/logger"
	"cnpj-workers/internal/common/observability"
	"cnpj-workers/internal/lookup"
	"cnpj-workers/internal/notify"
	"cnpj-workers/internal/task"
	"cnpj-workers/internal/worker"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New("info", "console")
		bootstrap.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting queue worker...",
		zap.String("environment", cfg.App.Environment),
		zap.Int("batchSize", cfg.Worker.BatchSize),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	store := task.NewStore(pg.DB, log)
	if err := store.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("schema setup failed", zap.Error(err))
	}

	client := lookup.NewClient(cfg.Lookup, log)

	// --- Optional queue-drained notification ---
	var notifier worker.Notifier
	if cfg.Notifications.SNS.Enabled {
		n, err := notify.NewSNSNotifier(ctx, cfg.Notifications.SNS, log)
		if err != nil {
			zapLog.Fatal("sns notifier setup failed", zap.Error(err))
		}
		notifier = n
		zapLog.Info("SNS notifier enabled", zap.String("topicArn", cfg.Notifications.SNS.TopicARN))
	}

	// --- Metrics and pprof endpoint ---
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", cfg.App.MetricsPort)
		zapLog.Info("Metrics server listening", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, nil); err != nil {
			zapLog.Error("metrics server stopped", zap.Error(err))
		}
	}()

	w := worker.New(cfg.Worker, store, client, notifier, obs, log)
	w.Run(ctx)

	zapLog.Info("Shutdown signal received, worker stopped")
}
