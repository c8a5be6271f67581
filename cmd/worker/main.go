// Package main is the entry point for the tradeflow background worker.
// It relays derivation events from the outbox and purges expired state.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"tradeflow/internal/infrastructure/storage/postgres"
	"tradeflow/pkg/config"
	"tradeflow/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.IsDevelopment(),
		Service:     "tradeflow-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting tradeflow worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DB.URL)
	poolCfg.ApplicationName = "tradeflow-worker"
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	worker := NewWorker(postgres.NewTxManager(pool, postgres.WithStatementTimeout(cfg.DB.StatementTimeout)), cfg, log)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

// Worker drives the outbox relay and the periodic cleanup jobs.
type Worker struct {
	relay           *postgres.OutboxRelay
	idempotency     *postgres.IdempotencyStore
	pollInterval    time.Duration
	cleanupInterval time.Duration
	log             *logger.Logger
}

func NewWorker(txManager *postgres.TxManager, cfg *config.Config, log *logger.Logger) *Worker {
	log = log.WithComponent("worker")
	return &Worker{
		relay:           postgres.NewOutboxRelay(txManager, cfg.Outbox.BatchSize, logHandler(log)),
		idempotency:     postgres.NewIdempotencyStore(txManager, cfg.Idempotency.TTL),
		pollInterval:    cfg.Outbox.PollInterval,
		cleanupInterval: cfg.Outbox.CleanupInterval,
		log:             log,
	}
}

// Run polls until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ctx = logger.WithLogger(ctx, w.log)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processOutbox(ctx)
		case <-cleanupTicker.C:
			w.moveToDLQ(ctx)
			w.cleanupIdempotency(ctx)
		}
	}
}

func (w *Worker) processOutbox(ctx context.Context) {
	n, err := w.relay.ProcessBatch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Errorw("outbox batch failed", "error", err)
		}
		return
	}
	if n > 0 {
		w.log.Debugw("processed outbox batch", "count", n)
	}
}

func (w *Worker) moveToDLQ(ctx context.Context) {
	n, err := w.relay.MoveToDLQ(ctx)
	if err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
		return
	}
	if n > 0 {
		w.log.Warnw("moved failed outbox messages to DLQ", "count", n)
	}
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	n, err := w.idempotency.CleanupExpired(ctx)
	if err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
		return
	}
	if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}

// logHandler delivers outbox messages to the structured log. Downstream
// consumers tail the log stream until a broker is configured.
func logHandler(log *logger.Logger) postgres.OutboxHandler {
	return postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
		log.Infow("document event",
			"event_id", msg.ID,
			"event_type", msg.EventType,
			"aggregate_type", msg.AggregateType,
			"aggregate_id", msg.AggregateID,
			"payload", string(msg.Payload))
		return nil
	})
}
