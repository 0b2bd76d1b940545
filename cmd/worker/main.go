package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/db"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the event worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.PostgresDSN())
	if err != nil {
		log.Fatal("failed to connect to DB: ", err)
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatal("failed to migrate: ", err)
	}

	dedup := newDeduplicator(ctx, cfg, logger)

	q, err := queue.DialAMQP(cfg.AMQPURL, logger)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ: ", err)
	}
	defer q.Close()

	worker := service.NewEventWorker(&repository.EventRepository{DB: conn}, dedup, logger)
	if err := queue.StartLedgerEventSubscriber(q, cfg.EventsQueue, worker.Handle, logger); err != nil {
		log.Fatal("Failed to register consumer: ", err)
	}

	logger.Info("Worker running, waiting for ledger events...", "queue", cfg.EventsQueue)
	<-ctx.Done()
}

// newDeduplicator prefers Redis so several workers share claims, and falls
// back to process memory when Redis is absent or unreachable.
func newDeduplicator(ctx context.Context, cfg config.Config, logger *slog.Logger) service.Deduplicator {
	if cfg.RedisAddr == "" {
		return queue.NewMemoryDedup()
	}
	redisDedup := queue.NewRedisDedup(cfg.RedisAddr)
	if err := redisDedup.Ping(ctx); err != nil {
		logger.Warn("⚠️ redis unreachable, deduplicating in memory", "addr", cfg.RedisAddr, "error", err)
		redisDedup.Close()
		return queue.NewMemoryDedup()
	}
	return redisDedup
}
