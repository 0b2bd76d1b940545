// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unclebandit/crowdfund-backend/internal/auth"
	"github.com/unclebandit/crowdfund-backend/internal/config"
	"github.com/unclebandit/crowdfund-backend/internal/controller"
	"github.com/unclebandit/crowdfund-backend/internal/handler"
	"github.com/unclebandit/crowdfund-backend/internal/queue"
	"github.com/unclebandit/crowdfund-backend/internal/repository"
	"github.com/unclebandit/crowdfund-backend/internal/service"
	"github.com/unclebandit/crowdfund-backend/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("⚠️ invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		log.Fatal("failed to set up tracing: ", err)
	}
	defer shutdownTracing(context.Background())

	repo, conn, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal("failed to open ledger: ", err)
	}
	defer repo.Close()

	// Events go to RabbitMQ when configured; otherwise an in-process worker
	// records them directly.
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL, logger)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ: ", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		memQueue := queue.NewInMemoryQueue(logger)
		var recorder service.EventRecorder = service.LogRecorder{Logger: logger}
		if conn != nil {
			recorder = &repository.EventRepository{DB: conn}
		}
		worker := service.NewEventWorker(recorder, queue.NewMemoryDedup(), logger)
		if err := queue.StartLedgerEventSubscriber(memQueue, cfg.EventsQueue, worker.Handle, logger); err != nil {
			log.Fatal(err)
		}
		q = memQueue
	}

	campaignService := &service.CampaignService{
		Repo:   repo,
		Queue:  q,
		Clock:  service.SystemClock{},
		Logger: logger,
		Tracer: telemetry.Tracer(),
		Topic:  cfg.EventsQueue,
	}
	if conn != nil {
		campaignService.Events = &repository.EventRepository{DB: conn}
	}

	campaignController := &controller.CampaignController{
		CampaignService: campaignService,
		FaucetEnabled:   cfg.FaucetEnabled,
	}
	campaignHandler := handler.NewCampaignHandler(campaignService)
	verifier := auth.Verifier{Audience: cfg.AuthAudience, MaxAge: cfg.AuthMaxTokenAge}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           controller.NewRouter(campaignController, campaignHandler, verifier),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("🚀 Server running", "addr", cfg.HTTPAddr, "backend", cfg.LedgerBackend, "faucet", cfg.FaucetEnabled)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
