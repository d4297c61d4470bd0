package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pairlink/dispatch/internal/dispatch_service/adapters/pushprovider"
	"github.com/pairlink/dispatch/internal/dispatch_service/app"
	"github.com/pairlink/dispatch/internal/dispatch_service/middleware"
	dispatchpg "github.com/pairlink/dispatch/internal/dispatch_service/repository/postgres"
	transporthttp "github.com/pairlink/dispatch/internal/dispatch_service/transport/http"
	"github.com/pairlink/dispatch/internal/platform/config"
	"github.com/pairlink/dispatch/internal/platform/database"
	"github.com/pairlink/dispatch/internal/platform/logger"
	"github.com/pairlink/dispatch/internal/platform/messagebroker"
	scannerpg "github.com/pairlink/dispatch/internal/scanner_service/repository/postgres"
)

const (
	serviceName     = "dispatch-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	mainCtx, mainCancel := context.WithCancel(context.Background())
	defer mainCancel()

	cfg, err := config.Load(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(serviceName, cfg.LogLevel)
	log.Info("Starting service...")

	dbPool, err := database.NewDBPool(mainCtx, cfg.PostgresDSN)
	if err != nil {
		log.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	log.Info("Database connection pool initialized")

	natsClient, err := messagebroker.NewNATSClient(cfg.NATSUrl, log, serviceName)
	if err != nil {
		log.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer natsClient.Close()
	log.Info("NATS connection initialized")

	validate := validator.New()

	// Repositories.
	pairRepo := dispatchpg.NewPgPairRepository(dbPool, log)
	userRepo := dispatchpg.NewPgUserRepository(dbPool, log)
	messageRepo := dispatchpg.NewPgMessageRepository(dbPool, log)
	pingRepo := dispatchpg.NewPgThinkingPingRepository(dbPool, log)
	reminderReader := dispatchpg.NewPgReminderReader(dbPool, log)
	scheduledRepo := scannerpg.NewPgScheduledMessageRepository(dbPool, log)
	reminderRepo := scannerpg.NewPgReminderRepository(dbPool, log)

	// Push provider.
	var pushAdapter pushprovider.Adapter
	switch cfg.PushProvider {
	case "mock":
		pushAdapter = pushprovider.NewMockProvider(log, "mock-push", 0)
	default:
		pushAdapter = pushprovider.NewExpoProvider(
			log, cfg.ExpoPushURL, cfg.ExpoAccessToken, cfg.PushSendRatePerSec, cfg.PushSendBurst, nil,
		)
	}
	log.Info("Push provider initialized", "provider", pushAdapter.GetName())

	router := app.NewRouter(
		pairRepo, userRepo, messageRepo, pingRepo, reminderReader,
		pushAdapter, validate, log,
		app.RouterConfig{ThrottleWindow: cfg.ThrottleWindow, UnreadCountCap: cfg.UnreadCountCap},
	)

	consumer := app.NewEventConsumer(natsClient, router, log)
	if err := consumer.Start(mainCtx, cfg.DispatchSubject, cfg.DispatchQueueGroup); err != nil {
		log.Error("Failed to start dispatch event consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Stop()

	// HTTP API.
	dispatchHandler := transporthttp.NewDispatchHandler(router, log)
	schedulerHandler := transporthttp.NewSchedulerHandler(scheduledRepo, reminderRepo, log, validate)
	authMW := middleware.AuthMiddleware(cfg.JWTSecret, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(authMW)
		v1.Post("/dispatch", dispatchHandler.Dispatch)
		v1.Post("/scheduled-messages", schedulerHandler.CreateScheduledMessage)
		v1.Get("/scheduled-messages/{id}", schedulerHandler.GetScheduledMessage)
		v1.Delete("/scheduled-messages/{id}", schedulerHandler.DeleteScheduledMessage)
		v1.Post("/reminders", schedulerHandler.CreateReminder)
		v1.Get("/reminders/{id}", schedulerHandler.GetReminder)
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.DispatchServicePort),
		Handler: r,
	}

	g, groupCtx := errgroup.WithContext(mainCtx)

	g.Go(func() error {
		log.Info("Starting HTTP server...", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Info("Shutting down HTTP server...")
		return server.Shutdown(shutdownCtx)
	})

	log.Info("Service components initialized. Service is ready.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received termination signal", "signal", sig)
	case <-groupCtx.Done():
	}

	mainCancel()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Error during shutdown", "error", err)
	}
	log.Info("Service shutdown complete.")
}
