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

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/pairlink/dispatch/internal/platform/config"
	"github.com/pairlink/dispatch/internal/platform/database"
	"github.com/pairlink/dispatch/internal/platform/logger"
	"github.com/pairlink/dispatch/internal/platform/messagebroker"
	"github.com/pairlink/dispatch/internal/scanner_service/app"
	scannerpg "github.com/pairlink/dispatch/internal/scanner_service/repository/postgres"
)

const (
	serviceName     = "scanner-service"
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

	reminderRepo := scannerpg.NewPgReminderRepository(dbPool, log)
	scheduledRepo := scannerpg.NewPgScheduledMessageRepository(dbPool, log)
	messageRepo := scannerpg.NewPgMessageRepository(dbPool, log)

	scanner := app.NewScanner(
		reminderRepo, scheduledRepo, messageRepo, natsClient, log,
		app.ScannerConfig{
			BatchSize:       cfg.ScanBatchSize,
			StaleClaimAfter: cfg.StaleClaimAfter,
			DispatchSubject: cfg.DispatchSubject,
		},
	)

	g, groupCtx := errgroup.WithContext(mainCtx)

	// The scan loop. A claim-level failure stops the service via the
	// errgroup; per-item failures are absorbed inside ScanOnce.
	g.Go(func() error {
		log.Info("Starting due-item scanner...", "interval", cfg.ScanInterval, "batch_size", cfg.ScanBatchSize)
		if err := scanner.Run(groupCtx, cfg.ScanInterval); err != nil && !errors.Is(err, context.Canceled) {
			log.ErrorContext(groupCtx, "Scan failed at the batch level, stopping", "error", err)
			return err
		}
		return nil
	})

	// Health and metrics endpoint.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ScannerMetricsPort),
		Handler: mux,
	}

	g.Go(func() error {
		log.Info("Starting metrics server...", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
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
