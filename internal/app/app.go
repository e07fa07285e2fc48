package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"gyftr-sheet-sync/internal/audit"
	"gyftr-sheet-sync/internal/config"
	"gyftr-sheet-sync/internal/handler"
	"gyftr-sheet-sync/internal/mailbox"
	"gyftr-sheet-sync/internal/metrics"
	"gyftr-sheet-sync/internal/router"
	"gyftr-sheet-sync/internal/scheduler"
	"gyftr-sheet-sync/internal/service"
	"gyftr-sheet-sync/internal/sheetstore"
)

// Run initializes and starts the application
func Run() error {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	logrus.Info("Starting GyFTR Sheet Sync Service")

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx := context.Background()

	gateway, err := mailbox.NewGmailGateway(ctx, &cfg.Gmail)
	if err != nil {
		return fmt.Errorf("failed to create mailbox gateway: %w", err)
	}

	sheetsAPI, err := sheetstore.NewGoogleAPI(ctx, &cfg.Gmail, cfg.Sheets.SpreadsheetID)
	if err != nil {
		return fmt.Errorf("failed to create sheets adapter: %w", err)
	}
	store := sheetstore.NewStore(sheetsAPI)
	cursorStore := sheetstore.NewConfigStore(sheetsAPI, cfg.Sheets.ConfigSheet)

	m := metrics.NewMetrics()

	var recorder service.Recorder
	if cfg.Database.Enabled() {
		auditStore, err := audit.Init(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize audit log: %w", err)
		}
		recorder = auditStore
	} else {
		logrus.Info("Audit database not configured, run history disabled")
	}

	syncService, err := service.NewSyncService(gateway, store, cursorStore, cfg.Sync, m, recorder)
	if err != nil {
		return fmt.Errorf("failed to create sync service: %w", err)
	}

	sched := scheduler.NewScheduler(&cfg.Scheduler, syncService)

	h := handler.NewHandlers(syncService, sched)
	r := router.SetupRouter(h)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Scheduler.IntervalMinutes > 0 {
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	} else {
		logrus.Info("Scheduler interval is 0, safety-net scan disabled")
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := sched.Stop(); err != nil {
		logrus.Errorf("Failed to stop scheduler: %v", err)
	}
	sched.Wait()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("HTTP server shutdown error: %v", err)
	}

	logrus.Info("Server stopped gracefully")
	return nil
}
