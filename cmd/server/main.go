package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pesio-ai/be-vendor-onboarding/internal/client"
	"github.com/pesio-ai/be-vendor-onboarding/internal/config"
	"github.com/pesio-ai/be-vendor-onboarding/internal/database"
	"github.com/pesio-ai/be-vendor-onboarding/internal/handler"
	"github.com/pesio-ai/be-vendor-onboarding/internal/logger"
	"github.com/pesio-ai/be-vendor-onboarding/internal/middleware"
	"github.com/pesio-ai/be-vendor-onboarding/internal/repository"
	"github.com/pesio-ai/be-vendor-onboarding/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       cfg.Service.LogLevel,
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("environment", cfg.Service.Environment).
		Msg("Starting Vendor Onboarding Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize event publisher; disabled when NATS_URL is empty
	events, err := client.NewEventPublisher(cfg.NATS.URL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer events.Close()
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("Event publisher connected")
	}

	// Initialize store and services
	store := repository.NewStore(db)
	vendorService := service.NewVendorService(store, events, log)
	approvalService := service.NewApprovalService(store, events, log)
	bulkService := service.NewBulkService(store, events, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(vendorService, approvalService, bulkService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Vendor routes
	mux.HandleFunc("/api/v1/vendors", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListVendors(w, r)
		case http.MethodPost:
			httpHandler.CreateVendor(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/vendors/get", httpHandler.GetVendor)
	mux.HandleFunc("/api/v1/vendors/update", httpHandler.UpdateVendor)
	mux.HandleFunc("/api/v1/vendors/delete", httpHandler.DeleteVendor)
	mux.HandleFunc("/api/v1/vendors/submit", httpHandler.SubmitVendor)
	mux.HandleFunc("/api/v1/vendors/suspend", httpHandler.SuspendVendor)
	mux.HandleFunc("/api/v1/vendors/reinstate", httpHandler.ReinstateVendor)
	mux.HandleFunc("/api/v1/vendors/audit", httpHandler.GetVendorAudit)

	// Bulk routes
	mux.HandleFunc("/api/v1/vendors/bulk/status-update", httpHandler.BulkStatusUpdate)
	mux.HandleFunc("/api/v1/vendors/bulk/delete", httpHandler.BulkDelete)
	mux.HandleFunc("/api/v1/vendors/bulk/export", httpHandler.BulkExport)
	mux.HandleFunc("/api/v1/vendors/bulk/import", httpHandler.BulkImport)

	// Approval routes
	mux.HandleFunc("/api/v1/approvals/vendor", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.GetVendorApprovals(w, r)
		case http.MethodPost:
			httpHandler.SubmitDecision(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/approvals/pending", httpHandler.GetPendingApprovals)
	mux.HandleFunc("/api/v1/approvals/stats", httpHandler.GetApproverStats)
	mux.HandleFunc("/api/v1/approvals/workflow-stats", httpHandler.GetWorkflowStats)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(cfg.Server.RequestTimeout)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
