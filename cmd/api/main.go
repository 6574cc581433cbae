package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/lotscan/internal/audit"
	"github.com/xelth-com/lotscan/internal/catalog"
	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/export"
	"github.com/xelth-com/lotscan/internal/handlers"
	"github.com/xelth-com/lotscan/internal/ledger"
	"github.com/xelth-com/lotscan/internal/logger"
	"github.com/xelth-com/lotscan/internal/positions"
	"github.com/xelth-com/lotscan/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
		Path:   cfg.Log.Path,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	log := logger.GetLogger("app")

	// 2. Open the ledger
	store, closeStore, err := ledger.Open(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to open %s ledger: %v", cfg.Ledger.Backend, err)
	}
	log.Infof("📒 Ledger backend: %s", cfg.Ledger.Backend)

	// 3. Services
	auditSink := audit.NewSink(store, cfg.Ledger.AuditBuffer)

	hubCtx, stopHub := context.WithCancel(context.Background())
	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	products := catalog.New(store)
	exports := export.NewService(store, products, auditSink, hub)
	reconciler := positions.NewReconciler(store, auditSink, hub)
	reconciler.StrictSlots = cfg.Scanner.StrictSlotCodes

	// 4. Set up HTTP router
	router := handlers.NewRouter(handlers.Deps{
		Store:      store,
		Catalog:    products,
		Exports:    exports,
		Reconciler: reconciler,
		Hub:        hub,
		JWTSecret:  cfg.JWTSecret,
		LabelQRURL: cfg.LabelQRURL,
	})

	// 5. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		log.Infof("🚀 Lot scanner server (%s) starting on port %s", cfg.NodeEnv, cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sig := <-shutdown
	log.Warnf("Received signal: %v. Shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("HTTP server shutdown error: %v", err)
	}
	stopHub()

	// Queued audit rows are written before the ledger goes away
	auditSink.Close()

	if err := closeStore(); err != nil {
		log.Errorf("Ledger close error: %v", err)
	}
	log.Info("✅ Shutdown complete")
}
