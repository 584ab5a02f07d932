// Package main is the entry point for the barstock bar node: the HTTP API,
// the availability reconciliation engine and its background refresh loops.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"barstock/internal/core/config"
	"barstock/internal/core/id"
	"barstock/internal/domain/availability"
	"barstock/internal/domain/catalog/product"
	"barstock/internal/domain/consignment"
	"barstock/internal/domain/sale"
	v1 "barstock/internal/infrastructure/http/v1"
	"barstock/internal/infrastructure/refresh"
	"barstock/internal/infrastructure/storage/postgres"
	"barstock/pkg/logger"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	barID, err := id.Parse(cfg.App.BarID)
	if err != nil {
		log.Fatalw("invalid or missing bar id (BARSTOCK_APP_BAR_ID)", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting barstock node", "bar_id", barID, "version", version)

	// --- Storage ---
	pool, err := postgres.NewPool(ctx, postgres.PoolConfigFromApp(cfg.DB))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txm := postgres.NewTxManager(pool)

	productRepo := postgres.NewProductRepo(txm)
	consignmentRepo := postgres.NewConsignmentRepo(txm)
	saleRepo := postgres.NewSaleRepo(txm)
	pendingQueue := postgres.NewPendingQueue(txm)
	idempotencyStore := postgres.NewIdempotencyStore(txm, cfg.Sweep.IdempotencyTTL)

	auditStore, err := postgres.NewAuditStore(txm)
	if err != nil {
		log.Fatalw("failed to create audit store", "error", err)
	}

	// --- Engine and services ---
	engine := availability.NewEngine(availability.NewInFlightTracker(), availability.NewConfirmedKeys())

	productService := product.NewService(productRepo, txm, auditStore)
	consignmentService := consignment.NewService(consignmentRepo, productService, txm, auditStore)
	saleService := sale.NewService(saleRepo, pendingQueue, engine, productService, txm, auditStore)

	// --- Background refresh loops ---
	worker := refresh.NewWorker(
		refresh.ConfigFromApp(barID, cfg.Refresh),
		engine,
		productRepo,
		consignmentRepo,
		pendingQueue,
		saleRepo,
		saleService,
		log,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// --- HTTP server ---
	router := v1.NewRouter(v1.RouterConfig{
		BarID:            barID,
		Pool:             pool,
		Logger:           log,
		Engine:           engine,
		Products:         productService,
		Sales:            saleService,
		Consignments:     consignmentService,
		IdempotencyStore: idempotencyStore,
		Version:          version,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	go func() {
		log.Infow("http server listening", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("http server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http server shutdown failed", "error", err)
	}

	wg.Wait()
	log.Info("stopped")
}
