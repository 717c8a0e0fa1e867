package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Laimiu-debug/lifecard-exchange/internal/api_gateway"
	"github.com/Laimiu-debug/lifecard-exchange/internal/config"
	"github.com/Laimiu-debug/lifecard-exchange/internal/data/mongo"
	"github.com/Laimiu-debug/lifecard-exchange/internal/data/postgres"
	"github.com/Laimiu-debug/lifecard-exchange/internal/logger"
	"github.com/Laimiu-debug/lifecard-exchange/internal/orchestrator"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/persistence"
	"github.com/Laimiu-debug/lifecard-exchange/internal/pricing"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	exchangeStore := postgres.NewExchangeRepository(log, postgresDB)
	ledger := postgres.NewLedgerRepository(log, postgresDB)
	catalog := postgres.NewCardRepository(log, postgresDB)
	grantor := postgres.NewCollectionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// Initialize the exchange orchestrator
	calculator := pricing.NewCalculator(&cfg.Pricing)
	service := orchestrator.NewOrchestrator(
		postgresDB,
		exchangeStore,
		ledger,
		catalog,
		grantor,
		outboxRepo,
		historyRepo,
		calculator,
		cfg.Exchange.ExpirationWindow,
		log,
	)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, service)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so in-flight requests finish
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
