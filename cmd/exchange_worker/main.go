package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Laimiu-debug/lifecard-exchange/internal/config"
	"github.com/Laimiu-debug/lifecard-exchange/internal/data/mongo"
	"github.com/Laimiu-debug/lifecard-exchange/internal/data/postgres"
	"github.com/Laimiu-debug/lifecard-exchange/internal/logger"
	"github.com/Laimiu-debug/lifecard-exchange/internal/orchestrator"
	"github.com/Laimiu-debug/lifecard-exchange/internal/outbox_poller"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/messaging/producers"
	"github.com/Laimiu-debug/lifecard-exchange/internal/platform/persistence"
	"github.com/Laimiu-debug/lifecard-exchange/internal/pricing"
	"github.com/Laimiu-debug/lifecard-exchange/internal/sweeper"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("exchange_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Exchange Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize Kafka producer for exchange events
	eventProducer, err := producers.NewExchangeEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
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

	// Initialize the expiration sweeper
	expirationSweeper, err := sweeper.NewSweeper(&cfg.Sweeper, exchangeStore, service, log)
	if err != nil {
		log.Error("Failed to initialize sweeper", "error", err)
		os.Exit(1)
	}

	// Initialize outbox poller
	eventPublisher := outbox_poller.NewEventPublisher(
		outboxRepo,
		eventProducer,
		historyRepo,
		log,
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		eventPublisher,
		log,
	)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start the sweeper on its schedule
	if err := expirationSweeper.Start(appCtx); err != nil {
		log.Error("Failed to start sweeper", "error", err)
		os.Exit(1)
	}

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal
	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context
	cancelAppCtx()

	// Stop the sweeper schedule and its worker pool
	expirationSweeper.Stop()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka producer
	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Exchange Worker shutdown completed")
}
