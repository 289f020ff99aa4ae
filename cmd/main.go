package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/distributed-ecommerce-saga/inventory-service/internal/config"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/domain"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/handlers"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/repository"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/service"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/store"
	"github.com/distributed-ecommerce-saga/inventory-service/internal/telemetry"
	"github.com/distributed-ecommerce-saga/inventory-service/shared-domain/messaging"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	logger, err := telemetry.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Inventory service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting Inventory Service", zap.String("service", cfg.ServiceName), zap.String("port", cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown error", zap.Error(err))
		}
	}()

	var (
		journal service.ReservationJournal
		repo    *repository.InventoryRepository
	)
	if cfg.Database.Enabled {
		db, err := initDatabase(cfg.Database, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		repo = repository.NewInventoryRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		journal = repo
	}

	var (
		publisher service.EventPublisher
		rabbit    *messaging.RabbitMQClient
	)
	if cfg.RabbitMQEnabled {
		rabbit = messaging.NewRabbitMQClient(cfg.RabbitMQ, logger)
		if err := rabbit.Connect(); err != nil {
			return fmt.Errorf("rabbitmq connection error: %w", err)
		}
		defer rabbit.Close()
		publisher = messaging.NewPublisher(rabbit, cfg.RabbitMQ.RetryCount, logger)
	}

	dispatcher := service.NewDispatcher(journal, publisher, cfg.ServiceName, cfg.DispatchBuffer, logger)
	dispatcher.Start(ctx)
	defer dispatcher.Close()

	inventoryService, err := service.NewInventoryService(store.NewInventory(), dispatcher, logger, service.Config{
		DefaultTTL:      cfg.Reservation.DefaultTTL,
		MaxTTL:          cfg.Reservation.MaxTTL,
		DefaultCenterID: cfg.Reservation.DefaultCenterID,
	})
	if err != nil {
		return err
	}

	if repo != nil {
		if _, err := inventoryService.Bootstrap(ctx, repo); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	if len(inventoryService.Centers(ctx)) == 0 {
		err := inventoryService.RegisterCenter(ctx, domain.DistributionCenter{
			ID:   cfg.Reservation.DefaultCenterID,
			Code: "MAIN",
			Name: "Main distribution center",
		})
		if err != nil {
			return fmt.Errorf("seed default center: %w", err)
		}
	}

	sweeper := service.NewSweeper(inventoryService, cfg.Reservation.SweepInterval, cfg.Reservation.Retention, logger)
	if repo != nil {
		sweeper.WithArchive(repo, cfg.Reservation.ArchiveRetention)
	}
	go sweeper.Run(ctx)

	if rabbit != nil {
		consumer := messaging.NewConsumer(rabbit, cfg.RabbitMQ.QueueName, cfg.ServiceName, logger)
		eventHandler := handlers.NewEventHandler(inventoryService, logger)
		if err := eventHandler.StartConsuming(ctx, consumer); err != nil {
			logger.Error("RabbitMQ consumption error", zap.Error(err))
		}
	}

	app := handlers.NewApp(handlers.AppConfig{
		AppName:      "Inventory Service v1.0",
		RateLimitMax: cfg.RateLimitMax,
		AccessLog:    true,
	}, handlers.NewCartHandler(inventoryService, logger), handlers.NewInventoryHandler(inventoryService, cfg.ServiceName, logger), logger)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down Inventory Service")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("Shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Inventory Service running", zap.String("address", "http://localhost:"+cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("server startup error: %w", err)
	}
	return nil
}

func initDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("database open error: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping error: %w", err)
	}

	logger.Info("Database connection successful", zap.String("database", cfg.Name))
	return db, nil
}
