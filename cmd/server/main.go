package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/onlineshop/pkg/api"
	"github.com/example/onlineshop/pkg/config"
	"github.com/example/onlineshop/pkg/discovery"
	"github.com/example/onlineshop/pkg/events"
	"github.com/example/onlineshop/pkg/order"
	"github.com/example/onlineshop/pkg/repository"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Setup logger
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Sprintf("Failed to create logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("Starting shop service",
		zap.String("name", cfg.Server.Name),
		zap.Int("port", cfg.Server.Port))

	// MySQL
	store, err := repository.NewStore(&cfg.MySQL)
	if err != nil {
		logger.Fatal("Failed to connect to MySQL", zap.Error(err))
	}
	defer store.Close()

	// Redis
	cache := repository.NewRedisRepository(&cfg.Redis)
	defer cache.Close()

	ctx := context.Background()
	if err := cache.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully")
	}

	// MongoDB audit trail
	audit, err := repository.NewMongoRepository(&cfg.MongoDB)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer audit.Close(ctx)

	// Kafka event sink
	producer, err := events.NewProducer(&cfg.Kafka, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer producer.Close()

	// Kafka analytics consumer
	consumerCtx, stopConsumer := context.WithCancel(ctx)
	defer stopConsumer()
	consumer, err := events.NewConsumer(&cfg.Kafka, cache, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	go func() {
		if err := consumer.Start(consumerCtx); err != nil && consumerCtx.Err() == nil {
			logger.Error("Kafka consumer stopped", zap.Error(err))
		}
	}()
	defer consumer.Close()

	// Order workflow + HTTP server
	workflow := order.NewWorkflow(store, producer, audit, logger)
	server := api.NewServer(cfg, logger, store, cache, cache, producer, workflow)
	server.SetupRoutes()

	// Connect to etcd for service discovery
	sd, err := discovery.NewServiceDiscovery(&cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to etcd", zap.Error(err))
	}
	defer sd.Close()

	instance := &discovery.ServiceInstance{
		Name: cfg.Server.Name,
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	}
	if err := sd.Register(ctx, instance); err != nil {
		logger.Fatal("Failed to register service", zap.Error(err))
	}
	logger.Info("Service registered in etcd",
		zap.String("name", cfg.Server.Name),
		zap.String("address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)))

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		logger.Info("Received shutdown signal")
	case err := <-serverErr:
		logger.Fatal("Server error", zap.Error(err))
	}

	stopConsumer()

	if err := sd.Deregister(ctx, instance); err != nil {
		logger.Error("Failed to deregister service", zap.Error(err))
	}

	logger.Info("Service stopped")
}
