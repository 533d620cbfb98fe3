package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"marketplace-service/internal/cache"
	"marketplace-service/internal/config"
	"marketplace-service/internal/events"
	"marketplace-service/internal/kafka"
	"marketplace-service/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting Marketplace Listener",
		zap.String("environment", cfg.Environment),
		zap.Bool("use_cache", cfg.UseCache),
	)

	appLogger.Info("📡 Kafka Configuration",
		zap.Strings("brokers", cfg.KafkaBrokers),
		zap.Strings("topics", cfg.KafkaTopics()),
		zap.String("group_id", cfg.KafkaGroupID),
	)

	if !cfg.UseCache {
		appLogger.Warn("USE_CACHE is off, evictions only reach this process's in-memory cache")
	}

	appLogger.Info("🔧 Initializing cache invalidator...")
	appCache := cache.NewCache(cfg, appLogger)
	if closer, ok := appCache.(interface{ Close() error }); ok {
		defer closer.Close()
	}
	processor := events.NewCacheInvalidator(appCache, appLogger)
	appLogger.Info("✅ Cache invalidator initialized successfully")

	appLogger.Info("🔧 Initializing Kafka consumer...")
	consumer, err := kafka.NewConsumer(cfg, processor, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize Kafka consumer", zap.Error(err))
	}
	defer consumer.Close()
	appLogger.Info("✅ Kafka consumer initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		appLogger.Info("📨 Starting Kafka consumer...")
		if err := consumer.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		appLogger.Error("Consumer error", zap.Error(err))
	case sig := <-quit:
		appLogger.Info("Shutting down listener", zap.String("signal", sig.String()))
	}
	cancel()

	appLogger.Info("Listener exited")
}
