package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace-service/internal/auth"
	"marketplace-service/internal/cache"
	"marketplace-service/internal/catalog"
	"marketplace-service/internal/config"
	"marketplace-service/internal/delivery"
	"marketplace-service/internal/events"
	"marketplace-service/internal/handlers"
	"marketplace-service/internal/inventory"
	"marketplace-service/internal/ordering"
	"marketplace-service/internal/rating"
	"marketplace-service/internal/repository"
	"marketplace-service/internal/repository/memory"
	"marketplace-service/internal/repository/postgres"
	"marketplace-service/internal/repository/sqlite"
	"marketplace-service/pkg/logger"
	"marketplace-service/pkg/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "marketplace-service/docs" // Import docs for Swagger
)

// @title           Marketplace Service API
// @version         1.0
// @description     Orders, inventory, delivery eligibility and ratings for a multi-seller marketplace
// @termsOfService  http://swagger.io/terms/

// @contact.name   API Support

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	appLogger := logger.New(cfg.Environment)
	defer appLogger.Sync()

	appLogger.Info("🚀 Starting Marketplace Service",
		zap.String("environment", cfg.Environment),
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreDriver),
	)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	appLogger.Info("🔧 Initializing store...")
	store, err := openStore(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer store.Close()
	appLogger.Info("✅ Store initialized successfully")

	appCache := cache.NewCache(cfg, appLogger)
	if closer, ok := appCache.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	publisher := events.NewEventPublisher(cfg, appLogger)
	defer publisher.Close()
	// without Kafka there is no listener, so this process evicts its own cache entries
	if inMemory, ok := publisher.(*events.InMemoryEventPublisher); ok {
		invalidator := events.NewCacheInvalidator(appCache, appLogger)
		inMemory.Subscribe(func(ctx context.Context, event events.Event) {
			if err := invalidator.Handle(ctx, event); err != nil {
				appLogger.Warn("Cache invalidation failed", zap.String("event_type", event.EventType()), zap.Error(err))
			}
		})
	}

	appLogger.Info("🔧 Initializing services...")
	ledger := inventory.NewLedger(store, appLogger)
	quotes := delivery.NewService(delivery.NewCachedProfiles(store, appCache, cfg.CacheTTLDuration(), appLogger), appLogger)
	catalogService := catalog.NewService(store, ledger, catalog.NewLocationFilter(quotes, appLogger),
		appCache, cfg.CacheTTLDuration(), publisher, appLogger)
	orders := ordering.NewService(store, ledger, quotes, publisher, appLogger)
	ratings := rating.NewUpdater(store, publisher, appLogger)
	appLogger.Info("✅ Services initialized successfully")

	appLogger.Info("🔐 JWT Configuration", zap.Int("secret_length", len(cfg.JWTSecret)))
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, 10*time.Minute, appLogger)

	router := gin.New()

	// CORS middleware (must be first to handle preflight requests)
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RecoveryHandler(appLogger))
	router.Use(logger.GinMiddleware(appLogger))
	router.Use(middleware.RequestIDMiddleware(appLogger))
	router.Use(middleware.ErrorHandler(appLogger))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	handlers.RegisterRoutes(router.Group("/api/v1"), handlers.Routes{
		Health:      handlers.NewHealthHandler(appLogger, "marketplace-service", store),
		Orders:      handlers.NewOrderHandler(appLogger, orders),
		Catalog:     handlers.NewCatalogHandler(appLogger, catalogService, quotes),
		Reviews:     handlers.NewReviewHandler(appLogger, ratings),
		Auth:        middleware.AuthMiddleware(jwtManager, appLogger),
		Idempotency: middleware.IdempotencyMiddleware(middleware.NewCacheRequestIDStore(appCache), appLogger, cfg.IdempotencyTTLDuration()),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Starting marketplace service", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	appLogger.Info("Server exited")
}

func openStore(cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		return sqlite.Open(cfg.SQLitePath, cfg.LedgerMaxRetries, logger)
	case config.StorePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return postgres.Open(ctx, cfg.PostgresDSN(), logger)
	case config.StoreMemory:
		logger.Warn("Using in-memory store, data is lost on restart")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
