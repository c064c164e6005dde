package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"art-store/config"
	"art-store/internal/api"
	"art-store/internal/broker"
	"art-store/internal/cart"
	"art-store/internal/payment"
	"art-store/internal/redisclient"
	"art-store/internal/service"
	"art-store/internal/storage"
	"art-store/internal/store"
	"art-store/internal/util"
	"art-store/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting art store", zap.String("env", cfg.Server.Env), zap.String("site_url", cfg.Server.SiteURL))
	for _, warning := range cfg.Validate() {
		logger.Warn("Configuration incomplete", zap.String("detail", warning))
	}

	tp, err := util.InitTracer(cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = db.Migrate(migrateCtx)
	migrateCancel()
	if err != nil {
		logger.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Info("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	images, err := storage.NewMinioStorage(
		cfg.Storage.Endpoint,
		cfg.Storage.AccessKey,
		cfg.Storage.SecretKey,
		cfg.Storage.Bucket,
		cfg.Storage.UseSSL,
		cfg.Storage.PublicBaseURL,
		cfg.Storage.SignedUploadTTL,
	)
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicCatalog))

	eventPublisher := broker.NewEventPublisher(producer)

	gateway := payment.NewBreakerGateway(payment.NewStripeGateway(cfg.Stripe.SecretKey), payment.DefaultBreakerConfig())
	verifier := payment.NewWebhookVerifier(cfg.Stripe.WebhookSecret)

	catalogService := service.NewCatalogService(db, redisClient, images, eventPublisher, cfg.Redis.CatalogCacheTTL)
	checkoutService := service.NewCheckoutService(db, gateway, cfg.Server.SiteURL, cfg.Stripe.ShippingCountries)
	settlementService := service.NewSettlementService(verifier, db, redisClient, eventPublisher)
	authService := service.NewAuthService(cfg.Admin.Password, redisClient, cfg.Admin.SessionTTL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	cacheConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicCatalog, cfg.Kafka.ConsumerGroup)
	cacheWorker := worker.NewCacheWorker(cacheConsumer, redisClient)
	go func() {
		if err := cacheWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Cache worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Deps{
		Catalog:       catalogService,
		Checkout:      checkoutService,
		Settlement:    settlementService,
		Auth:          authService,
		Carts:         cart.NewRedisStore(redisClient, cfg.Redis.CartTTL),
		Checks:        map[string]api.Pinger{"database": db, "redis": redisClient},
		SiteURL:       cfg.Server.SiteURL,
		VerboseErrors: cfg.IsDevelopment(),
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := cacheWorker.Stop(); err != nil {
		logger.Warn("Error stopping cache worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
