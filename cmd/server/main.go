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

	"storefront-service/config"
	"storefront-service/internal/api"
	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/redisclient"
	"storefront-service/internal/service"
	"storefront-service/internal/store"
	"storefront-service/internal/util"
	"storefront-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// backend is the persistence adapter chosen by configuration
type backend struct {
	kv          store.KV
	idempotency service.IdempotencyStore
	pingers     map[string]api.Pinger
	close       func()
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	ttl := time.Duration(cfg.Redis.IdempotencyTTLSeconds) * time.Second

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return &backend{
			kv:          store.NewMemoryKV(),
			idempotency: service.NewMemoryIdempotencyStore(ttl),
			pingers:     map[string]api.Pinger{},
			close:       func() {},
		}, nil

	case config.BackendRedis:
		client, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return &backend{
			kv:          client,
			idempotency: redisclient.NewIdempotencyStore(client, ttl),
			pingers:     map[string]api.Pinger{"redis": client},
			close:       func() { _ = client.Close() },
		}, nil

	case config.BackendPostgres:
		db, err := store.NewStore(cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return &backend{
			kv:          db,
			idempotency: service.NewMemoryIdempotencyStore(ttl),
			pingers:     map[string]api.Pinger{"postgres": db},
			close:       func() { _ = db.Close() },
		}, nil
	}

	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront service")

	tp, err := util.InitTracer("storefront-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	if tp != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open storage backend", zap.Error(err))
	}
	defer be.close()
	logger.Info("Storage backend ready", zap.String("backend", cfg.Storage.Backend))

	var publisher service.EventPublisher = service.NoopPublisher{}
	var producer *broker.Producer
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStoreEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicStoreEvents))
	}

	storefront := service.NewStorefront(be.kv,
		service.WithEventPublisher(publisher),
		service.WithSeedCatalog(cfg.Storage.SeedCatalog),
	)
	if err := storefront.Load(ctx); err != nil {
		logger.Fatal("Failed to load storefront state", zap.Error(err))
	}

	paymentService := service.NewPaymentService(storefront, service.PaymentNumbers{
		models.PaymentMTN:    cfg.Business.MTNPaymentNumber,
		models.PaymentAirtel: cfg.Business.AirtelPaymentNumber,
	})
	checkoutService := service.NewCheckoutService(storefront, paymentService, be.idempotency)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var paymentWorker *worker.PaymentWorker
	if cfg.Kafka.Enabled {
		paymentConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicPaymentEvents, cfg.Kafka.ConsumerGroup)
		paymentWorker = worker.NewPaymentWorker(paymentConsumer, paymentService)
		go func() {
			if err := paymentWorker.Start(workerCtx); err != nil && err != context.Canceled {
				logger.Error("Payment worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	limiter := api.NewRateLimiter(cfg.Business.CheckoutRateLimit, cfg.Business.CheckoutRateBurst)
	handler := api.NewHandler(storefront, checkoutService, paymentService, limiter)
	for name, p := range be.pingers {
		handler.AddReadinessCheck(name, p)
	}
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
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
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if paymentWorker != nil {
		_ = paymentWorker.Stop()
	}

	logger.Info("Server exited")
}
