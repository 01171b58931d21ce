package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashendes/storefront/internal/api"
	"github.com/ashendes/storefront/internal/cart"
	"github.com/ashendes/storefront/internal/config"
	"github.com/ashendes/storefront/internal/events"
	"github.com/ashendes/storefront/internal/inventory"
	"github.com/ashendes/storefront/internal/lock"
	"github.com/ashendes/storefront/internal/order"
	"github.com/ashendes/storefront/internal/payment"
	"github.com/ashendes/storefront/internal/store"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func init() {
	// Initialize logger
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg := config.Load()
	log.SetLevel(cfg.ParseLevel())
	gin.SetMode(cfg.GinMode)

	ctx := context.Background()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store: ", err)
	}
	if cfg.SeedProducts {
		if err := store.Seed(ctx, st); err != nil {
			log.Fatal("Failed to seed products: ", err)
		}
	}

	locker, closeLocker := openLocker(ctx, cfg)
	publisher := openPublisher(cfg)
	gateway := openGateway(cfg)

	inv := inventory.NewService(st.Products())
	if err := inv.RecordCatalogue(ctx); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to initialise inventory metrics")
	}

	handler := api.NewHandler(
		inv,
		cart.NewService(st),
		order.NewService(st, inv, publisher, locker, cfg.PaymentLockTTL),
		payment.NewService(st, gateway, locker, publisher, cfg.PaymentLockTTL),
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithFields(log.Fields{
			"port":            cfg.Port,
			"store":           cfg.StoreBackend,
			"payment_gateway": cfg.PaymentGateway,
		}).Info("Storefront Service starting")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Error("Server forced to shutdown")
	}
	if err := publisher.Close(); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to close event publisher")
	}
	closeLocker()
	if err := st.Close(shutdownCtx); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to close store")
	}

	log.Info("Server shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.StoreBackend != config.StoreMongo {
		log.Info("Using in-memory store")
		return store.NewMemoryStore(), nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return store.NewMongoStore(connectCtx, cfg.MongoURI, cfg.MongoDatabase)
}

// openLocker prefers Redis so payment locks hold across replicas
func openLocker(ctx context.Context, cfg config.Config) (lock.Locker, func()) {
	if cfg.RedisURL == "" {
		return lock.NewLocalLocker(), func() {}
	}

	redisLocker, err := lock.NewRedisLocker(ctx, cfg.RedisURL)
	if err != nil {
		log.WithField("error", err.Error()).Warn("Redis unavailable, falling back to in-process payment locks")
		return lock.NewLocalLocker(), func() {}
	}
	return redisLocker, func() {
		if err := redisLocker.Close(); err != nil {
			log.WithField("error", err.Error()).Warn("Failed to close redis client")
		}
	}
}

func openPublisher(cfg config.Config) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NoopPublisher{}
	}

	publisher, err := events.NewAMQPPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.WithField("error", err.Error()).Warn("RabbitMQ unavailable, order events disabled")
		return events.NoopPublisher{}
	}
	return publisher
}

func openGateway(cfg config.Config) payment.Gateway {
	if cfg.PaymentGateway == config.GatewayHTTP {
		log.WithField("payment_url", cfg.PaymentServiceURL).Info("Using remote payment service")
		return payment.NewHTTPGateway(cfg.PaymentServiceURL)
	}
	return payment.NewRandomGateway(cfg.PaymentSuccessRate, time.Now().UnixNano())
}
