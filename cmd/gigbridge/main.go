// Command gigbridge runs the marketplace API server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gigbridge/gigbridge/internal/admin"
	"github.com/gigbridge/gigbridge/internal/auth"
	"github.com/gigbridge/gigbridge/internal/config"
	"github.com/gigbridge/gigbridge/internal/database"
	"github.com/gigbridge/gigbridge/internal/gateway"
	"github.com/gigbridge/gigbridge/internal/listings"
	"github.com/gigbridge/gigbridge/internal/notification"
	"github.com/gigbridge/gigbridge/internal/orders"
	"github.com/gigbridge/gigbridge/internal/server"
	"github.com/gigbridge/gigbridge/internal/settlement"
	"github.com/gigbridge/gigbridge/internal/wallet"
	"github.com/gigbridge/gigbridge/pkg/logger"
)

func main() {
	// A missing .env is fine in deployed environments.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	zapLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer zapLogger.Sync()

	db, err := database.NewPostgresDB(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	publisher := notification.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, zapLogger)
	defer publisher.Close()

	gw := gateway.NewRazorpayGateway(
		cfg.Gateway.BaseURL,
		cfg.Gateway.KeyID,
		cfg.Gateway.KeySecret,
		zapLogger,
	)

	notificationSvc := notification.NewService(db, publisher, zapLogger)
	adminSvc := admin.NewService(db, redisClient, zapLogger)
	authSvc := auth.NewService(db, cfg.JWTSecret, zapLogger)
	walletSvc := wallet.NewService(db, zapLogger)
	listingsSvc := listings.NewService(db, notificationSvc, zapLogger)
	ordersSvc := orders.NewService(db, gw, notificationSvc, cfg.CommissionPercent, zapLogger)
	engine := settlement.NewEngine(db, gw, notificationSvc, adminSvc, cfg.HighValueThreshold, zapLogger)

	apiServer := server.NewServer(
		zapLogger,
		authSvc,
		auth.NewHandler(authSvc, zapLogger),
		listings.NewHandler(listingsSvc, zapLogger),
		orders.NewHandler(ordersSvc, engine, gw, zapLogger),
		wallet.NewHandler(walletSvc, zapLogger),
		admin.NewHandler(adminSvc, zapLogger),
		notification.NewHandler(notificationSvc, zapLogger),
	)

	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.Start(cfg.HTTPAddr); err != nil {
			zapLogger.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		zapLogger.Error("Failed to shut down cleanly", zap.Error(err))
	}

	zapLogger.Info("Server exited properly")
}
