package config

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration, loaded from the environment and an
// optional .env file.
type Config struct {
	HTTPAddr string
	LogLevel string

	Database DatabaseConfig
	Gateway  GatewayConfig
	Kafka    KafkaConfig
	Redis    RedisConfig

	JWTSecret string

	// CommissionPercent is the platform's cut of an order's price,
	// applied once at order creation.
	CommissionPercent decimal.Decimal
	// HighValueThreshold is the order price at or above which every
	// administrator is alerted after settlement.
	HighValueThreshold decimal.Decimal
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// GatewayConfig holds payment gateway credentials.
type GatewayConfig struct {
	BaseURL   string
	KeyID     string
	KeySecret string
}

// KafkaConfig holds notification event stream settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// RedisConfig holds cache settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoadConfig reads configuration from .env and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	// A missing .env is fine; the environment wins either way.
	_ = viper.ReadInConfig()

	viper.SetDefault("HTTP_ADDR", ":8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 50)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", 3600)
	viper.SetDefault("GATEWAY_BASE_URL", "https://api.razorpay.com")
	viper.SetDefault("KAFKA_BROKERS", []string{"localhost:9092"})
	viper.SetDefault("KAFKA_TOPIC", "gigbridge.notifications")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("COMMISSION_PERCENT", "10")
	viper.SetDefault("HIGH_VALUE_THRESHOLD", "10000")

	commission, err := decimal.NewFromString(viper.GetString("COMMISSION_PERCENT"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMISSION_PERCENT: %w", err)
	}
	threshold, err := decimal.NewFromString(viper.GetString("HIGH_VALUE_THRESHOLD"))
	if err != nil {
		return nil, fmt.Errorf("invalid HIGH_VALUE_THRESHOLD: %w", err)
	}

	cfg := &Config{
		HTTPAddr: viper.GetString("HTTP_ADDR"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Database: DatabaseConfig{
			DSN:             viper.GetString("DATABASE_DSN"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: viper.GetInt("DB_CONN_MAX_LIFETIME"),
		},
		Gateway: GatewayConfig{
			BaseURL:   viper.GetString("GATEWAY_BASE_URL"),
			KeyID:     viper.GetString("GATEWAY_KEY_ID"),
			KeySecret: viper.GetString("GATEWAY_KEY_SECRET"),
		},
		Kafka: KafkaConfig{
			Brokers: viper.GetStringSlice("KAFKA_BROKERS"),
			Topic:   viper.GetString("KAFKA_TOPIC"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWTSecret:          viper.GetString("JWT_SECRET"),
		CommissionPercent:  commission,
		HighValueThreshold: threshold,
	}

	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("DATABASE_DSN is required")
	}
	if cfg.Gateway.KeySecret == "" {
		return nil, fmt.Errorf("GATEWAY_KEY_SECRET is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}
