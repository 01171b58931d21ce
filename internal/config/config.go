package config

import (
	"os"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store backends
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Payment gateways
const (
	GatewayMock = "mock"
	GatewayHTTP = "http"
)

// Config holds the storefront service settings
type Config struct {
	Port     string
	GinMode  string
	LogLevel string

	StoreBackend  string
	MongoURI      string
	MongoDatabase string
	SeedProducts  bool

	PaymentGateway     string
	PaymentServiceURL  string
	PaymentSuccessRate float64
	PaymentLockTTL     time.Duration

	RedisURL    string
	RabbitMQURL string

	ShutdownTimeout time.Duration
}

// Load reads the configuration from the environment
func Load() Config {
	return Config{
		Port:     getEnv("PORT", "8080"),
		GinMode:  getEnv("GIN_MODE", "debug"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreBackend:  getEnv("STORE_BACKEND", StoreMemory),
		MongoURI:      getEnv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "storefront"),
		SeedProducts:  getEnvBool("SEED_PRODUCTS", true),

		PaymentGateway:     getEnv("PAYMENT_GATEWAY", GatewayMock),
		PaymentServiceURL:  getEnv("PAYMENT_SERVICE_URL", "http://localhost:8082"),
		PaymentSuccessRate: getEnvFloat("PAYMENT_SUCCESS_RATE", 0.9),
		PaymentLockTTL:     getEnvDuration("PAYMENT_LOCK_TTL", 30*time.Second),

		RedisURL:    getEnv("REDIS_URL", ""),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// ProviderConfig holds the mock payment provider settings
type ProviderConfig struct {
	Port         string
	GinMode      string
	LogLevel     string
	ApprovalRate float64
}

// LoadProvider reads the payment provider configuration from the environment
func LoadProvider() ProviderConfig {
	return ProviderConfig{
		Port:         getEnv("PORT", "8082"),
		GinMode:      getEnv("GIN_MODE", "debug"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		ApprovalRate: getEnvFloat("APPROVAL_RATE", 0.9),
	}
}

// ParseLevel maps LOG_LEVEL onto a logrus level, defaulting to info
func (c Config) ParseLevel() log.Level {
	return parseLevel(c.LogLevel)
}

// ParseLevel maps LOG_LEVEL onto a logrus level, defaulting to info
func (c ProviderConfig) ParseLevel() log.Level {
	return parseLevel(c.LogLevel)
}

func parseLevel(raw string) log.Level {
	level, err := log.ParseLevel(raw)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// getEnv gets environment variable with fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
