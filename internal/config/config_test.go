package config

import (
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "STORE_BACKEND", "PAYMENT_SUCCESS_RATE", "PAYMENT_LOCK_TTL", "SEED_PRODUCTS"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, GatewayMock, cfg.PaymentGateway)
	assert.InDelta(t, 0.9, cfg.PaymentSuccessRate, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.PaymentLockTTL)
	assert.True(t, cfg.SeedProducts)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", StoreMongo)
	t.Setenv("PAYMENT_SUCCESS_RATE", "0.5")
	t.Setenv("PAYMENT_LOCK_TTL", "5s")
	t.Setenv("SEED_PRODUCTS", "false")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreMongo, cfg.StoreBackend)
	assert.InDelta(t, 0.5, cfg.PaymentSuccessRate, 1e-9)
	assert.Equal(t, 5*time.Second, cfg.PaymentLockTTL)
	assert.False(t, cfg.SeedProducts)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("PAYMENT_SUCCESS_RATE", "lots")
	t.Setenv("PAYMENT_LOCK_TTL", "forever")

	cfg := Load()

	assert.InDelta(t, 0.9, cfg.PaymentSuccessRate, 1e-9)
	assert.Equal(t, 30*time.Second, cfg.PaymentLockTTL)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, log.DebugLevel, Config{LogLevel: "debug"}.ParseLevel())
	assert.Equal(t, log.InfoLevel, Config{LogLevel: "nonsense"}.ParseLevel())
}

func TestLoadProvider(t *testing.T) {
	t.Setenv("APPROVAL_RATE", "0.5")
	t.Setenv("PORT", "")

	cfg := LoadProvider()

	assert.Equal(t, "8082", cfg.Port)
	assert.InDelta(t, 0.5, cfg.ApprovalRate, 1e-9)
	assert.Equal(t, log.WarnLevel, ProviderConfig{LogLevel: "warn"}.ParseLevel())
}
