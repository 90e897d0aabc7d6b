package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.True(t, cfg.Checkout.FreeDeliveryThreshold.Equal(decimal.NewFromInt(3000)))
	assert.True(t, cfg.Checkout.CourierFee.Equal(decimal.NewFromInt(500)))
	assert.True(t, cfg.Checkout.TransportFee.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 3, cfg.Checkout.OrderNumberAttempts)
	assert.Equal(t, int64(10<<20), cfg.Import.MaxFileBytes)
	assert.Equal(t, "RUB", cfg.Import.DefaultCurrency)
	assert.Equal(t, "storefront-notifier", cfg.Notifier.Group)
	assert.Equal(t, 8, cfg.Notifier.Workers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("FREE_DELIVERY_THRESHOLD", "4500.50")
	t.Setenv("ORDER_NUMBER_ATTEMPTS", "5")
	t.Setenv("JWT_TTL", "2h")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "4500.5", cfg.Checkout.FreeDeliveryThreshold.String())
	assert.Equal(t, 5, cfg.Checkout.OrderNumberAttempts)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("COURIER_FEE", "-10")
	t.Setenv("ORDER_NUMBER_ATTEMPTS", "zero")

	cfg := Load()

	assert.True(t, cfg.Checkout.CourierFee.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, 3, cfg.Checkout.OrderNumberAttempts)
}
