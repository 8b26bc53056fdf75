package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldpay/internal/domain/payroll"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/fieldpay")

	cfg := Load()

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, payroll.DefaultRules(), cfg.Rules())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("RATE_CACHE_TTL", "90s")
	t.Setenv("BONUS_BOOK_THRESHOLD", "40")
	t.Setenv("MIN_BOOK_COLLECTION", "not-a-number")

	cfg := Load()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 90*time.Second, cfg.RateCacheTTL)
	assert.Equal(t, 40, cfg.Rules().BonusBookThreshold)
	assert.Equal(t, float64(payroll.DefaultMinBookCollection), cfg.MinBookCollection)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		t.Setenv("DATABASE_URL", "postgres://localhost/fieldpay")
		return Load()
	}

	cfg := base()
	cfg.DatabaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Environment = "production"
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	cfg.JWTSecret = "a-real-secret"
	cfg.RunSeed = false
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.KafkaEnabled = true
	assert.ErrorContains(t, cfg.Validate(), "KAFKA_BROKERS")

	cfg = base()
	cfg.DeductionDivisorDays = 0
	assert.Error(t, cfg.Validate())
}
