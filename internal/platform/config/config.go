package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"fieldpay/internal/domain/payroll"
)

const devJWTSecret = "dev-secret-change-me"

type Config struct {
	Addr               string
	DatabaseURL        string
	RedisAddr          string
	RateCacheTTL       time.Duration
	KafkaBrokers       []string
	KafkaEnabled       bool
	JWTSecret          string
	TokenTTL           time.Duration
	Environment        string
	SeedAdminEmail     string
	SeedAdminPassword  string
	RunMigrations      bool
	RunSeed            bool
	MigrationsDir      string
	MaxBodyBytes       int64
	RateLimitPerSecond float64
	RateLimitBurst     int
	MetricsEnabled     bool

	BonusBookThreshold          int
	BonusFlatAmount             float64
	ManagerIncentiveRatePercent float64
	DeductionDivisorDays        float64
	DeductionDivisorHours       float64
	MinBookCollection           float64
	BonusWindowMonths           int
}

func Load() Config {
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RateCacheTTL:       getEnvDuration("RATE_CACHE_TTL", 10*time.Minute),
		KafkaBrokers:       getEnvList("KAFKA_BROKERS", nil),
		KafkaEnabled:       getEnvBool("KAFKA_ENABLED", false),
		JWTSecret:          getEnv("JWT_SECRET", devJWTSecret),
		TokenTTL:           getEnvDuration("TOKEN_TTL", 12*time.Hour),
		Environment:        getEnv("APP_ENV", "development"),
		SeedAdminEmail:     getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword:  getEnv("SEED_ADMIN_PASSWORD", ""),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
		RunSeed:            getEnvBool("RUN_SEED", true),
		MigrationsDir:      getEnv("MIGRATIONS_DIR", "migrations"),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),

		BonusBookThreshold:          getEnvInt("BONUS_BOOK_THRESHOLD", payroll.DefaultBonusBookThreshold),
		BonusFlatAmount:             getEnvFloat("BONUS_FLAT_AMOUNT", payroll.DefaultBonusFlatAmount),
		ManagerIncentiveRatePercent: getEnvFloat("MANAGER_INCENTIVE_RATE_PERCENT", payroll.DefaultManagerIncentiveRatePercent),
		DeductionDivisorDays:        getEnvFloat("DEDUCTION_DIVISOR_DAYS", payroll.DefaultDeductionDivisorDays),
		DeductionDivisorHours:       getEnvFloat("DEDUCTION_DIVISOR_HOURS", payroll.DefaultDeductionDivisorHours),
		MinBookCollection:           getEnvFloat("MIN_BOOK_COLLECTION", payroll.DefaultMinBookCollection),
		BonusWindowMonths:           getEnvInt("BONUS_WINDOW_MONTHS", payroll.DefaultBonusWindowMonths),
	}
}

// Rules returns the payroll parameters handed to the engine.
func (c Config) Rules() payroll.Rules {
	return payroll.Rules{
		BonusBookThreshold:          c.BonusBookThreshold,
		BonusFlatAmount:             c.BonusFlatAmount,
		ManagerIncentiveRatePercent: c.ManagerIncentiveRatePercent,
		DeductionDivisorDays:        c.DeductionDivisorDays,
		DeductionDivisorHours:       c.DeductionDivisorHours,
		MinBookCollection:           c.MinBookCollection,
		BonusWindowMonths:           c.BonusWindowMonths,
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Environment == "production" {
		if strings.TrimSpace(c.JWTSecret) == "" || c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.RunSeed && strings.TrimSpace(c.SeedAdminPassword) == "" {
			return fmt.Errorf("SEED_ADMIN_PASSWORD must be changed or RUN_SEED disabled in production")
		}
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS must be set when KAFKA_ENABLED is true")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerSecond <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_SECOND and RATE_LIMIT_BURST must be positive")
	}
	if c.DeductionDivisorDays <= 0 || c.DeductionDivisorHours <= 0 {
		return fmt.Errorf("DEDUCTION_DIVISOR_DAYS and DEDUCTION_DIVISOR_HOURS must be positive")
	}
	if c.BonusWindowMonths < 0 {
		return fmt.Errorf("BONUS_WINDOW_MONTHS must not be negative")
	}
	return nil
}
