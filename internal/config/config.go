package config

import (
	"fleet-route-optimizer/internal/services"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// Config is the process configuration. Every field has a usable default
// except the optional external credentials.
type Config struct {
	Port        string
	DBDriver    string
	DatabaseURL string
	SeedPath    string

	ORSAPIKey  string
	ORSProfile string
	MapTimeout time.Duration

	GeminiAPIKey  string
	GeminiModel   string
	OracleTimeout time.Duration

	RedisURL string

	LogLevel string
	LogFile  string

	OTLPEndpoint string

	Plan services.PlanOptions
}

// LoadDotEnv reads .env when present. A missing file is not an error.
func LoadDotEnv() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found (using environment variables)")
	}
}

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", key, raw)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	raw := Get(key, "")
	if raw == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s: must not be negative, got %s", key, raw)
	}
	return f, nil
}

// Load builds a Config from the environment. Call LoadDotEnv first to pick
// up a local .env file.
func Load() (Config, error) {
	cfg := Config{
		Port:         Get("PORT", "8080"),
		DBDriver:     Get("DB_DRIVER", DriverSQLite),
		SeedPath:     Get("SEED_PATH", "data/seeds/fleet.json"),
		ORSAPIKey:    Get("ORS_API_KEY", ""),
		ORSProfile:   Get("ORS_PROFILE", "driving-car"),
		GeminiAPIKey: Get("GEMINI_API_KEY", ""),
		GeminiModel:  Get("GEMINI_MODEL", "gemini-pro"),
		RedisURL:     Get("REDIS_URL", ""),
		LogLevel:     Get("LOG_LEVEL", "info"),
		LogFile:      Get("LOG_FILE", ""),
		OTLPEndpoint: Get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	switch cfg.DBDriver {
	case DriverSQLite:
		cfg.DatabaseURL = Get("DATABASE_URL", "data/app.db")
	case DriverPgx:
		cfg.DatabaseURL = Get("DATABASE_URL", "")
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("load config: DATABASE_URL is required when DB_DRIVER=%s", DriverPgx)
		}
	default:
		return Config{}, fmt.Errorf("load config: unknown DB_DRIVER %q", cfg.DBDriver)
	}

	var err error
	if cfg.MapTimeout, err = getDuration("MAP_TIMEOUT", 15*time.Second); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if cfg.OracleTimeout, err = getDuration("ORACLE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if cfg.Plan.ETAMode, err = services.ParseETAMode(Get("ETA_MODE", string(services.ETAEven))); err != nil {
		return Config{}, fmt.Errorf("load config: ETA_MODE: %w", err)
	}

	policy := services.DefaultCostPolicy()
	floats := []struct {
		key string
		dst *float64
	}{
		{"FUEL_PRICE_PER_LITER", &policy.FuelPricePerLiter},
		{"TIME_COST_PER_MINUTE", &policy.TimeCostPerMinute},
		{"CO2_KG_PER_LITER", &policy.CO2KgPerLiter},
		{"SERVICE_MINUTES", &policy.ServiceMinutes},
	}
	for _, f := range floats {
		if *f.dst, err = getFloat(f.key, *f.dst); err != nil {
			return Config{}, fmt.Errorf("load config: %w", err)
		}
	}
	cfg.Plan.Policy = policy

	return cfg, nil
}
