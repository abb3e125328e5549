package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
)

// TracingConfig controls the OTLP exporter wiring.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// Config carries all service settings. Bootstrap financial defaults replace
// the legacy key-value settings table: when the capital or HKD adjustment
// ledgers are empty, these values are the starting balances.
type Config struct {
	Environment  string
	HTTPAddr     string
	DatabasePath string
	ServiceName  string

	InitialCapital    decimal.Decimal
	InitialHKDBalance decimal.Decimal

	RateLimit       int
	RateLimitWindow time.Duration

	Tracing TracingConfig
}

// Load reads configuration from the environment with documented defaults.
func Load() (Config, error) {
	cfg := Config{
		Environment:  getEnv("EXCHANGE_ENV", "development"),
		HTTPAddr:     getEnv("EXCHANGE_HTTP_ADDR", ":8080"),
		DatabasePath: getEnv("EXCHANGE_DB_PATH", "exchange.db"),
		ServiceName:  getEnv("EXCHANGE_SERVICE_NAME", "currency-exchange"),

		RateLimit:       getEnvInt("EXCHANGE_RATE_LIMIT", 120),
		RateLimitWindow: time.Minute,

		Tracing: TracingConfig{
			Enabled:          getEnvBool("EXCHANGE_TRACING_ENABLED", false),
			ExporterEndpoint: getEnv("EXCHANGE_OTLP_ENDPOINT", ""),
			ExporterProtocol: getEnv("EXCHANGE_OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    getEnvFloat("EXCHANGE_TRACE_SAMPLING_RATIO", 0.1),
		},
	}

	capital, err := getEnvDecimal("EXCHANGE_INITIAL_CAPITAL", decimal.Zero)
	if err != nil {
		return Config{}, err
	}
	cfg.InitialCapital = capital

	hkd, err := getEnvDecimal("EXCHANGE_INITIAL_HKD_BALANCE", decimal.Zero)
	if err != nil {
		return Config{}, err
	}
	cfg.InitialHKDBalance = hkd

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}
	return decimal.NewFromString(value)
}

// Module provides the loaded configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)
