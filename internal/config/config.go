package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all process configuration, loaded once at startup.
type Config struct {
	Environment string
	HTTPAddr    string

	Database  DatabaseConfig
	Factors   FactorsConfig
	Tracing   TracingConfig
	Admin     AdminConfig
	Scheduler SchedulerConfig

	SummaryCacheTTL time.Duration
}

type DatabaseConfig struct {
	Driver string // "postgres" or "sqlite"
	DSN    string
}

type FactorsConfig struct {
	// Path to the emission factor reference file. Empty means the
	// embedded default table is used.
	Path string
}

type TracingConfig struct {
	Enabled          bool
	ServiceName      string
	ServiceVersion   string
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

type AdminConfig struct {
	// APIKey guards administrative endpoints such as factor table reload.
	APIKey string
}

type SchedulerConfig struct {
	// Enabled turns the background compute worker on. Disabled by
	// default so API-only deployments do not double-compute.
	Enabled  bool
	Interval time.Duration
	// BatchSize caps how many organizations one sweep processes.
	BatchSize int
}

// Load reads configuration from the environment. A .env file is honored
// when present so local development does not need exported variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("ECOLEDGER_ENV", "development"),
		HTTPAddr:    getEnv("ECOLEDGER_HTTP_ADDR", ":8080"),
		Database: DatabaseConfig{
			Driver: getEnv("ECOLEDGER_DB_DRIVER", "postgres"),
			DSN:    getEnv("ECOLEDGER_DB_DSN", ""),
		},
		Factors: FactorsConfig{
			Path: getEnv("ECOLEDGER_FACTORS_PATH", ""),
		},
		Tracing: TracingConfig{
			Enabled:          getEnvBool("ECOLEDGER_TRACING_ENABLED", false),
			ServiceName:      getEnv("ECOLEDGER_SERVICE_NAME", "ecoledger"),
			ServiceVersion:   getEnv("ECOLEDGER_SERVICE_VERSION", "dev"),
			ExporterEndpoint: getEnv("ECOLEDGER_OTLP_ENDPOINT", "localhost:4317"),
			ExporterProtocol: getEnv("ECOLEDGER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    getEnvFloat("ECOLEDGER_TRACE_SAMPLING_RATIO", 1.0),
		},
		Admin: AdminConfig{
			APIKey: getEnv("ECOLEDGER_ADMIN_API_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:   getEnvBool("ECOLEDGER_SCHEDULER_ENABLED", false),
			Interval:  getEnvDuration("ECOLEDGER_SCHEDULER_INTERVAL", time.Minute),
			BatchSize: getEnvInt("ECOLEDGER_SCHEDULER_BATCH_SIZE", 50),
		},
		SummaryCacheTTL: getEnvDuration("ECOLEDGER_SUMMARY_CACHE_TTL", 30*time.Second),
	}
	return cfg, nil
}

// IsProduction reports whether the process runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
