package config

import (
	"os"
	"strconv"
	"time"

	"retailpulse/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Data      DataConfig
	Forecast  ForecastConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds the optional job-history database settings. When
// URL is empty the in-memory job store is used instead.
type DatabaseConfig struct {
	URL string
}

// DataConfig holds paths to the three ledger exports (.xlsx or .csv)
type DataConfig struct {
	SalesFile     string
	ProductsFile  string
	TransfersFile string
}

// ForecastConfig holds forecasting pipeline settings
type ForecastConfig struct {
	MLBaseURL      string
	TrainTimeout   time.Duration
	PredictTimeout time.Duration
	HorizonMonths  int
	StoreCount     int
}

// ProfilingConfig holds the ops/pprof server settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := fromEnv()
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// LoadDemo reads configuration without requiring the export file paths,
// for commands that synthesize their dataset.
func LoadDemo() (*Config, error) {
	config := fromEnv()
	if config.Forecast.HorizonMonths <= 0 {
		return nil, errors.ConfigInvalid("FORECAST_HORIZON_MONTHS must be positive")
	}
	return config, nil
}

func fromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Data: DataConfig{
			SalesFile:     os.Getenv("SALES_FILE"),
			ProductsFile:  os.Getenv("PRODUCTS_FILE"),
			TransfersFile: os.Getenv("TRANSFERS_FILE"),
		},
		Forecast: ForecastConfig{
			MLBaseURL:      getEnvOrDefault("ML_SERVICE_URL", "http://localhost:8000"),
			TrainTimeout:   getEnvDurationOrDefault("ML_TRAIN_TIMEOUT", 10*time.Minute),
			PredictTimeout: getEnvDurationOrDefault("ML_PREDICT_TIMEOUT", 2*time.Minute),
			HorizonMonths:  getEnvIntOrDefault("FORECAST_HORIZON_MONTHS", 6),
			StoreCount:     getEnvIntOrDefault("FORECAST_STORE_COUNT", 10),
		},
		Profiling: ProfilingConfig{
			Port:    getEnvOrDefault("OPS_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
		},
	}
}

func validateConfig(config *Config) error {
	if config.Data.SalesFile == "" {
		return errors.ConfigInvalid("SALES_FILE is required")
	}
	if config.Data.ProductsFile == "" {
		return errors.ConfigInvalid("PRODUCTS_FILE is required")
	}
	if config.Forecast.HorizonMonths <= 0 {
		return errors.ConfigInvalid("FORECAST_HORIZON_MONTHS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
