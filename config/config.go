package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Forecast ForecastConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

type CORSConfig struct {
	AllowedOrigins string
}

type ForecastConfig struct {
	// Strategy selects the prediction implementation at startup: "rule" or
	// "model". The rule-based path is the default.
	Strategy string
	// ModelPath is the durable snapshot location for weights + scaler.
	ModelPath string
	// HistoryDays is how far back the gateway looks for real demand data.
	HistoryDays int
	// MaxHoursAhead bounds a single forecast request.
	MaxHoursAhead int
	// GatewayTimeoutSec bounds the historical data fetch round-trip.
	GatewayTimeoutSec int
	// CacheTTLSec is the response cache lifetime.
	CacheTTLSec int
}

func (d DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func LoadConfig() (*Config, error) {
	// Optional .env for local development; real deployments set env vars.
	_ = godotenv.Load()

	serverPort, err := getIntEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	dbPort, err := getIntEnv("DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	redisPort, err := getIntEnv("REDIS_PORT", 6379)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_PORT: %w", err)
	}

	redisDB, err := getIntEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	jwtExpiry, err := getIntEnv("JWT_EXPIRY_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRY_HOURS: %w", err)
	}

	historyDays, err := getIntEnv("FORECAST_HISTORY_DAYS", 7)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_HISTORY_DAYS: %w", err)
	}

	maxHours, err := getIntEnv("FORECAST_MAX_HOURS_AHEAD", 48)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_MAX_HOURS_AHEAD: %w", err)
	}

	gatewayTimeout, err := getIntEnv("FORECAST_GATEWAY_TIMEOUT_SEC", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_GATEWAY_TIMEOUT_SEC: %w", err)
	}

	cacheTTL, err := getIntEnv("FORECAST_CACHE_TTL_SEC", 300)
	if err != nil {
		return nil, fmt.Errorf("invalid FORECAST_CACHE_TTL_SEC: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: serverPort,
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "transit"),
			Password: getEnv("DB_PASSWORD", "transit_dev_password"),
			Name:     getEnv("DB_NAME", "transit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     redisPort,
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
			ExpiryHours: jwtExpiry,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Forecast: ForecastConfig{
			Strategy:          getEnv("FORECAST_STRATEGY", "rule"),
			ModelPath:         getEnv("FORECAST_MODEL_PATH", "./models/demand_sequence.json"),
			HistoryDays:       historyDays,
			MaxHoursAhead:     maxHours,
			GatewayTimeoutSec: gatewayTimeout,
			CacheTTLSec:       cacheTTL,
		},
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}
