package config

import (
	"os"
	"strings"
	"testing"
)

var configEnvKeys = []string{
	"SERVER_PORT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"JWT_SECRET", "JWT_EXPIRY_HOURS",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
	"CORS_ALLOWED_ORIGINS",
	"FORECAST_STRATEGY", "FORECAST_MODEL_PATH", "FORECAST_HISTORY_DAYS",
	"FORECAST_MAX_HOURS_AHEAD", "FORECAST_GATEWAY_TIMEOUT_SEC", "FORECAST_CACHE_TTL_SEC",
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		os.Unsetenv(key)
	}
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "transit",
		Password: "secret",
		Name:     "transit",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=transit password=secret dbname=transit sslmode=disable"
	if dsn := db.GetDSN(); dsn != expected {
		t.Errorf("GetDSN() = %q, want %q", dsn, expected)
	}
}

func TestGetDSNCustomValues(t *testing.T) {
	db := DatabaseConfig{
		Host:     "db.example.com",
		Port:     5433,
		User:     "admin",
		Password: "p@ss",
		Name:     "mydb",
		SSLMode:  "require",
	}
	dsn := db.GetDSN()

	for _, part := range []string{"host=db.example.com", "port=5433", "sslmode=require"} {
		if !strings.Contains(dsn, part) {
			t.Errorf("DSN missing %q, got: %s", part, dsn)
		}
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("TEST_CONFIG_VAR")
	if got := getEnv("TEST_CONFIG_VAR", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want %q", got, "default")
	}

	os.Setenv("TEST_CONFIG_VAR", "custom")
	defer os.Unsetenv("TEST_CONFIG_VAR")
	if got := getEnv("TEST_CONFIG_VAR", "default"); got != "custom" {
		t.Errorf("getEnv() = %q, want %q", got, "custom")
	}
}

func TestGetIntEnv(t *testing.T) {
	t.Run("fallback when unset", func(t *testing.T) {
		os.Unsetenv("TEST_INT_VAR")
		got, err := getIntEnv("TEST_INT_VAR", 8080)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 8080 {
			t.Errorf("getIntEnv() = %d, want %d", got, 8080)
		}
	})

	t.Run("parses valid int", func(t *testing.T) {
		os.Setenv("TEST_INT_VAR", "9090")
		defer os.Unsetenv("TEST_INT_VAR")
		got, err := getIntEnv("TEST_INT_VAR", 8080)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 9090 {
			t.Errorf("getIntEnv() = %d, want %d", got, 9090)
		}
	})

	t.Run("error on invalid int", func(t *testing.T) {
		os.Setenv("TEST_INT_VAR", "not_int")
		defer os.Unsetenv("TEST_INT_VAR")
		if _, err := getIntEnv("TEST_INT_VAR", 8080); err == nil {
			t.Error("expected error for invalid int value")
		}
	})
}

func TestLoadConfigDefaults(t *testing.T) {
	clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	intChecks := []struct {
		name string
		got  int
		want int
	}{
		{"Server.Port", cfg.Server.Port, 8080},
		{"Database.Port", cfg.Database.Port, 5432},
		{"Redis.Port", cfg.Redis.Port, 6379},
		{"JWT.ExpiryHours", cfg.JWT.ExpiryHours, 24},
		{"Forecast.HistoryDays", cfg.Forecast.HistoryDays, 7},
		{"Forecast.MaxHoursAhead", cfg.Forecast.MaxHoursAhead, 48},
		{"Forecast.GatewayTimeoutSec", cfg.Forecast.GatewayTimeoutSec, 5},
		{"Forecast.CacheTTLSec", cfg.Forecast.CacheTTLSec, 300},
	}
	for _, c := range intChecks {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", c.name, c.got, c.want)
		}
	}

	strChecks := []struct {
		name string
		got  string
		want string
	}{
		{"Database.Host", cfg.Database.Host, "localhost"},
		{"Database.User", cfg.Database.User, "transit"},
		{"CORS.AllowedOrigins", cfg.CORS.AllowedOrigins, "*"},
		{"Forecast.Strategy", cfg.Forecast.Strategy, "rule"},
		{"Forecast.ModelPath", cfg.Forecast.ModelPath, "./models/demand_sequence.json"},
	}
	for _, c := range strChecks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", c.name, c.got, c.want)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearConfigEnv(t)
	os.Setenv("SERVER_PORT", "3000")
	os.Setenv("DB_HOST", "db.prod")
	os.Setenv("JWT_EXPIRY_HOURS", "48")
	os.Setenv("FORECAST_STRATEGY", "model")
	os.Setenv("FORECAST_MAX_HOURS_AHEAD", "72")
	defer clearConfigEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want 3000", cfg.Server.Port)
	}
	if cfg.Database.Host != "db.prod" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "db.prod")
	}
	if cfg.JWT.ExpiryHours != 48 {
		t.Errorf("JWT.ExpiryHours = %d, want 48", cfg.JWT.ExpiryHours)
	}
	if cfg.Forecast.Strategy != "model" {
		t.Errorf("Forecast.Strategy = %q, want %q", cfg.Forecast.Strategy, "model")
	}
	if cfg.Forecast.MaxHoursAhead != 72 {
		t.Errorf("Forecast.MaxHoursAhead = %d, want 72", cfg.Forecast.MaxHoursAhead)
	}
}

func TestLoadConfigInvalidInt(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "FORECAST_MAX_HOURS_AHEAD"} {
		t.Run(key, func(t *testing.T) {
			clearConfigEnv(t)
			os.Setenv(key, "invalid")
			defer os.Unsetenv(key)

			if _, err := LoadConfig(); err == nil {
				t.Errorf("expected error for invalid %s", key)
			}
		})
	}
}
