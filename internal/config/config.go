package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application runtime configuration.
type Config struct {
	Env             string
	HTTPPort        string
	DatabaseURL     string
	DefaultCurrency string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// TerminalConfig holds runtime configuration for the offline terminal
// agent. The terminal talks to the server API and never opens Postgres
// directly.
type TerminalConfig struct {
	DataDir      string
	ServerURL    string
	APIToken     string
	OperatorName string
	SyncInterval time.Duration
	SyncTimeout  time.Duration

	CatalogRefreshInterval time.Duration
}

// Load reads environment variables and .env (if present).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DefaultCurrency: getEnv("CURRENCY_CODE", "IDR"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 12*time.Hour),
		RefreshTokenTTL: getDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
		ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return cfg, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

// LoadTerminal reads terminal agent configuration from the environment.
func LoadTerminal() (TerminalConfig, error) {
	_ = godotenv.Load()

	cfg := TerminalConfig{
		DataDir:      getEnv("TERMINAL_DATA_DIR", "data"),
		ServerURL:    os.Getenv("SERVER_URL"),
		APIToken:     os.Getenv("API_TOKEN"),
		OperatorName: getEnv("OPERATOR_NAME", ""),
		SyncInterval: getDuration("SYNC_INTERVAL", 30*time.Second),
		SyncTimeout:  getDuration("SYNC_TIMEOUT", 10*time.Second),

		CatalogRefreshInterval: getDuration("CATALOG_REFRESH_INTERVAL", 5*time.Minute),
	}

	if cfg.ServerURL == "" {
		return cfg, errors.New("SERVER_URL is required")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		// Support seconds as integer without suffix.
		if secs, convErr := strconv.Atoi(val); convErr == nil {
			return time.Duration(secs) * time.Second
		}
		return fallback
	}
	return d
}
