package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	LaFactura LaFacturaConfig
	Pipeline  PipelineConfig
	Bootstrap BootstrapConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// LaFacturaConfig holds LaFactura.co API configuration
type LaFacturaConfig struct {
	BaseURL string
	Timeout time.Duration
}

// PipelineConfig holds document pipeline configuration
type PipelineConfig struct {
	Enabled      bool
	Schedule     string // cron expression
	AccountPause time.Duration
	SessionTTL   time.Duration
	GuardTTL     time.Duration
}

// BootstrapConfig seeds an initial account and operator from environment.
// Accounts normally live in the database; this covers first boot.
type BootstrapConfig struct {
	AccountName    string
	MagayaURL      string
	NetworkID      string
	MagayaUser     string
	MagayaPass     string
	LaFacturaUser  string
	LaFacturaPass  string
	OperatorEmail  string
	OperatorSecret string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "3000"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "envoice"),
		},
		LaFactura: LaFacturaConfig{
			BaseURL: getEnv("LAFACTURA_URL", "https://play.tas-la.com/facturacion.v30/"),
			Timeout: getDurationEnv("LAFACTURA_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			Enabled:      getBoolEnv("PIPELINE_ENABLED", true),
			Schedule:     getEnv("PIPELINE_SCHEDULE", "*/10 * * * *"),
			AccountPause: getDurationEnv("PIPELINE_ACCOUNT_PAUSE", 10*time.Second),
			SessionTTL:   getDurationEnv("MAGAYA_SESSION_TTL", 20*time.Minute),
			GuardTTL:     getDurationEnv("PIPELINE_GUARD_TTL", 5*time.Minute),
		},
		Bootstrap: BootstrapConfig{
			AccountName:    os.Getenv("BOOTSTRAP_ACCOUNT_NAME"),
			MagayaURL:      os.Getenv("BOOTSTRAP_MAGAYA_URL"),
			NetworkID:      os.Getenv("BOOTSTRAP_NETWORK_ID"),
			MagayaUser:     os.Getenv("BOOTSTRAP_MAGAYA_USER"),
			MagayaPass:     os.Getenv("BOOTSTRAP_MAGAYA_PASS"),
			LaFacturaUser:  os.Getenv("BOOTSTRAP_LAFACTURA_USER"),
			LaFacturaPass:  os.Getenv("BOOTSTRAP_LAFACTURA_PASS"),
			OperatorEmail:  os.Getenv("BOOTSTRAP_OPERATOR_EMAIL"),
			OperatorSecret: os.Getenv("BOOTSTRAP_OPERATOR_PASSWORD"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
