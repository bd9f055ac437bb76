package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBConnectionString string
	JWTSecret          string
	HTTPAddr           string
	LogLevel           string
	RecurrenceSchedule string
	CategoryRulesPath  string
	MaxImportBytes     int64
	AlertQueueSize     int
	SMTP               SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     string
	From     string
	Password string
}

// Enabled reports whether budget alert emails can be sent.
func (c SMTPConfig) Enabled() bool {
	return c.From != "" && c.Password != ""
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, continuing with system environment variables")
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBConnectionString: getenv("DB_CONNECTION_STRING"),
		JWTSecret:          getenv("JWT_SECRET"),
		HTTPAddr:           withDefault(getenv("HTTP_ADDR"), ":8080"),
		LogLevel:           withDefault(getenv("LOG_LEVEL"), "info"),
		RecurrenceSchedule: withDefault(getenv("RECURRENCE_SCHEDULE"), "@every 1h"),
		CategoryRulesPath:  getenv("CATEGORY_RULES_PATH"),
		SMTP: SMTPConfig{
			Host:     withDefault(getenv("SMTP_HOST"), "smtp.gmail.com"),
			Port:     withDefault(getenv("SMTP_PORT"), "587"),
			From:     getenv("EMAIL_ADDRESS"),
			Password: getenv("EMAIL_PASSWORD"),
		},
	}

	if cfg.DBConnectionString == "" {
		return nil, errors.New("no DB_CONNECTION_STRING Provided")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("no JWT_SECRET Provided")
	}

	maxImport, err := intWithDefault(getenv("MAX_IMPORT_BYTES"), 5<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_IMPORT_BYTES: %w", err)
	}
	cfg.MaxImportBytes = int64(maxImport)

	cfg.AlertQueueSize, err = intWithDefault(getenv("ALERT_QUEUE_SIZE"), 100)
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_QUEUE_SIZE: %w", err)
	}
	return cfg, nil
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func intWithDefault(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}
