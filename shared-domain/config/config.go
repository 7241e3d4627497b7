package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvDuration accepts Go duration strings ("5s", "250ms").
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func GetEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// NewDatabaseConfig reads DB_* variables; defaultName is the service's own database.
func NewDatabaseConfig(defaultName string) DatabaseConfig {
	return DatabaseConfig{
		Host:         GetEnvOrDefault("DB_HOST", "localhost"),
		Port:         GetEnvOrDefault("DB_PORT", "5432"),
		User:         GetEnvOrDefault("DB_USER", "postgres"),
		Password:     GetEnvOrDefault("DB_PASSWORD", "postgres"),
		Name:         GetEnvOrDefault("DB_NAME", defaultName),
		SSLMode:      GetEnvOrDefault("DB_SSLMODE", "disable"),
		MaxOpenConns: GetEnvInt("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns: GetEnvInt("DB_MAX_IDLE_CONNS", 5),
	}
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}
