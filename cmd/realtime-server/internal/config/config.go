// Package config provides configuration management for the realtime standalone
// server. It loads settings from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the realtime server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cluster  ClusterConfig
	Broker   BrokerConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds archive database configuration. An empty driver keeps
// the ack-message archive in memory.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3, or empty for in-memory
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "realtime_")
}

// ClusterConfig holds cluster bus configuration. An empty URL runs the broker
// in local-only mode.
type ClusterConfig struct {
	NATSURL string
}

// BrokerConfig holds broker timing configuration, in seconds.
type BrokerConfig struct {
	HeartbeatInterval    int // Seconds between heartbeat sweeps
	HeartbeatTimeout     int // Seconds of silence before eviction
	ArchiveTTL           int // Seconds ack-required messages stay retrievable
	ArchivePurgeInterval int // Seconds between archive purges
}

// Load loads configuration from environment variables.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "realtime"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "realtime"),
			Prefix:   getEnv("DB_PREFIX", "realtime_"),
		},
		Cluster: ClusterConfig{
			NATSURL: getEnv("NATS_URL", ""),
		},
		Broker: BrokerConfig{
			HeartbeatInterval:    getEnvInt("HEARTBEAT_INTERVAL", 30),
			HeartbeatTimeout:     getEnvInt("HEARTBEAT_TIMEOUT", 120),
			ArchiveTTL:           getEnvInt("ARCHIVE_TTL", 3600),
			ArchivePurgeInterval: getEnvInt("ARCHIVE_PURGE_INTERVAL", 300),
		},
	}

	// Validate required fields
	if cfg.Database.Driver != "" && cfg.Database.Driver != "sqlite3" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD environment variable is required for driver %s", cfg.Database.Driver)
	}

	return cfg, nil
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
