// Package container wires repositories, the approval state machine and the
// application services, and owns their lifecycle.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database   DatabaseConfig
	Auth       AuthConfig
	Catalog    CatalogConfig
	Dispatcher DispatcherConfig
	Metrics    MetricsConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// CatalogConfig locates the category definitions.
type CatalogConfig struct {
	// Path to a YAML file; empty uses the built-in categories
	Path string
}

// DispatcherConfig holds event dispatcher settings.
type DispatcherConfig struct {
	AsyncTimeout time.Duration
}

// MetricsConfig toggles Prometheus collection.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns a Config with sensible defaults. JWTSecret must
// still be provided.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/assets.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Dispatcher: DispatcherConfig{
			AsyncTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	return nil
}
