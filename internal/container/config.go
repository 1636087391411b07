// Package container provides dependency injection and lifecycle management
// for the spending request service.
package container

import (
	"fmt"
	"time"

	"github.com/workdeck/spending/internal/domain/entity"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Workdeck API configuration
	Workdeck WorkdeckConfig

	// Store configuration
	Store StoreConfig

	// Storage configuration
	Storage StorageConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file, or database.MemoryPath
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// MigrationsDir overrides the embedded migrations when set
	MigrationsDir string
}

// WorkdeckConfig holds upstream API settings. An empty BaseURL disables loading.
type WorkdeckConfig struct {
	BaseURL     string
	Token       string
	Timeout     time.Duration
	MaxRetries  uint64
	LoadTimeout time.Duration
	HistoryDays int

	// RefreshInterval reloads Workdeck data periodically; zero disables it
	RefreshInterval time.Duration
}

// StoreConfig holds spending store settings.
type StoreConfig struct {
	// DefaultCurrency applies to line items without a currency
	DefaultCurrency string

	// SeedFile is an optional JSON file of suppliers and requests imported on start
	SeedFile string

	// User acts on the store until Workdeck reports the real current user
	User entity.CurrentUser
}

// StorageConfig holds receipt storage settings.
type StorageConfig struct {
	ReceiptsDir string
	URLPrefix   string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/spending.db",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Workdeck: WorkdeckConfig{
			Timeout:         15 * time.Second,
			MaxRetries:      2,
			LoadTimeout:     15 * time.Second,
			HistoryDays:     365,
			RefreshInterval: 15 * time.Minute,
		},
		Store: StoreConfig{
			DefaultCurrency: entity.DefaultCurrency,
			User:            entity.AnonymousUser(),
		},
		Storage: StorageConfig{
			ReceiptsDir: "data/receipts",
			URLPrefix:   "/receipts",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Workdeck.BaseURL != "" && c.Workdeck.Token == "" {
		return fmt.Errorf("workdeck.token is required")
	}

	if c.Storage.ReceiptsDir == "" {
		return fmt.Errorf("storage.receipts_dir is required")
	}

	return nil
}
