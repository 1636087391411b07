package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/workdeck/spending/pkg/utils"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Workdeck WorkdeckConfig `mapstructure:"workdeck"`
	Store    StoreConfig    `mapstructure:"store"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration. An empty MigrationsDir uses the
// migrations embedded in the binary.
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// WorkdeckConfig holds the upstream API configuration. Without a base URL the
// service runs offline on the configured store user.
type WorkdeckConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	Token           string        `mapstructure:"token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      uint64        `mapstructure:"max_retries"`
	LoadTimeout     time.Duration `mapstructure:"load_timeout"`
	HistoryDays     int           `mapstructure:"history_days"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// Enabled reports whether reference data should be fetched from Workdeck
func (w WorkdeckConfig) Enabled() bool {
	return w.BaseURL != ""
}

// StoreConfig holds spending store configuration
type StoreConfig struct {
	DefaultCurrency string     `mapstructure:"default_currency"`
	SeedFile        string     `mapstructure:"seed_file"`
	User            UserConfig `mapstructure:"user"`
}

// UserConfig is the acting profile used when Workdeck is not configured
type UserConfig struct {
	ID              string   `mapstructure:"id"`
	Name            string   `mapstructure:"name"`
	IsManager       bool     `mapstructure:"is_manager"`
	IsExpenseAdmin  bool     `mapstructure:"is_expense_admin"`
	IsPurchaseAdmin bool     `mapstructure:"is_purchase_admin"`
	DirectReports   []string `mapstructure:"direct_reports"`
}

// StorageConfig holds receipt storage configuration
type StorageConfig struct {
	ReceiptsDir     string `mapstructure:"receipts_dir"`
	URLPrefix       string `mapstructure:"url_prefix"`
	MaxReceiptBytes int64  `mapstructure:"max_receipt_bytes"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables. A .env file
// next to the working directory is applied to the environment first.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.path", "data/spending.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "")

	// Workdeck defaults
	v.SetDefault("workdeck.timeout", 15*time.Second)
	v.SetDefault("workdeck.max_retries", 2)
	v.SetDefault("workdeck.load_timeout", 15*time.Second)
	v.SetDefault("workdeck.history_days", 365)
	v.SetDefault("workdeck.refresh_interval", 15*time.Minute)

	// Store defaults
	v.SetDefault("store.default_currency", "EUR")
	v.SetDefault("store.user.id", "anonymous")
	v.SetDefault("store.user.name", "Anonymous")

	// Storage defaults
	v.SetDefault("storage.receipts_dir", "data/receipts")
	v.SetDefault("storage.url_prefix", "/receipts")
	v.SetDefault("storage.max_receipt_bytes", 10<<20)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Upstream credentials come from the environment
	_ = v.BindEnv("workdeck.base_url", "WORKDECK_API_URL")
	_ = v.BindEnv("workdeck.token", "WORKDECK_TOKEN")
	_ = v.BindEnv("database.path", "SPENDING_DB_PATH")
	_ = v.BindEnv("server.port", "PORT")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Workdeck.Enabled() {
		if c.Workdeck.Token == "" {
			return fmt.Errorf("workdeck.token is required when workdeck.base_url is set")
		}
		if c.Workdeck.Timeout <= 0 {
			return fmt.Errorf("workdeck.timeout must be positive")
		}
	}
	if c.Workdeck.RefreshInterval < 0 {
		return fmt.Errorf("workdeck.refresh_interval must not be negative")
	}
	if c.Workdeck.HistoryDays < 0 {
		return fmt.Errorf("workdeck.history_days must not be negative")
	}

	if err := utils.ValidateCurrency(c.Store.DefaultCurrency); err != nil {
		return fmt.Errorf("store.default_currency: %w", err)
	}
	if !c.Workdeck.Enabled() && c.Store.User.ID == "" {
		return fmt.Errorf("store.user.id is required when workdeck is not configured")
	}

	if c.Storage.ReceiptsDir == "" {
		return fmt.Errorf("storage.receipts_dir is required")
	}
	if !strings.HasPrefix(c.Storage.URLPrefix, "/") {
		return fmt.Errorf("storage.url_prefix must start with /")
	}
	if c.Storage.MaxReceiptBytes <= 0 {
		return fmt.Errorf("storage.max_receipt_bytes must be positive")
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	return nil
}
