package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "data/spending.db", cfg.Database.Path)
	assert.Empty(t, cfg.Database.MigrationsDir)
	assert.Equal(t, "EUR", cfg.Store.DefaultCurrency)
	assert.Equal(t, "anonymous", cfg.Store.User.ID)
	assert.Equal(t, 15*time.Second, cfg.Workdeck.LoadTimeout)
	assert.Equal(t, 365, cfg.Workdeck.HistoryDays)
	assert.Equal(t, 15*time.Minute, cfg.Workdeck.RefreshInterval)
	assert.Equal(t, int64(10<<20), cfg.Storage.MaxReceiptBytes)
	assert.False(t, cfg.Workdeck.Enabled())
}

func TestLoadFileAndEnvironment(t *testing.T) {
	t.Setenv("WORKDECK_API_URL", "https://api.workdeck.test")
	t.Setenv("WORKDECK_TOKEN", "secret")

	cfg, err := Load(writeConfig(t, `
workdeck:
  timeout: 5s
  max_retries: 4
  history_days: 30
store:
  default_currency: GBP
  seed_file: configs/seed.json
  user:
    id: mgr-1
    is_manager: true
    direct_reports: [emp-1, emp-2]
logger:
  format: console
`))
	require.NoError(t, err)

	assert.True(t, cfg.Workdeck.Enabled())
	assert.Equal(t, "https://api.workdeck.test", cfg.Workdeck.BaseURL)
	assert.Equal(t, "secret", cfg.Workdeck.Token)
	assert.Equal(t, 5*time.Second, cfg.Workdeck.Timeout)
	assert.Equal(t, uint64(4), cfg.Workdeck.MaxRetries)
	assert.Equal(t, 30, cfg.Workdeck.HistoryDays)
	assert.Equal(t, "GBP", cfg.Store.DefaultCurrency)
	assert.Equal(t, []string{"emp-1", "emp-2"}, cfg.Store.User.DirectReports)

	cc := cfg.ToContainerConfig()
	assert.Equal(t, "mgr-1", cc.Store.User.ID)
	assert.True(t, cc.Store.User.IsManager)
	assert.Equal(t, "configs/seed.json", cc.Store.SeedFile)
	assert.Equal(t, "secret", cc.Workdeck.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Path: "data/spending.db"},
			Workdeck: WorkdeckConfig{Timeout: time.Second},
			Store:    StoreConfig{DefaultCurrency: "EUR", User: UserConfig{ID: "emp-1"}},
			Storage:  StorageConfig{ReceiptsDir: "data/receipts", URLPrefix: "/receipts", MaxReceiptBytes: 1024},
			Logger:   LoggerConfig{Format: "json"},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }},
		{"missing database path", func(c *Config) { c.Database.Path = "" }},
		{"workdeck without token", func(c *Config) { c.Workdeck.BaseURL = "https://api.workdeck.test" }},
		{"negative history window", func(c *Config) { c.Workdeck.HistoryDays = -1 }},
		{"negative refresh interval", func(c *Config) { c.Workdeck.RefreshInterval = -time.Second }},
		{"lower-case currency", func(c *Config) { c.Store.DefaultCurrency = "eur" }},
		{"offline without user", func(c *Config) { c.Store.User.ID = "" }},
		{"relative url prefix", func(c *Config) { c.Storage.URLPrefix = "receipts" }},
		{"zero receipt size", func(c *Config) { c.Storage.MaxReceiptBytes = 0 }},
		{"unknown log format", func(c *Config) { c.Logger.Format = "xml" }},
	}

	require.NoError(t, valid().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SPENDING_DOTENV_PROBE=from-file\n"), 0644))
	t.Setenv("SPENDING_DOTENV_PROBE", "")
	require.NoError(t, os.Unsetenv("SPENDING_DOTENV_PROBE"))

	require.NoError(t, loadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("SPENDING_DOTENV_PROBE"))

	assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}
