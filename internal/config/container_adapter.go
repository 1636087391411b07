package config

import (
	"github.com/workdeck/spending/internal/container"
	"github.com/workdeck/spending/internal/domain/entity"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	reports := append([]string{}, c.Store.User.DirectReports...)
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Workdeck: container.WorkdeckConfig{
			BaseURL:         c.Workdeck.BaseURL,
			Token:           c.Workdeck.Token,
			Timeout:         c.Workdeck.Timeout,
			MaxRetries:      c.Workdeck.MaxRetries,
			LoadTimeout:     c.Workdeck.LoadTimeout,
			HistoryDays:     c.Workdeck.HistoryDays,
			RefreshInterval: c.Workdeck.RefreshInterval,
		},
		Store: container.StoreConfig{
			DefaultCurrency: c.Store.DefaultCurrency,
			SeedFile:        c.Store.SeedFile,
			User: entity.CurrentUser{
				ID:              c.Store.User.ID,
				Name:            c.Store.User.Name,
				IsManager:       c.Store.User.IsManager,
				IsExpenseAdmin:  c.Store.User.IsExpenseAdmin,
				IsPurchaseAdmin: c.Store.User.IsPurchaseAdmin,
				DirectReports:   reports,
			},
		},
		Storage: container.StorageConfig{
			ReceiptsDir: c.Storage.ReceiptsDir,
			URLPrefix:   c.Storage.URLPrefix,
		},
	}
}
