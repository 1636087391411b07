package container

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/dispatcher"
	"github.com/workdeck/spending/internal/application/normalizer"
	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/application/reference"
	"github.com/workdeck/spending/internal/application/service"
	"github.com/workdeck/spending/internal/application/workflow"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/domain/event"
	"github.com/workdeck/spending/internal/infrastructure/export"
	"github.com/workdeck/spending/internal/infrastructure/external/workdeck"
	"github.com/workdeck/spending/internal/infrastructure/persistence/repository"
	"github.com/workdeck/spending/internal/infrastructure/persistence/sqlite"
	"github.com/workdeck/spending/internal/infrastructure/storage"
	"github.com/workdeck/spending/migrations"
	"github.com/workdeck/spending/pkg/database"
	"github.com/workdeck/spending/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the database, runs pending migrations and wraps it in a
// transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	var source fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		source = os.DirFS(cfg.MigrationsDir)
	}
	if err := database.NewMigrator(db, logger).RunMigrations(source); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Request:  repository.NewRequestRepository(db.DB, logger),
		Supplier: repository.NewSupplierRepository(db.DB, logger),
		History:  repository.NewHistoryRepository(db.DB, logger),
	}, nil
}

// ProvideReceiptStorage creates the receipts directory and a local storage rooted there.
func ProvideReceiptStorage(cfg *StorageConfig, logger *zap.Logger) (*storage.LocalReceiptStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if err := os.MkdirAll(cfg.ReceiptsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create receipts dir: %w", err)
	}
	return storage.NewLocalReceiptStorage(cfg.ReceiptsDir, cfg.URLPrefix, logger), nil
}

// ProvideExporter creates the spreadsheet exporter.
func ProvideExporter(logger *zap.Logger) *export.ExcelExporter {
	return export.NewExcelExporter(logger)
}

// ProvideWorkdeckClient returns nil when no base URL is configured.
func ProvideWorkdeckClient(cfg *WorkdeckConfig, logger *zap.Logger) port.WorkdeckClient {
	if cfg == nil || cfg.BaseURL == "" {
		return nil
	}
	return workdeck.NewClient(workdeck.Config{
		BaseURL:    cfg.BaseURL,
		Token:      cfg.Token,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)
}

// ProvideLoader wires the reference loader with its own normalizer.
func ProvideLoader(client port.WorkdeckClient, cfg *WorkdeckConfig, currency string, logger *zap.Logger) *reference.Loader {
	slim := utils.NewSugaredAdapter(logger)
	n := normalizer.New(currency, slim)
	return reference.NewLoader(client, n, reference.Config{
		Timeout:     cfg.LoadTimeout,
		HistoryDays: cfg.HistoryDays,
	}, slim)
}

// ProvideDispatcher creates the store's change dispatcher.
func ProvideDispatcher(logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewSugaredAdapter(logger)))
}

// ProvideWorkflowEngine creates the lifecycle engine.
func ProvideWorkflowEngine(logger *zap.Logger) workflow.Engine {
	return workflow.NewEngine(workflow.WithLogger(utils.NewSugaredAdapter(logger)))
}

// StoreDeps groups the dependencies of the spending store.
type StoreDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Receipts   port.ReceiptStorage
	Dispatcher dispatcher.Dispatcher
	Engine     workflow.Engine
	Config     *StoreConfig
	Logger     *zap.Logger
}

// ProvideStore creates the spending store and subscribes the change log.
func ProvideStore(deps *StoreDeps) (service.SpendingStore, error) {
	if deps == nil || deps.Config == nil || deps.Logger == nil {
		return nil, fmt.Errorf("store dependencies are incomplete")
	}

	opts := []service.StoreOption{
		service.WithDispatcher(deps.Dispatcher),
		service.WithEngine(deps.Engine),
		service.WithDefaultCurrency(deps.Config.DefaultCurrency),
		service.WithCurrentUser(deps.Config.User),
	}
	if deps.Repos != nil {
		opts = append(opts,
			service.WithRequestRepository(deps.Repos.Request),
			service.WithSupplierRepository(deps.Repos.Supplier),
			service.WithHistoryRepository(deps.Repos.History),
		)
	}
	if deps.TxManager != nil {
		opts = append(opts, service.WithTransactionManager(deps.TxManager))
	}
	if deps.Receipts != nil {
		opts = append(opts, service.WithReceiptStorage(deps.Receipts))
	}

	store := service.NewSpendingStore(utils.NewSugaredAdapter(deps.Logger), opts...)
	store.Subscribe(changeLog(deps.Logger))
	return store, nil
}

// changeLog writes one debug line per store change
func changeLog(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		logger.Debug("Store changed",
			zap.String("event_type", string(evt.Type)),
			zap.String("request_id", evt.RequestID),
			zap.String("actor_id", evt.ActorID),
			zap.String("correlation_id", evt.CorrelationID))
		return nil
	}
}

// Seed is the fixture file format: suppliers and requests imported on start.
type Seed struct {
	Suppliers []*entity.Supplier        `json:"suppliers"`
	Requests  []*entity.SpendingRequest `json:"requests"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &seed, nil
}
