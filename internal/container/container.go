package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/dispatcher"
	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/application/reference"
	"github.com/workdeck/spending/internal/application/service"
	"github.com/workdeck/spending/internal/application/workflow"
	"github.com/workdeck/spending/internal/infrastructure/export"
	"github.com/workdeck/spending/internal/infrastructure/persistence/sqlite"
	"github.com/workdeck/spending/internal/infrastructure/storage"
	"github.com/workdeck/spending/internal/infrastructure/worker"
	"github.com/workdeck/spending/pkg/database"
)

// Container manages all application dependencies and lifecycle.
// Components are initialized in dependency order and torn down in reverse.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	db           *database.DB
	txManager    *sqlite.DB
	repositories *RepositoryBundle

	// Infrastructure - Files
	receipts *storage.LocalReceiptStorage
	exporter *export.ExcelExporter

	// Infrastructure - External
	workdeck port.WorkdeckClient
	loader   *reference.Loader

	// Application
	dispatcher dispatcher.Dispatcher
	engine     workflow.Engine
	store      service.SpendingStore

	// Workers
	workers *worker.WorkerManager

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Request  port.RequestRepository
	Supplier port.SupplierRepository
	History  port.HistoryRepository
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components and loads the store:
// 1. Database, migrations and repositories
// 2. Receipt storage and exporter
// 3. Workdeck client
// 4. Dispatcher, workflow engine and store
// 5. Persisted state, seed fixtures and Workdeck reference data
// 6. Background refresh of Workdeck data
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	if err := c.initFiles(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage initialized")

	c.workdeck = ProvideWorkdeckClient(&c.config.Workdeck, c.logger)
	if c.workdeck != nil {
		c.loader = ProvideLoader(c.workdeck, &c.config.Workdeck, c.config.Store.DefaultCurrency, c.logger)
	}
	c.logger.Info("External clients initialized", zap.Bool("workdeck", c.workdeck != nil))

	if err := c.initStore(); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	c.logger.Info("Spending store initialized")

	if err := c.loadStore(ctx); err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	if err := c.initWorkers(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")

	var errs []error

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			c.logger.Error("Failed to stop workers", zap.Error(err))
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		} else {
			c.logger.Info("Workers stopped")
		}
	}

	if c.dispatcher != nil {
		if err := c.dispatcher.Close(); err != nil {
			c.logger.Error("Failed to close dispatcher", zap.Error(err))
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		} else {
			c.logger.Info("Dispatcher closed")
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		} else {
			c.logger.Info("Database closed")
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health returns health status of all components.
func (c *Container) Health() *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}

	switch {
	case c.db == nil:
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	case c.db.Ping() != nil:
		status.Components["database"] = ComponentHealth{Healthy: false, Message: "ping failed"}
		status.Overall = false
	default:
		status.Components["database"] = ComponentHealth{Healthy: true}
	}

	if c.store != nil {
		status.Components["store"] = ComponentHealth{Healthy: true}
	} else {
		status.Components["store"] = ComponentHealth{Healthy: false, Message: "not initialized"}
		status.Overall = false
	}

	if c.workdeck != nil {
		status.Components["workdeck"] = ComponentHealth{Healthy: true}
		if c.workers != nil && c.workers.GetWorkerCount() > 0 && !c.workers.IsRunning() {
			status.Components["workdeck"] = ComponentHealth{Healthy: false, Message: "refresh stopped"}
			status.Overall = false
		}
	} else {
		status.Components["workdeck"] = ComponentHealth{Healthy: true, Message: "offline"}
	}

	return status
}

// initDatabase opens the database and creates all repositories.
func (c *Container) initDatabase() error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.db = bundle.DB
	c.txManager = bundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		_ = c.db.Close()
		return err
	}
	c.repositories = repos
	return nil
}

// initFiles sets up receipt storage and the exporter.
func (c *Container) initFiles() error {
	receipts, err := ProvideReceiptStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.receipts = receipts
	c.exporter = ProvideExporter(c.logger)
	return nil
}

// initStore creates the dispatcher, engine and store.
func (c *Container) initStore() error {
	c.dispatcher = ProvideDispatcher(c.logger)
	c.engine = ProvideWorkflowEngine(c.logger)

	store, err := ProvideStore(&StoreDeps{
		Repos:      c.repositories,
		TxManager:  c.txManager,
		Receipts:   c.receipts,
		Dispatcher: c.dispatcher,
		Engine:     c.engine,
		Config:     &c.config.Store,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}
	c.store = store
	return nil
}

// loadStore restores persisted requests, imports the seed file and, when
// Workdeck is configured, hydrates reference data and upstream history.
func (c *Container) loadStore(ctx context.Context) error {
	if err := c.store.Restore(ctx); err != nil {
		return err
	}

	if path := c.config.Store.SeedFile; path != "" {
		seed, err := LoadSeed(path)
		if err != nil {
			return err
		}
		n := c.store.Import(ctx, seed.Requests, seed.Suppliers)
		c.logger.Info("Seed imported", zap.String("path", path), zap.Int("requests", n))
	}

	if c.loader != nil {
		snap := c.loader.Load(ctx)
		c.store.Hydrate(ctx, snap)
		if len(snap.Failed) > 0 {
			c.logger.Warn("Workdeck sources failed", zap.Strings("sources", snap.Failed))
		}
	}
	return nil
}

// initWorkers starts the Workdeck refresh when it is configured.
func (c *Container) initWorkers(ctx context.Context) error {
	c.workers = worker.NewWorkerManager(c.logger)
	if c.loader == nil || c.config.Workdeck.RefreshInterval <= 0 {
		return nil
	}
	c.workers.Register(worker.NewRefreshWorker(c.config.Workdeck.RefreshInterval, c.loader, c.store, c.logger))
	// runs until Close, not until the caller cancels ctx
	return c.workers.StartAll(context.WithoutCancel(ctx))
}

// Getters for accessing container components

// Store returns the spending store.
func (c *Container) Store() service.SpendingStore {
	return c.store
}

// Receipts returns the receipt storage.
func (c *Container) Receipts() port.ReceiptStorage {
	return c.receipts
}

// Exporter returns the spreadsheet exporter.
func (c *Container) Exporter() *export.ExcelExporter {
	return c.exporter
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.txManager
}

// Workers returns the worker manager.
func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}
