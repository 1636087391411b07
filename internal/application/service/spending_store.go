package service

import (
	"context"
	"sync"
	"time"

	"github.com/workdeck/spending/internal/application/dispatcher"
	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/application/reference"
	"github.com/workdeck/spending/internal/application/workflow"
	"github.com/workdeck/spending/internal/domain/entity"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// SpendingStore is the source of truth for spending requests, suppliers and reference data.
// Every mutation is atomic and notifies subscribers after it commits. Reads return copies.
type SpendingStore interface {
	// Requests
	CreateRequest(ctx context.Context, t entity.SpendingType) (*entity.SpendingRequest, error)
	UpdateRequest(ctx context.Context, id string, update RequestUpdate, opts ...MutationOption) (*entity.SpendingRequest, error)
	DeleteRequest(ctx context.Context, id string, opts ...MutationOption) error
	GetRequest(ctx context.Context, id string) (*entity.SpendingRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) []*entity.SpendingRequest

	// Lifecycle
	SubmitRequest(ctx context.Context, id string, opts ...MutationOption) (*entity.SpendingRequest, error)
	ApproveRequest(ctx context.Context, id string, cmd workflow.ApproveCommand, opts ...MutationOption) (*entity.SpendingRequest, error)
	DenyRequest(ctx context.Context, id string, cmd workflow.DenyCommand, opts ...MutationOption) (*entity.SpendingRequest, error)
	StartProcessing(ctx context.Context, id string, opts ...MutationOption) (*entity.SpendingRequest, error)
	MarkAsOrdered(ctx context.Context, id string, cmd workflow.MarkOrderedCommand, opts ...MutationOption) (*entity.SpendingRequest, error)
	MarkAsReceived(ctx context.Context, id string, cmd workflow.MarkReceivedCommand, opts ...MutationOption) (*entity.SpendingRequest, error)
	MarkAsFinalized(ctx context.Context, id string, cmd workflow.MarkFinalizedCommand, opts ...MutationOption) (*entity.SpendingRequest, error)
	ReopenRequest(ctx context.Context, id string, opts ...MutationOption) (*entity.SpendingRequest, error)
	BulkApprove(ctx context.Context, ids []string, cmd workflow.ApproveCommand) BulkResult
	History(ctx context.Context, id string) ([]entity.StatusChange, error)
	// AllowedActions lists the lifecycle triggers the acting user may fire on the request now
	AllowedActions(ctx context.Context, id string) ([]domainwf.Trigger, error)

	// Line items
	AddLineItem(ctx context.Context, requestID string, item LineItemInput, opts ...MutationOption) (*entity.SpendingRequest, error)
	UpdateLineItem(ctx context.Context, requestID, itemID string, update LineItemUpdate, opts ...MutationOption) (*entity.SpendingRequest, error)
	DeleteLineItem(ctx context.Context, requestID, itemID string, opts ...MutationOption) (*entity.SpendingRequest, error)
	AttachReceipt(ctx context.Context, requestID, itemID, filename string, content []byte, opts ...MutationOption) (*entity.SpendingRequest, error)

	// Suppliers
	AddSupplier(ctx context.Context, in SupplierInput) (*entity.Supplier, error)
	Suppliers(ctx context.Context) []entity.Supplier

	// Views
	PendingApprovals(ctx context.Context) []*entity.SpendingRequest
	ProcessingQueue(ctx context.Context, t entity.SpendingType) ([]*entity.SpendingRequest, error)
	CurrentUser(ctx context.Context) entity.CurrentUser
	Reference(ctx context.Context) entity.ReferenceData

	// Loading
	Hydrate(ctx context.Context, snap *reference.Snapshot)
	Import(ctx context.Context, requests []*entity.SpendingRequest, suppliers []*entity.Supplier) int
	Restore(ctx context.Context) error

	// Subscribe registers a listener for every store change
	Subscribe(handler dispatcher.Handler) (unsubscribe func())
}

type storeImpl struct {
	mu          sync.RWMutex
	requests    []*entity.SpendingRequest
	index       map[string]*entity.SpendingRequest
	history     map[string][]entity.StatusChange
	suppliers   []*entity.Supplier
	reference   entity.ReferenceData
	currentUser entity.CurrentUser

	engine       workflow.Engine
	dispatcher   dispatcher.Dispatcher
	requestRepo  port.RequestRepository
	supplierRepo port.SupplierRepository
	historyRepo  port.HistoryRepository
	txManager    port.TransactionManager
	receipts     port.ReceiptStorage
	logger       Logger

	now             func() time.Time
	defaultCurrency string
}

// StoreOption configures the spending store
type StoreOption func(*storeImpl)

// WithDispatcher sets the dispatcher used to notify subscribers
func WithDispatcher(d dispatcher.Dispatcher) StoreOption {
	return func(s *storeImpl) { s.dispatcher = d }
}

// WithEngine replaces the lifecycle engine
func WithEngine(e workflow.Engine) StoreOption {
	return func(s *storeImpl) { s.engine = e }
}

// WithRequestRepository enables write-through persistence of requests
func WithRequestRepository(r port.RequestRepository) StoreOption {
	return func(s *storeImpl) { s.requestRepo = r }
}

// WithSupplierRepository enables write-through persistence of suppliers
func WithSupplierRepository(r port.SupplierRepository) StoreOption {
	return func(s *storeImpl) { s.supplierRepo = r }
}

// WithHistoryRepository records lifecycle transitions durably
func WithHistoryRepository(r port.HistoryRepository) StoreOption {
	return func(s *storeImpl) { s.historyRepo = r }
}

// WithTransactionManager groups the writes of one mutation in a transaction
func WithTransactionManager(tm port.TransactionManager) StoreOption {
	return func(s *storeImpl) { s.txManager = tm }
}

// WithReceiptStorage enables receipt uploads
func WithReceiptStorage(r port.ReceiptStorage) StoreOption {
	return func(s *storeImpl) { s.receipts = r }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) StoreOption {
	return func(s *storeImpl) { s.now = now }
}

// WithDefaultCurrency sets the currency applied to line items without one
func WithDefaultCurrency(code string) StoreOption {
	return func(s *storeImpl) {
		if code != "" {
			s.defaultCurrency = code
		}
	}
}

// WithCurrentUser sets the acting user before any load happens
func WithCurrentUser(u entity.CurrentUser) StoreOption {
	return func(s *storeImpl) { s.currentUser = u }
}

// NewSpendingStore creates an empty store acting as the anonymous user until hydrated
func NewSpendingStore(logger Logger, opts ...StoreOption) SpendingStore {
	s := &storeImpl{
		requests: make([]*entity.SpendingRequest, 0),
		index:    make(map[string]*entity.SpendingRequest),
		history:  make(map[string][]entity.StatusChange),
		reference: entity.ReferenceData{
			Users:      []entity.User{},
			Projects:   []entity.Project{},
			Activities: []entity.Activity{},
			Tasks:      []entity.Task{},
		},
		currentUser:     entity.AnonymousUser(),
		logger:          logger,
		now:             time.Now,
		defaultCurrency: entity.DefaultCurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = workflow.NewEngine(workflow.WithLogger(logger))
	}
	if s.dispatcher == nil {
		s.dispatcher = dispatcher.NewDispatcher(dispatcher.WithLogger(logger))
	}
	return s
}

type actorKey struct{}

// ContextWithActor makes a single call act as u instead of the store's current user
func ContextWithActor(ctx context.Context, u entity.CurrentUser) context.Context {
	return context.WithValue(ctx, actorKey{}, u)
}

// actor must be called with s.mu held
func (s *storeImpl) actor(ctx context.Context) entity.CurrentUser {
	if u, ok := ctx.Value(actorKey{}).(entity.CurrentUser); ok {
		return u
	}
	return s.currentUser
}

func (s *storeImpl) Subscribe(handler dispatcher.Handler) func() {
	return s.dispatcher.Subscribe(dispatcher.AllEvents, handler)
}

// inTx runs fn inside a transaction when a transaction manager is configured
func (s *storeImpl) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txManager == nil {
		return fn(ctx)
	}
	return s.txManager.WithTransaction(ctx, fn)
}
