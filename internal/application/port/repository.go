package port

import (
	"context"

	"github.com/workdeck/spending/internal/domain/entity"
)

// RequestRepository persists spending request snapshots
type RequestRepository interface {
	Save(ctx context.Context, req *entity.SpendingRequest) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*entity.SpendingRequest, error)
	List(ctx context.Context) ([]*entity.SpendingRequest, error)
}

// SupplierRepository persists suppliers
type SupplierRepository interface {
	Create(ctx context.Context, supplier *entity.Supplier) error
	List(ctx context.Context) ([]*entity.Supplier, error)
}

// HistoryRepository records lifecycle transitions
type HistoryRepository interface {
	Create(ctx context.Context, change *entity.StatusChange) error
	GetByRequestID(ctx context.Context, requestID string) ([]*entity.StatusChange, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
