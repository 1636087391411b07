package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/infrastructure/persistence/sqlite"
)

// SupplierRepository implements port.SupplierRepository
type SupplierRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSupplierRepository creates a new supplier repository
func NewSupplierRepository(db *sql.DB, logger *zap.Logger) port.SupplierRepository {
	return &SupplierRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a supplier
func (r *SupplierRepository) Create(ctx context.Context, s *entity.Supplier) error {
	query := `
		INSERT INTO suppliers (
			id, name, contact, email, phone, verified, purchase_count, total_spent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Contact,
		s.Email,
		s.Phone,
		s.Verified,
		s.PurchaseCount,
		s.TotalSpent.String(),
	)
	if err != nil {
		r.logger.Error("Failed to create supplier", zap.String("supplier_id", s.ID), zap.Error(err))
		return fmt.Errorf("failed to create supplier: %w", err)
	}
	return nil
}

// List returns suppliers in insertion order
func (r *SupplierRepository) List(ctx context.Context) ([]*entity.Supplier, error) {
	query := `
		SELECT id, name, contact, email, phone, verified, purchase_count, total_spent
		FROM suppliers
		ORDER BY rowid ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list suppliers", zap.Error(err))
		return nil, fmt.Errorf("failed to list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]*entity.Supplier, 0)
	for rows.Next() {
		var (
			s     entity.Supplier
			spent string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Email, &s.Phone, &s.Verified, &s.PurchaseCount, &spent); err != nil {
			return nil, fmt.Errorf("failed to scan supplier: %w", err)
		}
		if s.TotalSpent, err = decimal.NewFromString(spent); err != nil {
			return nil, fmt.Errorf("invalid total_spent for supplier %s: %w", s.ID, err)
		}
		suppliers = append(suppliers, &s)
	}
	return suppliers, rows.Err()
}

var _ port.SupplierRepository = (*SupplierRepository)(nil)
