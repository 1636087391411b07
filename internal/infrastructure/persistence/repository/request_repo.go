package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/infrastructure/persistence/sqlite"
)

// ErrNotFound is returned when a row does not exist
var ErrNotFound = errors.New("record not found")

// RequestRepository implements port.RequestRepository.
// Each request is one JSON document plus the columns used for lookups.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

// Save inserts the request or replaces the stored snapshot
func (r *RequestRepository) Save(ctx context.Context, req *entity.SpendingRequest) error {
	doc, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode request %s: %w", req.ID, err)
	}

	query := `
		INSERT INTO spending_requests (
			id, type, reference_number, user_id, status, source, version,
			document, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			reference_number = excluded.reference_number,
			status = excluded.status,
			version = excluded.version,
			document = excluded.document,
			updated_at = excluded.updated_at
	`

	_, err = sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		req.ID,
		string(req.Type),
		req.ReferenceNumber,
		req.UserID,
		string(req.Status),
		req.Source,
		req.Version,
		string(doc),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save request", zap.String("request_id", req.ID), zap.Error(err))
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// Delete removes the request. Deleting a missing request is not an error.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	_, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, "DELETE FROM spending_requests WHERE id = ?", id)
	if err != nil {
		r.logger.Error("Failed to delete request", zap.String("request_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete request: %w", err)
	}
	return nil
}

// GetByID loads one request
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*entity.SpendingRequest, error) {
	var doc string
	err := sqlite.ExecutorFrom(ctx, r.db).
		QueryRowContext(ctx, "SELECT document FROM spending_requests WHERE id = ?", id).
		Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return decodeRequest(doc)
}

// List returns every stored request, newest first
func (r *RequestRepository) List(ctx context.Context) ([]*entity.SpendingRequest, error) {
	query := `
		SELECT document FROM spending_requests
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*entity.SpendingRequest, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		req, err := decodeRequest(doc)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

func decodeRequest(doc string) (*entity.SpendingRequest, error) {
	var req entity.SpendingRequest
	if err := json.Unmarshal([]byte(doc), &req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	if req.LineItems == nil {
		req.LineItems = []entity.SpendingLineItem{}
	}
	if req.Currencies == nil {
		req.Currencies = []string{}
	}
	return &req, nil
}

var _ port.RequestRepository = (*RequestRepository)(nil)
