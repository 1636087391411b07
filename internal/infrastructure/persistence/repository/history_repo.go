package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record and sets its ID
func (r *HistoryRepository) Create(ctx context.Context, change *entity.StatusChange) error {
	query := `
		INSERT INTO status_history (
			request_id, from_status, to_status, action, actor_id, comment, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db).ExecContext(ctx, query,
		change.RequestID,
		string(change.FromStatus),
		string(change.ToStatus),
		change.Action,
		change.ActorID,
		change.Comment,
		change.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("request_id", change.RequestID), zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	change.ID = id
	return nil
}

// GetByRequestID retrieves all history records for a request, oldest first
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID string) ([]*entity.StatusChange, error) {
	query := `
		SELECT id, request_id, from_status, to_status, action, actor_id, comment, created_at
		FROM status_history
		WHERE request_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history by request ID", zap.String("request_id", requestID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	records := make([]*entity.StatusChange, 0)
	for rows.Next() {
		var record entity.StatusChange
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.FromStatus,
			&record.ToStatus,
			&record.Action,
			&record.ActorID,
			&record.Comment,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
