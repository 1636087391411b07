package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/infrastructure/persistence/sqlite"
	"github.com/workdeck/spending/migrations"
	"github.com/workdeck/spending/pkg/database"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.Config{Path: database.MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.NewMigrator(db, zap.NewNop()).RunMigrations(migrations.FS))
	return db.DB
}

func sampleRequest(id string, created time.Time) *entity.SpendingRequest {
	qty := decimal.NewFromInt(2)
	price := decimal.RequireFromString("19.95")
	po := "PO-7731"
	return &entity.SpendingRequest{
		ID:              id,
		Type:            entity.SpendingTypePurchase,
		ReferenceNumber: "PUR-2025-0001",
		UserID:          "emp-1",
		Status:          entity.StatusOrdered,
		Source:          entity.SourceLocal,
		Version:         3,
		Purpose:         "Keyboards",
		LineItems: []entity.SpendingLineItem{
			{ID: "item-1", Description: "Keyboard", Amount: qty.Mul(price), Currency: "EUR", Quantity: &qty, UnitPrice: &price},
		},
		Subtotal:   decimal.RequireFromString("39.90"),
		TotalVat:   decimal.Zero,
		Total:      decimal.RequireFromString("39.90"),
		Currencies: []string{"EUR"},
		PONumber:   &po,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func TestRequestRepository_SaveAndLoad(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	created := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	req := sampleRequest("pur-1", created)
	require.NoError(t, repo.Save(ctx, req))

	got, err := repo.GetByID(ctx, "pur-1")
	require.NoError(t, err)
	assert.Equal(t, req.ReferenceNumber, got.ReferenceNumber)
	assert.Equal(t, entity.StatusOrdered, got.Status)
	assert.Equal(t, "PO-7731", *got.PONumber)
	require.Len(t, got.LineItems, 1)
	assert.True(t, got.LineItems[0].UnitPrice.Equal(decimal.RequireFromString("19.95")))
	assert.True(t, got.Total.Equal(req.Total))

	req.Status = entity.StatusReceived
	req.Version = 4
	require.NoError(t, repo.Save(ctx, req))
	got, err = repo.GetByID(ctx, "pur-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusReceived, got.Status)
	assert.Equal(t, int64(4), got.Version)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRequestRepository_ListNewestFirstAndDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewRequestRepository(db, zap.NewNop())
	ctx := context.Background()

	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, sampleRequest("pur-old", base)))
	require.NoError(t, repo.Save(ctx, sampleRequest("pur-new", base.Add(time.Hour))))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "pur-new", list[0].ID)

	require.NoError(t, repo.Delete(ctx, "pur-new"))
	require.NoError(t, repo.Delete(ctx, "pur-new"))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSupplierRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewSupplierRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Supplier{ID: "sup-1", Name: "Amazon AWS", Verified: true, PurchaseCount: 12, TotalSpent: decimal.RequireFromString("15420.50")}))
	require.NoError(t, repo.Create(ctx, &entity.Supplier{ID: "sup-2", Name: "OfficeDepot", TotalSpent: decimal.Zero}))
	assert.Error(t, repo.Create(ctx, &entity.Supplier{ID: "sup-1", Name: "dup"}))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Amazon AWS", list[0].Name)
	assert.True(t, list[0].Verified)
	assert.Equal(t, 12, list[0].PurchaseCount)
	assert.True(t, list[0].TotalSpent.Equal(decimal.RequireFromString("15420.50")))
}

func TestHistoryRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewHistoryRepository(db, zap.NewNop())
	ctx := context.Background()

	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	first := &entity.StatusChange{RequestID: "exp-1", FromStatus: entity.StatusDraft, ToStatus: entity.StatusPending, Action: "SUBMIT", ActorID: "emp-1", Timestamp: at}
	second := &entity.StatusChange{RequestID: "exp-1", FromStatus: entity.StatusPending, ToStatus: entity.StatusDenied, Action: "DENY", ActorID: "mgr-1", Comment: "missing receipt", Timestamp: at.Add(time.Minute)}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))
	assert.NotZero(t, first.ID)

	records, err := repo.GetByRequestID(ctx, "exp-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SUBMIT", records[0].Action)
	assert.Equal(t, entity.StatusDenied, records[1].ToStatus)
	assert.Equal(t, "missing receipt", records[1].Comment)
	assert.True(t, records[1].Timestamp.Equal(at.Add(time.Minute)))

	records, err = repo.GetByRequestID(ctx, "exp-2")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTransactionRollback(t *testing.T) {
	db := setupDB(t)
	tm := sqlite.NewDB(db, zap.NewNop())
	requests := NewRequestRepository(db, zap.NewNop())
	history := NewHistoryRepository(db, zap.NewNop())
	ctx := context.Background()

	boom := errors.New("boom")
	err := tm.WithTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, requests.Save(txCtx, sampleRequest("pur-tx", time.Now())))
		require.NoError(t, history.Create(txCtx, &entity.StatusChange{RequestID: "pur-tx", Action: "SUBMIT", Timestamp: time.Now()}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = requests.GetByID(ctx, "pur-tx")
	assert.ErrorIs(t, err, ErrNotFound)
	records, err := history.GetByRequestID(ctx, "pur-tx")
	require.NoError(t, err)
	assert.Empty(t, records)

	err = tm.WithTransaction(ctx, func(txCtx context.Context) error {
		return requests.Save(txCtx, sampleRequest("pur-tx", time.Now()))
	})
	require.NoError(t, err)
	_, err = requests.GetByID(ctx, "pur-tx")
	assert.NoError(t, err)
}
