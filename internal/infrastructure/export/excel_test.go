package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/workdeck/spending/internal/domain/entity"
)

func TestWrite(t *testing.T) {
	submitted := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	qty := decimal.NewFromInt(3)
	price := decimal.RequireFromString("10.50")
	requests := []*entity.SpendingRequest{
		{
			ReferenceNumber: "PUR-2025-0001",
			Type:            entity.SpendingTypePurchase,
			Status:          entity.StatusPending,
			UserID:          "emp-1",
			Purpose:         "Cables",
			Subtotal:        decimal.RequireFromString("31.50"),
			TotalVat:        decimal.RequireFromString("6.62"),
			Total:           decimal.RequireFromString("38.12"),
			Currencies:      []string{"EUR"},
			SubmittedDate:   &submitted,
			LineItems: []entity.SpendingLineItem{
				{ID: "item-1", Description: "HDMI", Amount: decimal.RequireFromString("31.50"), Vat: decimal.RequireFromString("6.62"), Currency: "EUR", Quantity: &qty, UnitPrice: &price, Supplier: "TechSupplies Ltd"},
			},
		},
		{
			ReferenceNumber: "EXP-2025-0001",
			Type:            entity.SpendingTypeExpense,
			Status:          entity.StatusDraft,
			UserID:          "emp-2",
			Currencies:      []string{"EUR", "USD"},
			LineItems: []entity.SpendingLineItem{
				{ID: "item-2", Description: "Taxi", Amount: decimal.NewFromInt(20), Currency: "EUR", PaidBy: entity.PaidByEmployee},
				{ID: "item-3", Description: "Lunch", Amount: decimal.NewFromInt(15), Currency: "USD", PaidBy: entity.PaidByCompanyCard},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter(zap.NewNop()).Write(&buf, requests))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{RequestsSheet, LineItemsSheet}, f.GetSheetList())

	rows, err := f.GetRows(RequestsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Reference", rows[0][0])
	assert.Equal(t, "PUR-2025-0001", rows[1][0])
	assert.Equal(t, "Pending", rows[1][2])
	assert.Equal(t, "2025-03-02", rows[1][10])
	assert.Equal(t, "EUR, USD", rows[2][9])

	raw, err := f.GetCellValue(RequestsSheet, "I2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "38.12", raw)

	items, err := f.GetRows(LineItemsSheet)
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "item-1", items[1][1])
	assert.Equal(t, "TechSupplies Ltd", items[1][9])
	assert.Equal(t, "EXP-2025-0001", items[3][0])
	assert.Equal(t, entity.PaidByCompanyCard, items[3][10])
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelExporter(zap.NewNop()).Write(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(LineItemsSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
