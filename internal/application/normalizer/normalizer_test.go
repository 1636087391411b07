package normalizer

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
)

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, fmt.Sprint(append([]interface{}{msg}, keysAndValues...)...))
}

func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

var fixedNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newNormalizer(logger Logger) *Normalizer {
	return New("EUR", logger, WithClock(func() time.Time { return fixedNow }))
}

func sampleExpense() port.WorkdeckExpense {
	return port.WorkdeckExpense{
		ID:          "3f2a9c1be47d",
		Status:      1,
		Description: "Conference trip",
		Creator:     port.IDRef{ID: "user-7"},
		Project:     &port.NamedRef{ID: "proj-1", Name: "BIOGEMSE"},
		Amount:      "245.80",
		Currency:    port.WorkdeckCurrency{ID: "USD", Symbol: "$"},
		Category:    &port.NamedRef{Name: entity.CostTypeTravel},
		CreatedAt:   "2025-11-20T09:15:00Z",
		UpdatedAt:   "2025-11-21T10:00:00Z",
		Items: []port.WorkdeckExpenseItem{
			{ID: "i1", Description: "flight", Amount: "200.00", Date: "18/11/2025"},
			{ID: "i2", Description: "train", Amount: "45.80", Date: "19/11/2025"},
		},
	}
}

func TestNormalize_FullRecord(t *testing.T) {
	req := newNormalizer(&recordingLogger{}).Normalize(sampleExpense())

	assert.Equal(t, "3f2a9c1be47d", req.ID)
	assert.Equal(t, entity.SpendingTypeExpense, req.Type)
	assert.Equal(t, "EXP-WD-3F2A9C1B", req.ReferenceNumber)
	assert.Equal(t, entity.StatusApproved, req.Status)
	assert.Equal(t, entity.SourceWorkdeck, req.Source)
	assert.Equal(t, "user-7", req.UserID)
	assert.Equal(t, "proj-1", req.ProjectID)
	assert.Equal(t, "BIOGEMSE", req.Project)

	assert.True(t, req.Total.Equal(decimal.RequireFromString("245.80")))
	assert.True(t, req.Subtotal.Equal(req.Total))
	assert.True(t, req.TotalVat.IsZero())
	assert.Equal(t, []string{"USD"}, req.Currencies)

	require.Len(t, req.LineItems, 2)
	item := req.LineItems[0]
	assert.Equal(t, "i1", item.ID)
	assert.Equal(t, "USD", item.Currency)
	assert.Equal(t, entity.CostTypeTravel, item.CostType)
	assert.Equal(t, entity.PaidByEmployee, item.PaidBy)
	assert.Equal(t, "2025-11-18", item.Date)
	assert.True(t, item.Vat.IsZero())

	assert.Equal(t, time.Date(2025, 11, 20, 9, 15, 0, 0, time.UTC), req.CreatedAt)
}

func TestNormalize_StatusCodes(t *testing.T) {
	tests := []struct {
		code int
		want entity.Status
	}{
		{0, entity.StatusDraft},
		{1, entity.StatusApproved},
		{2, entity.StatusDenied},
		{3, entity.StatusDraft},
		{-1, entity.StatusDraft},
	}

	n := newNormalizer(&recordingLogger{})
	for _, tt := range tests {
		t.Run(fmt.Sprintf("code %d", tt.code), func(t *testing.T) {
			rec := sampleExpense()
			rec.Status = tt.code
			assert.Equal(t, tt.want, n.Normalize(rec).Status)
		})
	}
}

func TestNormalize_DefaultsSafely(t *testing.T) {
	logger := &recordingLogger{}
	rec := port.WorkdeckExpense{
		ID:       "ab",
		Amount:   "not-a-number",
		Currency: port.WorkdeckCurrency{Symbol: "£"},
		Items:    []port.WorkdeckExpenseItem{{Amount: "??", Date: "yesterday"}},
	}

	req := newNormalizer(logger).Normalize(rec)

	assert.Equal(t, "EXP-WD-AB", req.ReferenceNumber)
	assert.True(t, req.Total.IsZero())
	assert.Equal(t, []string{"£"}, req.Currencies)
	require.Len(t, req.LineItems, 1)
	assert.Equal(t, "ab-item-1", req.LineItems[0].ID)
	assert.True(t, req.LineItems[0].Amount.IsZero())
	assert.Equal(t, entity.CostTypeOther, req.LineItems[0].CostType)
	assert.Equal(t, "yesterday", req.LineItems[0].Date)
	assert.Equal(t, fixedNow, req.CreatedAt)
	assert.NotEmpty(t, logger.errors)
}

func TestNormalize_CurrencyFallsBackToDefault(t *testing.T) {
	rec := sampleExpense()
	rec.Currency = port.WorkdeckCurrency{}

	req := newNormalizer(&recordingLogger{}).Normalize(rec)

	assert.Equal(t, []string{"EUR"}, req.Currencies)
}

func TestNormalizeAll_SkipsRecordsWithoutID(t *testing.T) {
	logger := &recordingLogger{}
	records := []port.WorkdeckExpense{sampleExpense(), {Amount: "5"}}

	got := newNormalizer(logger).NormalizeAll(records)

	require.Len(t, got, 1)
	assert.Equal(t, "3f2a9c1be47d", got[0].ID)
	assert.Contains(t, logger.errors, "Skipping expense record")
}
