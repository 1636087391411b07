// Package normalizer maps Workdeck expense records into spending requests.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/workdeck/spending/internal/application/port"
	"github.com/workdeck/spending/internal/domain/entity"
)

// ExternalReferencePrefix namespaces upstream reference numbers apart from EXP-YYYY-NNNN
const ExternalReferencePrefix = "EXP-WD-"

const workdeckDateLayout = "02/01/2006"

var statusByCode = map[int]entity.Status{
	0: entity.StatusDraft,
	1: entity.StatusApproved,
	2: entity.StatusDenied,
}

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Normalizer converts upstream expense records. It never fails: malformed values
// become zero or empty and are logged.
type Normalizer struct {
	defaultCurrency string
	logger          Logger
	now             func() time.Time
}

// Option configures the normalizer
type Option func(*Normalizer)

// WithClock overrides the time source used when a record has no usable timestamps
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a normalizer
func New(defaultCurrency string, logger Logger, opts ...Option) *Normalizer {
	if defaultCurrency == "" {
		defaultCurrency = entity.DefaultCurrency
	}
	n := &Normalizer{
		defaultCurrency: defaultCurrency,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NormalizeAll converts every record, skipping any that cannot be converted at all
func (n *Normalizer) NormalizeAll(records []port.WorkdeckExpense) []*entity.SpendingRequest {
	out := make([]*entity.SpendingRequest, 0, len(records))
	for i := range records {
		req, err := n.safeNormalize(records[i])
		if err != nil {
			n.logger.Error("Skipping expense record", "expense_id", records[i].ID, "error", err)
			continue
		}
		out = append(out, req)
	}
	return out
}

func (n *Normalizer) safeNormalize(rec port.WorkdeckExpense) (req *entity.SpendingRequest, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("normalize panic: %v", r)
		}
	}()
	if strings.TrimSpace(rec.ID) == "" {
		return nil, fmt.Errorf("expense record has no id")
	}
	return n.Normalize(rec), nil
}

// Normalize converts one record. Totals come from the record, not from the items,
// since upstream VAT is unknown.
func (n *Normalizer) Normalize(rec port.WorkdeckExpense) *entity.SpendingRequest {
	currency := n.currencyOf(rec.Currency)
	category := entity.CostTypeOther
	if rec.Category != nil && rec.Category.Name != "" {
		category = rec.Category.Name
	}

	status, ok := statusByCode[rec.Status]
	if !ok {
		n.logger.Info("Unknown expense status code, defaulting to Draft", "expense_id", rec.ID, "status", rec.Status)
		status = entity.StatusDraft
	}

	createdAt := n.parseTimestamp(rec.ID, rec.CreatedAt, rec.Date)
	updatedAt := n.parseTimestamp(rec.ID, rec.UpdatedAt, "")
	if updatedAt.Before(createdAt) {
		updatedAt = createdAt
	}

	items := make([]entity.SpendingLineItem, 0, len(rec.Items))
	for i, item := range rec.Items {
		id := item.ID
		if id == "" {
			id = fmt.Sprintf("%s-item-%d", rec.ID, i+1)
		}
		items = append(items, entity.SpendingLineItem{
			ID:          id,
			Description: item.Description,
			CostType:    category,
			Amount:      n.parseAmount(rec.ID, item.Amount),
			Currency:    currency,
			Vat:         decimal.Zero,
			VatRate:     decimal.Zero,
			Date:        n.convertDate(rec.ID, item.Date),
			PaidBy:      entity.PaidByEmployee,
		})
	}

	total := n.parseAmount(rec.ID, rec.Amount)
	req := &entity.SpendingRequest{
		ID:              rec.ID,
		Type:            entity.SpendingTypeExpense,
		ReferenceNumber: ExternalReferencePrefix + strings.ToUpper(prefix(rec.ID, 8)),
		UserID:          rec.Creator.ID,
		Status:          status,
		Source:          entity.SourceWorkdeck,
		Version:         1,
		Purpose:         rec.Description,
		LineItems:       items,
		Subtotal:        total,
		TotalVat:        decimal.Zero,
		Total:           total,
		Currencies:      []string{currency},
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
	}
	if rec.Project != nil {
		req.ProjectID = rec.Project.ID
		req.Project = rec.Project.Name
	}
	return req
}

func (n *Normalizer) currencyOf(c port.WorkdeckCurrency) string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Symbol != "":
		return c.Symbol
	default:
		return n.defaultCurrency
	}
}

func (n *Normalizer) parseAmount(expenseID, raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", "."))
	if err != nil {
		n.logger.Error("Unparsable expense amount", "expense_id", expenseID, "amount", raw, "error", err)
		return decimal.Zero
	}
	return d
}

// convertDate turns DD/MM/YYYY into YYYY-MM-DD and passes anything else through
func (n *Normalizer) convertDate(expenseID, raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(workdeckDateLayout, raw)
	if err != nil {
		n.logger.Info("Unrecognised expense item date", "expense_id", expenseID, "date", raw)
		return raw
	}
	return t.Format("2006-01-02")
}

func (n *Normalizer) parseTimestamp(expenseID, stamp, fallbackDate string) time.Time {
	if stamp != "" {
		if t, err := time.Parse(time.RFC3339, stamp); err == nil {
			return t
		}
	}
	if fallbackDate != "" {
		if t, err := time.Parse(workdeckDateLayout, fallbackDate); err == nil {
			return t
		}
	}
	if stamp != "" {
		n.logger.Info("Unrecognised expense timestamp", "expense_id", expenseID, "timestamp", stamp)
	}
	return n.now()
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
