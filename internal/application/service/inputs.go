package service

import (
	"github.com/shopspring/decimal"

	"github.com/workdeck/spending/internal/domain/entity"
)

// RequestUpdate lists the header fields a caller may change. Nil fields are left alone.
// Status and lifecycle stamps are deliberately absent: only lifecycle commands write them.
type RequestUpdate struct {
	Purpose              *string          `json:"purpose,omitempty"`
	ProjectID            *string          `json:"projectId,omitempty"`
	ActivityID           *string          `json:"activityId,omitempty"`
	TaskID               *string          `json:"taskId,omitempty"`
	Project              *string          `json:"project,omitempty"`
	CostCenter           *string          `json:"costCenter,omitempty"`
	Office               *string          `json:"office,omitempty"`
	Department           *string          `json:"department,omitempty"`
	IsAsap               *bool            `json:"isAsap,omitempty"`
	UseDefaultAllocation *bool            `json:"useDefaultAllocation,omitempty"`
	LineItems            *[]LineItemInput `json:"lineItems,omitempty"`
}

// LineItemInput is a new line item. Amount is ignored for purchase lines that carry
// both quantity and unit price.
type LineItemInput struct {
	Description     string           `json:"description"`
	CostType        string           `json:"costType"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	Vat             decimal.Decimal  `json:"vat"`
	VatRate         decimal.Decimal  `json:"vatRate"`
	Date            string           `json:"date"`
	Notes           string           `json:"notes"`
	PaidBy          string           `json:"paidBy"`
	ReceiptURL      string           `json:"receiptUrl"`
	ReceiptFilename string           `json:"receiptFilename"`
	Supplier        string           `json:"supplier"`
	Quantity        *decimal.Decimal `json:"quantity"`
	UnitPrice       *decimal.Decimal `json:"unitPrice"`
	SKU             string           `json:"sku"`
	ProjectID       string           `json:"projectId"`
	ActivityID      string           `json:"activityId"`
	TaskID          string           `json:"taskId"`
}

func (in LineItemInput) toEntity(id string) entity.SpendingLineItem {
	return entity.SpendingLineItem{
		ID:              id,
		Description:     in.Description,
		CostType:        in.CostType,
		Amount:          in.Amount,
		Currency:        in.Currency,
		Vat:             in.Vat,
		VatRate:         in.VatRate,
		Date:            in.Date,
		Notes:           in.Notes,
		PaidBy:          in.PaidBy,
		ReceiptURL:      in.ReceiptURL,
		ReceiptFilename: in.ReceiptFilename,
		Supplier:        in.Supplier,
		Quantity:        in.Quantity,
		UnitPrice:       in.UnitPrice,
		SKU:             in.SKU,
		ProjectID:       in.ProjectID,
		ActivityID:      in.ActivityID,
		TaskID:          in.TaskID,
	}.Clone()
}

// LineItemUpdate changes selected fields of an existing line item
type LineItemUpdate struct {
	Description *string          `json:"description,omitempty"`
	CostType    *string          `json:"costType,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Currency    *string          `json:"currency,omitempty"`
	Vat         *decimal.Decimal `json:"vat,omitempty"`
	VatRate     *decimal.Decimal `json:"vatRate,omitempty"`
	Date        *string          `json:"date,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	PaidBy      *string          `json:"paidBy,omitempty"`
	Supplier    *string          `json:"supplier,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unitPrice,omitempty"`
	SKU         *string          `json:"sku,omitempty"`
	ProjectID   *string          `json:"projectId,omitempty"`
	ActivityID  *string          `json:"activityId,omitempty"`
	TaskID      *string          `json:"taskId,omitempty"`
}

func (u LineItemUpdate) applyTo(item *entity.SpendingLineItem) {
	setString(&item.Description, u.Description)
	setString(&item.CostType, u.CostType)
	setString(&item.Currency, u.Currency)
	setString(&item.Date, u.Date)
	setString(&item.Notes, u.Notes)
	setString(&item.PaidBy, u.PaidBy)
	setString(&item.Supplier, u.Supplier)
	setString(&item.SKU, u.SKU)
	setString(&item.ProjectID, u.ProjectID)
	setString(&item.ActivityID, u.ActivityID)
	setString(&item.TaskID, u.TaskID)
	if u.Amount != nil {
		item.Amount = *u.Amount
	}
	if u.Vat != nil {
		item.Vat = *u.Vat
	}
	if u.VatRate != nil {
		item.VatRate = *u.VatRate
	}
	if u.Quantity != nil {
		q := *u.Quantity
		item.Quantity = &q
	}
	if u.UnitPrice != nil {
		p := *u.UnitPrice
		item.UnitPrice = &p
	}
}

// SupplierInput describes a supplier to add
type SupplierInput struct {
	Name     string `json:"name"`
	Contact  string `json:"contact"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Verified bool   `json:"verified"`
}

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	Type     entity.SpendingType
	Statuses []entity.Status
	UserID   string
	Search   string
}

// BulkResult reports a best-effort batch: every id ends up in exactly one of the two fields
type BulkResult struct {
	Approved []string         `json:"approved"`
	Failed   map[string]error `json:"-"`
}

// MutationOption adjusts a single store mutation
type MutationOption func(*mutationConfig)

type mutationConfig struct {
	expectedVersion int64
}

// WithExpectedVersion makes the mutation conditional on the request's current version.
// Zero means unconditional.
func WithExpectedVersion(v int64) MutationOption {
	return func(c *mutationConfig) {
		c.expectedVersion = v
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
