package entity

import "github.com/shopspring/decimal"

// SpendingLineItem is one cost entry within a request
type SpendingLineItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	CostType    string          `json:"costType"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Vat         decimal.Decimal `json:"vat"`
	VatRate     decimal.Decimal `json:"vatRate"`
	Date        string          `json:"date,omitempty"`
	Notes       string          `json:"notes,omitempty"`

	// Expense
	PaidBy          string `json:"paidBy,omitempty"`
	ReceiptURL      string `json:"receiptUrl,omitempty"`
	ReceiptFilename string `json:"receiptFilename,omitempty"`

	// Purchase
	Supplier  string           `json:"supplier,omitempty"`
	Quantity  *decimal.Decimal `json:"quantity,omitempty"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
	SKU       string           `json:"sku,omitempty"`

	// Allocation override, used when the request does not apply its default allocation
	ProjectID  string `json:"projectId,omitempty"`
	ActivityID string `json:"activityId,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
}

// Clone returns a deep copy of the line item
func (li SpendingLineItem) Clone() SpendingLineItem {
	if li.Quantity != nil {
		q := *li.Quantity
		li.Quantity = &q
	}
	if li.UnitPrice != nil {
		p := *li.UnitPrice
		li.UnitPrice = &p
	}
	return li
}
