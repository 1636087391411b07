package entity

import "github.com/shopspring/decimal"

// Supplier is a vendor referenced by purchase line items.
// PurchaseCount and TotalSpent are informational counters and are never recounted.
type Supplier struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Contact       string          `json:"contact,omitempty"`
	Email         string          `json:"email,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Verified      bool            `json:"verified"`
	PurchaseCount int             `json:"purchaseCount"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
}
