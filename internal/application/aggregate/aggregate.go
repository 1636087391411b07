// Package aggregate derives request totals from line items.
package aggregate

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/workdeck/spending/internal/domain/entity"
)

// ErrNegativeValue is returned when a line item carries a negative amount, vat or quantity
var ErrNegativeValue = errors.New("negative line item value")

// Totals are the derived financial fields of a request
type Totals struct {
	Subtotal   decimal.Decimal
	TotalVat   decimal.Decimal
	Total      decimal.Decimal
	Currencies []string
}

// Recompute sums amounts and vat and collects distinct currencies in first-seen order.
// An empty list yields zero totals and no currencies.
func Recompute(items []entity.SpendingLineItem) Totals {
	subtotal := decimal.Zero
	vat := decimal.Zero
	currencies := make([]string, 0, 1)
	seen := make(map[string]struct{}, 1)

	for _, item := range items {
		subtotal = subtotal.Add(item.Amount)
		vat = vat.Add(item.Vat)
		if item.Currency == "" {
			continue
		}
		if _, ok := seen[item.Currency]; !ok {
			seen[item.Currency] = struct{}{}
			currencies = append(currencies, item.Currency)
		}
	}

	return Totals{
		Subtotal:   subtotal,
		TotalVat:   vat,
		Total:      subtotal.Add(vat),
		Currencies: currencies,
	}
}

// Apply overwrites the request's derived fields from its current line items
func Apply(req *entity.SpendingRequest) {
	t := Recompute(req.LineItems)
	req.Subtotal = t.Subtotal
	req.TotalVat = t.TotalVat
	req.Total = t.Total
	req.Currencies = t.Currencies
}

// NormalizeLine validates a line item and fills derived values in place.
// Purchase lines with both quantity and unit price always get amount = quantity x unit price.
func NormalizeLine(t entity.SpendingType, item *entity.SpendingLineItem, defaultCurrency string) error {
	if item.Currency == "" {
		item.Currency = defaultCurrency
	}
	if t == entity.SpendingTypePurchase && item.Quantity != nil && item.UnitPrice != nil {
		item.Amount = item.Quantity.Mul(*item.UnitPrice)
	}
	if t == entity.SpendingTypeExpense && item.PaidBy == "" {
		item.PaidBy = entity.PaidByEmployee
	}

	switch {
	case item.Amount.IsNegative():
		return fmt.Errorf("%w: amount %s", ErrNegativeValue, item.Amount)
	case item.Vat.IsNegative():
		return fmt.Errorf("%w: vat %s", ErrNegativeValue, item.Vat)
	case item.Quantity != nil && item.Quantity.IsNegative():
		return fmt.Errorf("%w: quantity %s", ErrNegativeValue, item.Quantity)
	case item.UnitPrice != nil && item.UnitPrice.IsNegative():
		return fmt.Errorf("%w: unit price %s", ErrNegativeValue, item.UnitPrice)
	}
	return nil
}
