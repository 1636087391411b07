package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestSpendingRequest_CloneIsDeep(t *testing.T) {
	now := time.Now()
	po := "PO-1"
	qty := decimal.NewFromInt(2)
	orig := &SpendingRequest{
		ID:            "pur-1",
		SubmittedDate: &now,
		PONumber:      &po,
		Currencies:    []string{"EUR"},
		LineItems:     []SpendingLineItem{{ID: "item-1", Quantity: &qty}},
	}

	c := orig.Clone()
	*c.SubmittedDate = now.Add(time.Hour)
	*c.PONumber = "PO-2"
	c.Currencies[0] = "USD"
	c.LineItems[0].Description = "changed"
	*c.LineItems[0].Quantity = decimal.NewFromInt(5)

	if !orig.SubmittedDate.Equal(now) {
		t.Error("Clone() shares SubmittedDate")
	}
	if *orig.PONumber != "PO-1" {
		t.Error("Clone() shares PONumber")
	}
	if orig.Currencies[0] != "EUR" {
		t.Error("Clone() shares Currencies")
	}
	if orig.LineItems[0].Description != "" {
		t.Error("Clone() shares LineItems")
	}
	if !orig.LineItems[0].Quantity.Equal(decimal.NewFromInt(2)) {
		t.Error("Clone() shares line item Quantity")
	}
}

func TestSpendingRequest_FindLineItem(t *testing.T) {
	r := &SpendingRequest{LineItems: []SpendingLineItem{{ID: "a"}, {ID: "b"}}}

	if got := r.FindLineItem("b"); got != 1 {
		t.Errorf("FindLineItem(b) = %d, want 1", got)
	}
	if got := r.FindLineItem("zzz"); got != -1 {
		t.Errorf("FindLineItem(zzz) = %d, want -1", got)
	}
}

func TestCurrentUser_Rights(t *testing.T) {
	u := CurrentUser{ID: "m", IsManager: true, IsPurchaseAdmin: true, DirectReports: []string{"u1", "u2"}}

	tests := []struct {
		name string
		got  bool
		want bool
	}{
		{"manages report", u.Manages("u2"), true},
		{"does not manage stranger", u.Manages("u3"), false},
		{"purchase admin", u.CanProcess(SpendingTypePurchase), true},
		{"not expense admin", u.CanProcess(SpendingTypeExpense), false},
		{"anonymous manages nobody", AnonymousUser().Manages("u1"), false},
		{"anonymous cannot process", AnonymousUser().CanProcess(SpendingTypeExpense), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestSpendingType_Prefixes(t *testing.T) {
	tests := []struct {
		typ     SpendingType
		ref, id string
	}{
		{SpendingTypeExpense, "EXP", "exp"},
		{SpendingTypePurchase, "PUR", "pur"},
	}

	for _, tt := range tests {
		if got := tt.typ.ReferencePrefix(); got != tt.ref {
			t.Errorf("%s.ReferencePrefix() = %s, want %s", tt.typ, got, tt.ref)
		}
		if got := tt.typ.IDPrefix(); got != tt.id {
			t.Errorf("%s.IDPrefix() = %s, want %s", tt.typ, got, tt.id)
		}
	}
	if SpendingType("Invoice").IsValid() {
		t.Error("unknown type should be invalid")
	}
}
