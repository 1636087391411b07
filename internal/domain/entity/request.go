package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpendingRequest is a single Expense or Purchase submission and owns its line items
type SpendingRequest struct {
	ID              string       `json:"id"`
	Type            SpendingType `json:"type"`
	ReferenceNumber string       `json:"referenceNumber"`
	UserID          string       `json:"userId"`
	Status          Status       `json:"status"`
	Source          string       `json:"source"`
	Version         int64        `json:"version"`

	Purpose    string `json:"purpose"`
	ProjectID  string `json:"projectId,omitempty"`
	ActivityID string `json:"activityId,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
	Project    string `json:"project,omitempty"`
	CostCenter string `json:"costCenter,omitempty"`
	Office     string `json:"office,omitempty"`
	Department string `json:"department,omitempty"`

	IsAsap               bool `json:"isAsap"`
	UseDefaultAllocation bool `json:"useDefaultAllocation,omitempty"`

	LineItems  []SpendingLineItem `json:"lineItems"`
	Subtotal   decimal.Decimal    `json:"subtotal"`
	TotalVat   decimal.Decimal    `json:"totalVat"`
	Total      decimal.Decimal    `json:"total"`
	Currencies []string           `json:"currencies"`

	SubmittedDate *time.Time `json:"submittedDate,omitempty"`

	ApprovedDate   *time.Time `json:"approvedDate,omitempty"`
	ApprovedBy     string     `json:"approvedBy,omitempty"`
	DeniedDate     *time.Time `json:"deniedDate,omitempty"`
	DeniedBy       string     `json:"deniedBy,omitempty"`
	DenialReason   string     `json:"denialReason,omitempty"`
	ManagerComment string     `json:"managerComment,omitempty"`

	ProcessingStartedDate *time.Time `json:"processingStartedDate,omitempty"`
	ProcessingStartedBy   string     `json:"processingStartedBy,omitempty"`

	OrderedDate          *time.Time `json:"orderedDate,omitempty"`
	OrderedBy            string     `json:"orderedBy,omitempty"`
	PONumber             *string    `json:"poNumber,omitempty"`
	ExpectedDeliveryDate *string    `json:"expectedDeliveryDate,omitempty"`
	OrderNotes           *string    `json:"orderNotes,omitempty"`

	ReceivedDate   *string `json:"receivedDate,omitempty"`
	ReceivedBy     string  `json:"receivedBy,omitempty"`
	ReceivedInFull *bool   `json:"receivedInFull,omitempty"`
	ReceiveNotes   *string `json:"receiveNotes,omitempty"`

	FinalizedDate     *time.Time `json:"finalizedDate,omitempty"`
	FinalizedBy       string     `json:"finalizedBy,omitempty"`
	PaymentReference  *string    `json:"paymentReference,omitempty"`
	PaymentDate       *string    `json:"paymentDate,omitempty"`
	FinalizationNotes *string    `json:"finalizationNotes,omitempty"`

	CompletedDate *time.Time `json:"completedDate,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FindLineItem returns the index of the line item with the given id, or -1
func (r *SpendingRequest) FindLineItem(itemID string) int {
	for i := range r.LineItems {
		if r.LineItems[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so callers cannot reach back into store state
func (r *SpendingRequest) Clone() *SpendingRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.LineItems != nil {
		c.LineItems = make([]SpendingLineItem, len(r.LineItems))
		for i := range r.LineItems {
			c.LineItems[i] = r.LineItems[i].Clone()
		}
	}
	if r.Currencies != nil {
		c.Currencies = append([]string{}, r.Currencies...)
	}

	c.SubmittedDate = cloneTime(r.SubmittedDate)
	c.ApprovedDate = cloneTime(r.ApprovedDate)
	c.DeniedDate = cloneTime(r.DeniedDate)
	c.ProcessingStartedDate = cloneTime(r.ProcessingStartedDate)
	c.OrderedDate = cloneTime(r.OrderedDate)
	c.FinalizedDate = cloneTime(r.FinalizedDate)
	c.CompletedDate = cloneTime(r.CompletedDate)

	c.PONumber = cloneString(r.PONumber)
	c.ExpectedDeliveryDate = cloneString(r.ExpectedDeliveryDate)
	c.OrderNotes = cloneString(r.OrderNotes)
	c.ReceivedDate = cloneString(r.ReceivedDate)
	c.ReceiveNotes = cloneString(r.ReceiveNotes)
	c.PaymentReference = cloneString(r.PaymentReference)
	c.PaymentDate = cloneString(r.PaymentDate)
	c.FinalizationNotes = cloneString(r.FinalizationNotes)
	if r.ReceivedInFull != nil {
		v := *r.ReceivedInFull
		c.ReceivedInFull = &v
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
