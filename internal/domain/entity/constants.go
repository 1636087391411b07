package entity

// SpendingType distinguishes self-paid reimbursements from supplier-billed purchases
type SpendingType string

const (
	SpendingTypeExpense  SpendingType = "Expense"
	SpendingTypePurchase SpendingType = "Purchase"
)

// IsValid reports whether t is a known spending type
func (t SpendingType) IsValid() bool {
	return t == SpendingTypeExpense || t == SpendingTypePurchase
}

// ReferencePrefix returns the prefix used in locally issued reference numbers
func (t SpendingType) ReferencePrefix() string {
	if t == SpendingTypePurchase {
		return "PUR"
	}
	return "EXP"
}

// IDPrefix returns the prefix used in locally issued request ids
func (t SpendingType) IDPrefix() string {
	if t == SpendingTypePurchase {
		return "pur"
	}
	return "exp"
}

// Status mirrors the lifecycle states of internal/domain/workflow
type Status string

const (
	StatusDraft      Status = "Draft"
	StatusPending    Status = "Pending"
	StatusApproved   Status = "Approved"
	StatusDenied     Status = "Denied"
	StatusProcessing Status = "Processing"
	StatusOrdered    Status = "Ordered"
	StatusFinalized  Status = "Finalized"
	StatusReceived   Status = "Received"
)

// CostType categories for line items
const (
	CostTypeMeals          = "Meals"
	CostTypeTravel         = "Travel"
	CostTypeAccommodation  = "Accommodation"
	CostTypeEquipment      = "Equipment"
	CostTypeSoftware       = "Software"
	CostTypeOfficeSupplies = "Office Supplies"
	CostTypeMarketing      = "Marketing"
	CostTypeTraining       = "Training"
	CostTypeEntertainment  = "Entertainment"
	CostTypeOther          = "Other"
)

// CostTypes lists the known categories in display order
var CostTypes = []string{
	CostTypeMeals,
	CostTypeTravel,
	CostTypeAccommodation,
	CostTypeEquipment,
	CostTypeSoftware,
	CostTypeOfficeSupplies,
	CostTypeMarketing,
	CostTypeTraining,
	CostTypeEntertainment,
	CostTypeOther,
}

// PaidBy values for expense line items
const (
	PaidByEmployee    = "Employee"
	PaidByCompanyCard = "Company Card"
)

// Source records where a request originated
const (
	SourceLocal    = "local"
	SourceWorkdeck = "workdeck"
)

// DefaultCurrency applies to line items created without a currency
const DefaultCurrency = "EUR"
