package event

// Type identifies the type of domain event
type Type string

const (
	TypeRequestCreated  Type = "request.created"
	TypeRequestUpdated  Type = "request.updated"
	TypeRequestDeleted  Type = "request.deleted"
	TypeStatusChanged   Type = "request.status_changed"
	TypeLineItemAdded   Type = "line_item.added"
	TypeLineItemUpdated Type = "line_item.updated"
	TypeLineItemDeleted Type = "line_item.deleted"
	TypeReceiptAttached Type = "line_item.receipt_attached"
	TypeSupplierAdded   Type = "supplier.added"
	TypeStoreHydrated   Type = "store.hydrated"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeRequestCreated,
		TypeRequestUpdated,
		TypeRequestDeleted,
		TypeStatusChanged,
		TypeLineItemAdded,
		TypeLineItemUpdated,
		TypeLineItemDeleted,
		TypeReceiptAttached,
		TypeSupplierAdded,
		TypeStoreHydrated:
		return true
	default:
		return false
	}
}
