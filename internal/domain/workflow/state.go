package workflow

// State is a spending request lifecycle state.
type State string

const (
	StateDraft      State = "Draft"
	StatePending    State = "Pending"
	StateApproved   State = "Approved"
	StateDenied     State = "Denied"
	StateProcessing State = "Processing"
	StateOrdered    State = "Ordered"
	StateFinalized  State = "Finalized"
	StateReceived   State = "Received"
)

var validStates = map[State]bool{
	StateDraft:      true,
	StatePending:    true,
	StateApproved:   true,
	StateDenied:     true,
	StateProcessing: true,
	StateOrdered:    true,
	StateFinalized:  true,
	StateReceived:   true,
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a known lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
