package workflow

// Trigger represents an action that can cause a state transition
type Trigger string

const (
	TriggerSubmit          Trigger = "SUBMIT"
	TriggerApprove         Trigger = "APPROVE"
	TriggerDeny            Trigger = "DENY"
	TriggerStartProcessing Trigger = "START_PROCESSING"
	TriggerMarkOrdered     Trigger = "MARK_ORDERED"
	TriggerMarkReceived    Trigger = "MARK_RECEIVED"
	TriggerMarkFinalized   Trigger = "MARK_FINALIZED"
	TriggerReopen          Trigger = "REOPEN"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
