package workflow

import (
	"context"

	"github.com/workdeck/spending/internal/domain/entity"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

type requestTypeKey struct{}

// WithRequestType stores the request type for the processing-track guards
func WithRequestType(ctx context.Context, t entity.SpendingType) context.Context {
	return context.WithValue(ctx, requestTypeKey{}, t)
}

// RequestTypeFrom returns the request type carried by ctx, if any
func RequestTypeFrom(ctx context.Context) entity.SpendingType {
	t, _ := ctx.Value(requestTypeKey{}).(entity.SpendingType)
	return t
}

func requestIs(t entity.SpendingType) domainwf.GuardFunc {
	return func(ctx context.Context) bool {
		return RequestTypeFrom(ctx) == t
	}
}

// BuildSpendingStateMachine creates a state machine for the spending request lifecycle.
// The processing track forks on request type: Purchase goes Ordered then Received,
// Expense goes straight to Finalized.
func BuildSpendingStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		Permit(domainwf.TriggerSubmit, domainwf.StatePending)

	builder.Configure(domainwf.StatePending).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerDeny, domainwf.StateDenied)

	builder.Configure(domainwf.StateApproved).
		Permit(domainwf.TriggerStartProcessing, domainwf.StateProcessing)

	builder.Configure(domainwf.StateProcessing).
		PermitIf(domainwf.TriggerMarkOrdered, domainwf.StateOrdered, requestIs(entity.SpendingTypePurchase)).
		PermitIf(domainwf.TriggerMarkFinalized, domainwf.StateFinalized, requestIs(entity.SpendingTypeExpense))

	builder.Configure(domainwf.StateOrdered).
		PermitIf(domainwf.TriggerMarkReceived, domainwf.StateReceived, requestIs(entity.SpendingTypePurchase))

	// edit & resubmit
	builder.Configure(domainwf.StateDenied).
		Permit(domainwf.TriggerReopen, domainwf.StateDraft)

	// Finalized and Received have no outgoing transitions

	return builder.Build(initialState)
}
