package workflow

import "context"

// StateMachine tracks the current state of one request and validates transitions
type StateMachine interface {
	State() State

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers Fire would accept under ctx, sorted by name
	PermittedTriggers(ctx context.Context) []Trigger
}
