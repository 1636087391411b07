package workflow

import (
	"context"
	"time"

	"github.com/workdeck/spending/internal/domain/entity"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

// Transition describes one applied lifecycle step
type Transition struct {
	RequestID string
	From      entity.Status
	To        entity.Status
	Trigger   domainwf.Trigger
	Actor     string
	At        time.Time
}

// Engine validates lifecycle commands against the spending state machine and stamps the request
type Engine interface {
	// Apply fires cmd on req. On success req carries the new status, the command's
	// stamps and a refreshed UpdatedAt. On failure req is left untouched.
	Apply(ctx context.Context, req *entity.SpendingRequest, cmd Command, actor string, now time.Time) (Transition, error)

	// PermittedTriggers lists the triggers that would succeed for req
	PermittedTriggers(ctx context.Context, req *entity.SpendingRequest) []domainwf.Trigger
}
