package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/workdeck/spending/internal/application/workflow"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/domain/event"
	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

type authorizer func(actor entity.CurrentUser, req *entity.SpendingRequest) error

// authorizers maps each trigger to the check its store operation applies
var authorizers = map[domainwf.Trigger]authorizer{
	domainwf.TriggerSubmit:          requireOwner,
	domainwf.TriggerReopen:          requireOwner,
	domainwf.TriggerApprove:         requireApprover,
	domainwf.TriggerDeny:            requireApprover,
	domainwf.TriggerStartProcessing: requireProcessor,
	domainwf.TriggerMarkOrdered:     requireProcessor,
	domainwf.TriggerMarkReceived:    requireProcessor,
	domainwf.TriggerMarkFinalized:   requireProcessor,
}

// transition authorizes the actor, then fires cmd through the lifecycle engine
func (s *storeImpl) transition(ctx context.Context, id string, cmd workflow.Command, authorize authorizer, opts []MutationOption) (*entity.SpendingRequest, error) {
	return s.mutate(ctx, id, opts, event.TypeStatusChanged, func(req *entity.SpendingRequest, c *change) error {
		if err := authorize(c.actor, req); err != nil {
			return err
		}

		tr, err := s.engine.Apply(ctx, req, cmd, c.actor.ID, c.now)
		if err != nil {
			return err
		}

		c.status = &entity.StatusChange{
			RequestID:  req.ID,
			FromStatus: tr.From,
			ToStatus:   tr.To,
			Action:     tr.Trigger.String(),
			ActorID:    tr.Actor,
			Comment:    commentOf(cmd),
			Timestamp:  tr.At,
		}
		c.payload["from"] = string(tr.From)
		c.payload["to"] = string(tr.To)
		c.payload["trigger"] = tr.Trigger.String()
		return nil
	})
}

func (s *storeImpl) AllowedActions(ctx context.Context, id string) ([]domainwf.Trigger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	actor := s.actor(ctx)

	allowed := []domainwf.Trigger{}
	for _, trigger := range s.engine.PermittedTriggers(ctx, req) {
		if authorize, ok := authorizers[trigger]; ok && authorize(actor, req) == nil {
			allowed = append(allowed, trigger)
		}
	}
	return allowed, nil
}

func (s *storeImpl) SubmitRequest(ctx context.Context, id string, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, workflow.SubmitCommand{}, requireOwner, opts)
}

func (s *storeImpl) ApproveRequest(ctx context.Context, id string, cmd workflow.ApproveCommand, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, cmd, requireApprover, opts)
}

func (s *storeImpl) DenyRequest(ctx context.Context, id string, cmd workflow.DenyCommand, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, cmd, requireApprover, opts)
}

func (s *storeImpl) StartProcessing(ctx context.Context, id string, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, workflow.StartProcessingCommand{}, requireProcessor, opts)
}

func (s *storeImpl) MarkAsOrdered(ctx context.Context, id string, cmd workflow.MarkOrderedCommand, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, cmd, requireProcessor, opts)
}

func (s *storeImpl) MarkAsReceived(ctx context.Context, id string, cmd workflow.MarkReceivedCommand, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, cmd, requireProcessor, opts)
}

func (s *storeImpl) MarkAsFinalized(ctx context.Context, id string, cmd workflow.MarkFinalizedCommand, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, cmd, requireProcessor, opts)
}

// ReopenRequest returns a denied request to Draft for edit and resubmit
func (s *storeImpl) ReopenRequest(ctx context.Context, id string, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.transition(ctx, id, workflow.ReopenCommand{}, requireOwner, opts)
}

// BulkApprove approves each id independently. A failure on one id never rolls back the others.
func (s *storeImpl) BulkApprove(ctx context.Context, ids []string, cmd workflow.ApproveCommand) BulkResult {
	result := BulkResult{
		Approved: make([]string, 0, len(ids)),
		Failed:   make(map[string]error),
	}
	ctx = withCorrelation(ctx, "bulk-"+uuid.NewString())

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.ApproveRequest(ctx, id, cmd); err != nil {
			result.Failed[id] = err
			continue
		}
		result.Approved = append(result.Approved, id)
	}

	s.logger.Info("Bulk approval finished", "requested", len(ids), "approved", len(result.Approved), "failed", len(result.Failed))
	return result
}

// History returns the recorded transitions of a request, oldest first
func (s *storeImpl) History(ctx context.Context, id string) ([]entity.StatusChange, error) {
	s.mu.RLock()
	_, ok := s.index[id]
	mem := append([]entity.StatusChange{}, s.history[id]...)
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if s.historyRepo == nil {
		return mem, nil
	}

	stored, err := s.historyRepo.GetByRequestID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to read request history", "request_id", id, "error", err)
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]entity.StatusChange, 0, len(stored))
	for _, h := range stored {
		out = append(out, *h)
	}
	return out, nil
}

func commentOf(cmd workflow.Command) string {
	switch c := cmd.(type) {
	case workflow.ApproveCommand:
		return c.Comment
	case workflow.DenyCommand:
		if c.Comment != "" {
			return c.Reason + ": " + c.Comment
		}
		return c.Reason
	case workflow.MarkOrderedCommand:
		return deref(c.Notes)
	case workflow.MarkReceivedCommand:
		return deref(c.Notes)
	case workflow.MarkFinalizedCommand:
		return deref(c.Notes)
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
