package service

import (
	"context"
	"fmt"
	"time"

	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/domain/event"
)

// change collects what one mutation did, for persistence and notification
type change struct {
	actor   entity.CurrentUser
	now     time.Time
	evtType event.Type
	payload map[string]interface{}
	status  *entity.StatusChange
}

type correlationKey struct{}

func withCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// mutate applies fn to a copy of the request and swaps the copy in only if fn and
// persistence both succeed. Subscribers are notified after the lock is released.
func (s *storeImpl) mutate(
	ctx context.Context,
	id string,
	opts []MutationOption,
	evtType event.Type,
	fn func(req *entity.SpendingRequest, c *change) error,
) (*entity.SpendingRequest, error) {
	cfg := mutationConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	current, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if cfg.expectedVersion != 0 && cfg.expectedVersion != current.Version {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: request %s is at version %d, expected %d", ErrConflict, id, current.Version, cfg.expectedVersion)
	}

	c := &change{
		actor:   s.actor(ctx),
		now:     s.now(),
		evtType: evtType,
		payload: map[string]interface{}{},
	}
	working := current.Clone()
	if err := fn(working, c); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	working.Version = current.Version + 1
	working.UpdatedAt = c.now

	err := s.inTx(ctx, func(txCtx context.Context) error {
		if s.requestRepo != nil {
			if err := s.requestRepo.Save(txCtx, working); err != nil {
				return fmt.Errorf("save request: %w", err)
			}
		}
		if c.status != nil && s.historyRepo != nil {
			if err := s.historyRepo.Create(txCtx, c.status); err != nil {
				return fmt.Errorf("record history: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("Failed to persist request", "request_id", id, "event_type", evtType, "error", err)
		return nil, err
	}

	*current = *working
	if c.status != nil {
		s.history[id] = append(s.history[id], *c.status)
	}
	out := current.Clone()
	s.mu.Unlock()

	c.payload["version"] = out.Version
	s.notify(ctx, evtType, id, c.actor.ID, c.payload)
	return out, nil
}

func (s *storeImpl) notify(ctx context.Context, evtType event.Type, requestID, actorID string, payload map[string]interface{}) {
	evt := event.NewEvent(evtType, requestID, actorID, payload)
	if corr, ok := ctx.Value(correlationKey{}).(string); ok && corr != "" {
		evt.CorrelationID = corr
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Store subscriber failed", "event_type", evtType, "request_id", requestID, "error", err)
	}
}

func requireOwner(actor entity.CurrentUser, req *entity.SpendingRequest) error {
	if actor.ID != req.UserID {
		return fmt.Errorf("%w: %s does not own request %s", ErrUnauthorized, actor.ID, req.ID)
	}
	return nil
}

func requireEditable(req *entity.SpendingRequest) error {
	if req.Status != entity.StatusDraft && req.Status != entity.StatusDenied {
		return fmt.Errorf("%w (request %s is %s)", ErrNotEditable, req.ID, req.Status)
	}
	return nil
}

func requireApprover(actor entity.CurrentUser, req *entity.SpendingRequest) error {
	if !actor.IsManager || !actor.Manages(req.UserID) {
		return fmt.Errorf("%w: %s cannot review requests of %s", ErrUnauthorized, actor.ID, req.UserID)
	}
	return nil
}

func requireProcessor(actor entity.CurrentUser, req *entity.SpendingRequest) error {
	if !actor.CanProcess(req.Type) {
		return fmt.Errorf("%w: %s cannot process %s requests", ErrUnauthorized, actor.ID, req.Type)
	}
	return nil
}
