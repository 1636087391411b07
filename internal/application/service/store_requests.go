package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/workdeck/spending/internal/application/aggregate"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/domain/event"
)

// CreateRequest inserts an empty draft owned by the acting user at the head of the collection
func (s *storeImpl) CreateRequest(ctx context.Context, t entity.SpendingType) (*entity.SpendingRequest, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, t)
	}

	s.mu.Lock()
	actor := s.actor(ctx)
	now := s.now()
	req := &entity.SpendingRequest{
		ID:              fmt.Sprintf("%s-%s", t.IDPrefix(), uuid.NewString()),
		Type:            t,
		ReferenceNumber: s.nextReferenceLocked(t, now.Year()),
		UserID:          actor.ID,
		Status:          entity.StatusDraft,
		Source:          entity.SourceLocal,
		Version:         1,
		LineItems:       []entity.SpendingLineItem{},
		Subtotal:        decimal.Zero,
		TotalVat:        decimal.Zero,
		Total:           decimal.Zero,
		Currencies:      []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if s.requestRepo != nil {
		if err := s.requestRepo.Save(ctx, req); err != nil {
			s.mu.Unlock()
			s.logger.Error("Failed to persist new request", "type", t, "error", err)
			return nil, fmt.Errorf("save request: %w", err)
		}
	}

	s.requests = append([]*entity.SpendingRequest{req}, s.requests...)
	s.index[req.ID] = req
	out := req.Clone()
	s.mu.Unlock()

	s.logger.Info("Request created", "request_id", out.ID, "reference", out.ReferenceNumber, "user_id", out.UserID)
	s.notify(ctx, event.TypeRequestCreated, out.ID, actor.ID, map[string]interface{}{
		"type":            string(t),
		"referenceNumber": out.ReferenceNumber,
	})
	return out, nil
}

// nextReferenceLocked numbers by the count of local requests of the type, skipping
// numbers still in use after deletions
func (s *storeImpl) nextReferenceLocked(t entity.SpendingType, year int) string {
	used := make(map[string]bool)
	count := 0
	for _, r := range s.requests {
		if r.Type == t && r.Source != entity.SourceWorkdeck {
			count++
			used[r.ReferenceNumber] = true
		}
	}
	for seq := count + 1; ; seq++ {
		ref := fmt.Sprintf("%s-%d-%04d", t.ReferencePrefix(), year, seq)
		if !used[ref] {
			return ref
		}
	}
}

// UpdateRequest merges the header fields. A LineItems replacement is normalised and re-totalled.
func (s *storeImpl) UpdateRequest(ctx context.Context, id string, update RequestUpdate, opts ...MutationOption) (*entity.SpendingRequest, error) {
	var dropped []string
	out, err := s.mutate(ctx, id, opts, event.TypeRequestUpdated, func(req *entity.SpendingRequest, c *change) error {
		if err := requireOwner(c.actor, req); err != nil {
			return err
		}
		if err := requireEditable(req); err != nil {
			return err
		}

		fields := make([]string, 0, 4)
		mark := func(name string, set bool) {
			if set {
				fields = append(fields, name)
			}
		}

		oldProject, oldActivity := req.ProjectID, req.ActivityID
		setString(&req.Purpose, update.Purpose)
		setString(&req.ProjectID, update.ProjectID)
		setString(&req.ActivityID, update.ActivityID)
		setString(&req.TaskID, update.TaskID)
		setString(&req.Project, update.Project)
		setString(&req.CostCenter, update.CostCenter)
		setString(&req.Office, update.Office)
		setString(&req.Department, update.Department)
		mark("purpose", update.Purpose != nil)
		mark("projectId", update.ProjectID != nil)
		mark("activityId", update.ActivityID != nil)
		mark("taskId", update.TaskID != nil)
		mark("project", update.Project != nil)
		mark("costCenter", update.CostCenter != nil)
		mark("office", update.Office != nil)
		mark("department", update.Department != nil)
		if update.IsAsap != nil {
			req.IsAsap = *update.IsAsap
			mark("isAsap", true)
		}
		if update.UseDefaultAllocation != nil {
			req.UseDefaultAllocation = *update.UseDefaultAllocation
			mark("useDefaultAllocation", true)
		}

		// children of a changed or cleared parent no longer mean anything
		if req.ProjectID != oldProject && update.ActivityID == nil {
			req.ActivityID = ""
		}
		if req.ProjectID == "" {
			req.ActivityID = ""
		}
		if req.ActivityID != oldActivity && update.TaskID == nil {
			req.TaskID = ""
		}
		if req.ActivityID == "" {
			req.TaskID = ""
		}

		if update.LineItems != nil {
			items := make([]entity.SpendingLineItem, 0, len(*update.LineItems))
			for _, in := range *update.LineItems {
				item := in.toEntity(newItemID())
				if err := aggregate.NormalizeLine(req.Type, &item, s.defaultCurrency); err != nil {
					return fmt.Errorf("%w: %w", ErrInvalidLineItem, err)
				}
				items = append(items, item)
			}
			ownReceipts(req.LineItems, items)
			dropped = droppedReceipts(req.LineItems, items)
			req.LineItems = items
			aggregate.Apply(req)
			mark("lineItems", true)
		}

		c.payload["fields"] = strings.Join(fields, ",")
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeReceipts(ctx, id, dropped)
	return out, nil
}

// DeleteRequest hard-deletes a Draft or Denied request owned by the actor
func (s *storeImpl) DeleteRequest(ctx context.Context, id string, opts ...MutationOption) error {
	cfg := mutationConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.Lock()
	req, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if cfg.expectedVersion != 0 && cfg.expectedVersion != req.Version {
		s.mu.Unlock()
		return fmt.Errorf("%w: request %s is at version %d, expected %d", ErrConflict, id, req.Version, cfg.expectedVersion)
	}
	actor := s.actor(ctx)
	if err := requireOwner(actor, req); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := requireEditable(req); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.requestRepo != nil {
		if err := s.requestRepo.Delete(ctx, id); err != nil {
			s.mu.Unlock()
			s.logger.Error("Failed to delete request", "request_id", id, "error", err)
			return fmt.Errorf("delete request: %w", err)
		}
	}

	for i, r := range s.requests {
		if r.ID == id {
			s.requests = append(s.requests[:i], s.requests[i+1:]...)
			break
		}
	}
	delete(s.index, id)
	delete(s.history, id)
	ref := req.ReferenceNumber
	var receipts []string
	for _, item := range req.LineItems {
		if item.ReceiptURL != "" {
			receipts = append(receipts, item.ReceiptURL)
		}
	}
	s.mu.Unlock()

	s.logger.Info("Request deleted", "request_id", id, "reference", ref)
	s.notify(ctx, event.TypeRequestDeleted, id, actor.ID, map[string]interface{}{"referenceNumber": ref})

	s.removeReceipts(ctx, id, receipts)
	return nil
}

func (s *storeImpl) GetRequest(ctx context.Context, id string) (*entity.SpendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	return req.Clone(), nil
}

// ListRequests returns matching requests, most recently created first
func (s *storeImpl) ListRequests(ctx context.Context, filter RequestFilter) []*entity.SpendingRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterLocked(func(r *entity.SpendingRequest) bool {
		return filter.matches(r)
	})
}

func (s *storeImpl) filterLocked(keep func(*entity.SpendingRequest) bool) []*entity.SpendingRequest {
	out := make([]*entity.SpendingRequest, 0)
	for _, r := range s.requests {
		if keep(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}

func (f RequestFilter) matches(r *entity.SpendingRequest) bool {
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if r.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		hay := strings.ToLower(r.Purpose + " " + r.ReferenceNumber + " " + r.Project)
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

func newItemID() string {
	return "item-" + uuid.NewString()
}
