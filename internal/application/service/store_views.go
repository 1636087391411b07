package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/workdeck/spending/internal/application/aggregate"
	"github.com/workdeck/spending/internal/application/reference"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/domain/event"
	"github.com/workdeck/spending/pkg/utils"
)

// AddSupplier appends a supplier with zeroed counters
func (s *storeImpl) AddSupplier(ctx context.Context, in SupplierInput) (*entity.Supplier, error) {
	name := utils.SanitizeString(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: supplier name is required", ErrInvalidInput)
	}
	email := strings.TrimSpace(in.Email)
	if email != "" {
		if err := utils.ValidateEmail(email); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	supplier := &entity.Supplier{
		ID:            "sup-" + uuid.NewString(),
		Name:          name,
		Contact:       utils.SanitizeString(in.Contact),
		Email:         email,
		Phone:         utils.SanitizeString(in.Phone),
		Verified:      in.Verified,
		PurchaseCount: 0,
		TotalSpent:    decimal.Zero,
	}

	s.mu.Lock()
	actor := s.actor(ctx)
	if s.supplierRepo != nil {
		if err := s.supplierRepo.Create(ctx, supplier); err != nil {
			s.mu.Unlock()
			s.logger.Error("Failed to persist supplier", "name", name, "error", err)
			return nil, fmt.Errorf("save supplier: %w", err)
		}
	}
	s.suppliers = append(s.suppliers, supplier)
	out := *supplier
	s.mu.Unlock()

	s.logger.Info("Supplier added", "supplier_id", out.ID, "name", out.Name)
	s.notify(ctx, event.TypeSupplierAdded, "", actor.ID, map[string]interface{}{
		"supplierId": out.ID,
		"name":       out.Name,
	})
	return &out, nil
}

func (s *storeImpl) Suppliers(ctx context.Context) []entity.Supplier {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, *sup)
	}
	return out
}

// PendingApprovals lists pending requests from the acting user's direct reports
func (s *storeImpl) PendingApprovals(ctx context.Context) []*entity.SpendingRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	actor := s.actor(ctx)
	if !actor.IsManager {
		return []*entity.SpendingRequest{}
	}
	return s.filterLocked(func(r *entity.SpendingRequest) bool {
		return r.Status == entity.StatusPending && actor.Manages(r.UserID)
	})
}

// ProcessingQueue lists requests of type t awaiting or in processing
func (s *storeImpl) ProcessingQueue(ctx context.Context, t entity.SpendingType) ([]*entity.SpendingRequest, error) {
	if !t.IsValid() {
		return nil, fmt.Errorf("%w: unknown request type %q", ErrInvalidInput, t)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	actor := s.actor(ctx)
	if !actor.CanProcess(t) {
		return nil, fmt.Errorf("%w: %s cannot process %s requests", ErrUnauthorized, actor.ID, t)
	}
	return s.filterLocked(func(r *entity.SpendingRequest) bool {
		if r.Type != t {
			return false
		}
		switch r.Status {
		case entity.StatusApproved, entity.StatusProcessing, entity.StatusOrdered:
			return true
		}
		return false
	}), nil
}

func (s *storeImpl) CurrentUser(ctx context.Context) entity.CurrentUser {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := s.actor(ctx)
	u.DirectReports = append([]string{}, u.DirectReports...)
	return u
}

func (s *storeImpl) Reference(ctx context.Context) entity.ReferenceData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return entity.ReferenceData{
		Users:      append([]entity.User{}, s.reference.Users...),
		Projects:   append([]entity.Project{}, s.reference.Projects...),
		Activities: append([]entity.Activity{}, s.reference.Activities...),
		Tasks:      append([]entity.Task{}, s.reference.Tasks...),
	}
}

// Hydrate installs a loader snapshot: reference data, the current user and upstream history
func (s *storeImpl) Hydrate(ctx context.Context, snap *reference.Snapshot) {
	if snap == nil {
		return
	}

	s.mu.Lock()
	s.reference = snap.Reference
	s.currentUser = snap.CurrentUser
	updated, removed := s.refreshUpstreamLocked(snap.History, historyComplete(snap))
	added := s.importLocked(ctx, snap.History, nil, false)
	s.mu.Unlock()

	s.logger.Info("Store hydrated",
		"current_user", snap.CurrentUser.ID,
		"imported", added,
		"updated", updated,
		"removed", removed,
		"failed_sources", snap.Failed,
	)
	s.notify(ctx, event.TypeStoreHydrated, "", snap.CurrentUser.ID, map[string]interface{}{
		"imported": added,
		"updated":  updated,
		"removed":  removed,
	})
}

// historyComplete reports whether snap.History is the full upstream window
func historyComplete(snap *reference.Snapshot) bool {
	for _, source := range snap.Failed {
		if source == "expenses" || source == "load" {
			return false
		}
	}
	return true
}

// refreshUpstreamLocked replaces upstream records nobody changed here with their fresh copy
// and, when history is complete, drops the ones upstream no longer returns. Upstream records
// mutated in this store (version above 1) are kept as they are.
func (s *storeImpl) refreshUpstreamLocked(history []*entity.SpendingRequest, complete bool) (updated, removed int) {
	fresh := make(map[string]*entity.SpendingRequest, len(history))
	for _, r := range history {
		if r != nil && r.ID != "" {
			fresh[r.ID] = r
		}
	}

	kept := s.requests[:0]
	for _, req := range s.requests {
		if req.Source != entity.SourceWorkdeck || req.Version > 1 {
			kept = append(kept, req)
			continue
		}
		if r, ok := fresh[req.ID]; ok {
			*req = *prepareImported(r)
			updated++
			kept = append(kept, req)
			continue
		}
		if !complete {
			kept = append(kept, req)
			continue
		}
		delete(s.index, req.ID)
		delete(s.history, req.ID)
		removed++
	}
	for i := len(kept); i < len(s.requests); i++ {
		s.requests[i] = nil
	}
	s.requests = kept
	return updated, removed
}

// Import adds requests and suppliers whose ids are not yet known, e.g. fixtures
func (s *storeImpl) Import(ctx context.Context, requests []*entity.SpendingRequest, suppliers []*entity.Supplier) int {
	s.mu.Lock()
	added := s.importLocked(ctx, requests, suppliers, true)
	s.mu.Unlock()

	s.notify(ctx, event.TypeStoreHydrated, "", "", map[string]interface{}{"imported": added})
	return added
}

// Restore reloads persisted requests and suppliers. It is meant to run once at startup.
func (s *storeImpl) Restore(ctx context.Context) error {
	var (
		requests  []*entity.SpendingRequest
		suppliers []*entity.Supplier
		err       error
	)
	if s.requestRepo != nil {
		if requests, err = s.requestRepo.List(ctx); err != nil {
			return fmt.Errorf("list requests: %w", err)
		}
	}
	if s.supplierRepo != nil {
		if suppliers, err = s.supplierRepo.List(ctx); err != nil {
			return fmt.Errorf("list suppliers: %w", err)
		}
	}

	s.mu.Lock()
	added := s.importLocked(ctx, requests, suppliers, false)
	s.mu.Unlock()

	s.logger.Info("Store restored", "requests", added, "suppliers", len(suppliers))
	return nil
}

// prepareImported copies r and fills what an imported record may leave out
func prepareImported(r *entity.SpendingRequest) *entity.SpendingRequest {
	req := r.Clone()
	if req.Source == "" {
		req.Source = entity.SourceLocal
	}
	if req.Source == entity.SourceLocal {
		aggregate.Apply(req)
	}
	if req.LineItems == nil {
		req.LineItems = []entity.SpendingLineItem{}
	}
	if req.Currencies == nil {
		req.Currencies = []string{}
	}
	if req.Version < 1 {
		req.Version = 1
	}
	return req
}

// importLocked appends unknown requests after the existing ones and returns how many were added.
// Local requests get their totals recomputed; upstream ones keep the totals they came with.
func (s *storeImpl) importLocked(ctx context.Context, requests []*entity.SpendingRequest, suppliers []*entity.Supplier, persist bool) int {
	added := 0
	for _, r := range requests {
		if r == nil || r.ID == "" {
			continue
		}
		if _, exists := s.index[r.ID]; exists {
			continue
		}
		req := prepareImported(r)
		if persist && s.requestRepo != nil {
			if err := s.requestRepo.Save(ctx, req); err != nil {
				s.logger.Error("Failed to persist imported request", "request_id", req.ID, "error", err)
			}
		}
		s.requests = append(s.requests, req)
		s.index[req.ID] = req
		added++
	}

	known := make(map[string]bool, len(s.suppliers))
	for _, sup := range s.suppliers {
		known[sup.ID] = true
	}
	for _, sup := range suppliers {
		if sup == nil || sup.ID == "" || known[sup.ID] {
			continue
		}
		c := *sup
		if persist && s.supplierRepo != nil {
			if err := s.supplierRepo.Create(ctx, &c); err != nil {
				s.logger.Error("Failed to persist imported supplier", "supplier_id", c.ID, "error", err)
			}
		}
		s.suppliers = append(s.suppliers, &c)
		known[c.ID] = true
	}
	return added
}
