package service

import (
	"context"
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/workdeck/spending/internal/application/aggregate"
	"github.com/workdeck/spending/internal/domain/entity"
	"github.com/workdeck/spending/internal/domain/event"
)

var receiptMimeTypes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/heic",
}

func (s *storeImpl) AddLineItem(ctx context.Context, requestID string, in LineItemInput, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.mutate(ctx, requestID, opts, event.TypeLineItemAdded, func(req *entity.SpendingRequest, c *change) error {
		if err := requireOwner(c.actor, req); err != nil {
			return err
		}
		if err := requireEditable(req); err != nil {
			return err
		}

		item := in.toEntity(newItemID())
		// receipts are linked through AttachReceipt only
		item.ReceiptURL, item.ReceiptFilename = "", ""
		if err := aggregate.NormalizeLine(req.Type, &item, s.defaultCurrency); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLineItem, err)
		}
		req.LineItems = append(req.LineItems, item)
		aggregate.Apply(req)

		c.payload["itemId"] = item.ID
		return nil
	})
}

func (s *storeImpl) UpdateLineItem(ctx context.Context, requestID, itemID string, update LineItemUpdate, opts ...MutationOption) (*entity.SpendingRequest, error) {
	return s.mutate(ctx, requestID, opts, event.TypeLineItemUpdated, func(req *entity.SpendingRequest, c *change) error {
		if err := requireOwner(c.actor, req); err != nil {
			return err
		}
		if err := requireEditable(req); err != nil {
			return err
		}

		idx := req.FindLineItem(itemID)
		if idx < 0 {
			return fmt.Errorf("%w: line item %s in request %s", ErrNotFound, itemID, requestID)
		}
		item := req.LineItems[idx]
		update.applyTo(&item)
		if err := aggregate.NormalizeLine(req.Type, &item, s.defaultCurrency); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidLineItem, err)
		}
		req.LineItems[idx] = item
		aggregate.Apply(req)

		c.payload["itemId"] = itemID
		return nil
	})
}

// DeleteLineItem removes the item even when it is the last one, then its receipt
func (s *storeImpl) DeleteLineItem(ctx context.Context, requestID, itemID string, opts ...MutationOption) (*entity.SpendingRequest, error) {
	var dropped []string
	out, err := s.mutate(ctx, requestID, opts, event.TypeLineItemDeleted, func(req *entity.SpendingRequest, c *change) error {
		if err := requireOwner(c.actor, req); err != nil {
			return err
		}
		if err := requireEditable(req); err != nil {
			return err
		}

		idx := req.FindLineItem(itemID)
		if idx < 0 {
			return fmt.Errorf("%w: line item %s in request %s", ErrNotFound, itemID, requestID)
		}
		if url := req.LineItems[idx].ReceiptURL; url != "" {
			dropped = []string{url}
		}
		req.LineItems = append(req.LineItems[:idx], req.LineItems[idx+1:]...)
		aggregate.Apply(req)

		c.payload["itemId"] = itemID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.removeReceipts(ctx, requestID, dropped)
	return out, nil
}

// AttachReceipt stores a PDF or image and links it to the line item. Every upload gets its
// own file, so a rejected call never touches the receipt already attached. The replaced
// receipt is removed once the new one is linked.
func (s *storeImpl) AttachReceipt(ctx context.Context, requestID, itemID, filename string, content []byte, opts ...MutationOption) (*entity.SpendingRequest, error) {
	if s.receipts == nil {
		return nil, fmt.Errorf("%w: receipt storage is not configured", ErrInvalidInput)
	}
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidReceipt)
	}
	mt := mimetype.Detect(content)
	if !mimetype.EqualsAny(mt.String(), receiptMimeTypes...) {
		return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidReceipt, mt.String())
	}

	check := func(req *entity.SpendingRequest, actor entity.CurrentUser) (int, error) {
		if err := requireOwner(actor, req); err != nil {
			return -1, err
		}
		if err := requireEditable(req); err != nil {
			return -1, err
		}
		idx := req.FindLineItem(itemID)
		if idx < 0 {
			return -1, fmt.Errorf("%w: line item %s in request %s", ErrNotFound, itemID, requestID)
		}
		return idx, nil
	}
	if err := s.precheck(ctx, requestID, opts, func(req *entity.SpendingRequest, actor entity.CurrentUser) error {
		_, err := check(req, actor)
		return err
	}); err != nil {
		return nil, err
	}

	url, err := s.receipts.SaveReceipt(ctx, requestID, itemID, filename, content)
	if err != nil {
		s.logger.Error("Failed to store receipt", "request_id", requestID, "item_id", itemID, "error", err)
		return nil, fmt.Errorf("store receipt: %w", err)
	}

	var previous string
	out, err := s.mutate(ctx, requestID, opts, event.TypeReceiptAttached, func(req *entity.SpendingRequest, c *change) error {
		idx, err := check(req, c.actor)
		if err != nil {
			return err
		}
		previous = req.LineItems[idx].ReceiptURL
		req.LineItems[idx].ReceiptURL = url
		req.LineItems[idx].ReceiptFilename = filename

		c.payload["itemId"] = itemID
		c.payload["mimeType"] = mt.String()
		return nil
	})
	if err != nil {
		s.removeReceipts(ctx, requestID, []string{url})
		return nil, err
	}
	if previous != "" && previous != url {
		s.removeReceipts(ctx, requestID, []string{previous})
	}
	return out, nil
}

// precheck runs the checks of a mutation against the current request without changing it
func (s *storeImpl) precheck(ctx context.Context, id string, opts []MutationOption, check func(req *entity.SpendingRequest, actor entity.CurrentUser) error) error {
	cfg := mutationConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.index[id]
	if !ok {
		return fmt.Errorf("%w: request %s", ErrNotFound, id)
	}
	if cfg.expectedVersion != 0 && cfg.expectedVersion != req.Version {
		return fmt.Errorf("%w: request %s is at version %d, expected %d", ErrConflict, id, req.Version, cfg.expectedVersion)
	}
	return check(req, s.actor(ctx))
}

// removeReceipts deletes stored files best effort; failures are only logged
func (s *storeImpl) removeReceipts(ctx context.Context, requestID string, urls []string) {
	if s.receipts == nil {
		return
	}
	for _, url := range urls {
		if err := s.receipts.Delete(ctx, url); err != nil {
			s.logger.Error("Failed to remove receipt", "request_id", requestID, "url", url, "error", err)
		}
	}
}

// droppedReceipts returns the receipt URLs of before that no item of after still references
func droppedReceipts(before, after []entity.SpendingLineItem) []string {
	kept := make(map[string]bool, len(after))
	for _, item := range after {
		if item.ReceiptURL != "" {
			kept[item.ReceiptURL] = true
		}
	}
	var dropped []string
	for _, item := range before {
		if item.ReceiptURL != "" && !kept[item.ReceiptURL] {
			dropped = append(dropped, item.ReceiptURL)
		}
	}
	return dropped
}

// ownReceipts clears receipt links in items that none of before carried, so a replacement
// can keep the request's receipts but never adopt another request's file
func ownReceipts(before, items []entity.SpendingLineItem) {
	owned := make(map[string]bool, len(before))
	for _, item := range before {
		if item.ReceiptURL != "" {
			owned[item.ReceiptURL] = true
		}
	}
	for i := range items {
		if !owned[items[i].ReceiptURL] {
			items[i].ReceiptURL, items[i].ReceiptFilename = "", ""
		}
	}
}
