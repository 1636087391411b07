package service

import (
	"errors"
	"fmt"

	domainwf "github.com/workdeck/spending/internal/domain/workflow"
)

var (
	// ErrNotFound is returned for unknown request, line item or supplier ids
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when the acting user lacks the right for an operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when the expected version does not match the stored one
	ErrConflict = errors.New("version conflict")

	// ErrInvalidLineItem is returned for line items with negative values
	ErrInvalidLineItem = errors.New("invalid line item")

	// ErrInvalidReceipt is returned for empty or unsupported receipt files
	ErrInvalidReceipt = errors.New("invalid receipt")

	// ErrInvalidInput is returned for malformed arguments such as an unknown request type
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is the lifecycle rejection, re-exported for callers of the store
	ErrInvalidTransition = domainwf.ErrInvalidTransition

	// ErrNotEditable is returned when content changes hit a request outside Draft or Denied.
	// It matches ErrInvalidTransition.
	ErrNotEditable = fmt.Errorf("%w: request content is locked in its current status", domainwf.ErrInvalidTransition)
)
