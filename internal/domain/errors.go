package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services. Handlers translate these into
// the REST error envelope, services return them wrapped with context.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("permission denied")
	ErrNotFound        = errors.New("resource not found")
	ErrItemNotFound    = errors.New("cart item not found")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrOutOfStock      = errors.New("product out of stock")
	ErrInsufficient    = errors.New("insufficient stock")
	ErrProductGone     = errors.New("product no longer available")
	ErrBadTransition   = errors.New("invalid status transition")
	ErrConflict        = errors.New("resource conflict")
	ErrValidation      = errors.New("validation failed")
)

// StockError carries the product details of a failed stock reservation.
// Err is one of ErrOutOfStock, ErrInsufficient or ErrProductGone so that
// errors.Is keeps working on the wrapped value.
type StockError struct {
	Err         error
	ProductID   int64
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	switch {
	case errors.Is(e.Err, ErrInsufficient):
		return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
			e.ProductName, e.Requested, e.Available)
	case errors.Is(e.Err, ErrProductGone):
		return fmt.Sprintf("product %d no longer available", e.ProductID)
	default:
		return fmt.Sprintf("product %s is out of stock", e.ProductName)
	}
}

func (e *StockError) Unwrap() error {
	return e.Err
}

// TransitionError reports a rejected order status change.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrBadTransition
}
