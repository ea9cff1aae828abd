package models

import (
	"errors"
	"fmt"
)

// Domain errors surfaced by the sale transaction engine. Handlers map these
// to HTTP status codes with errors.Is / errors.As.
var (
	ErrNotFound             = errors.New("not found")
	ErrSaleAlreadyCancelled = errors.New("sale already cancelled")
	ErrSaleCancelled        = errors.New("cannot add payment to cancelled sale")
	ErrInvalidPayment       = errors.New("invalid payment")
	ErrEmptyReason          = errors.New("cancellation reason is required")
	ErrNoItems              = errors.New("sale must have at least one item")
)

// InsufficientStockError identifies the first product whose available stock
// could not cover the requested quantity.
type InsufficientStockError struct {
	ProductID int64
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available=%d, requested=%d",
		e.ProductID, e.Available, e.Requested)
}
