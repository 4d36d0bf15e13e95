package order

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers both a missing entity and an entity that exists
	// but is not owned by the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an order is not in a status that
	// permits the requested transition.
	ErrInvalidState = errors.New("invalid order status")

	// ErrEmptyCart is returned by CreateOrder when the user has no cart lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrWouldGoNegative guards the stock non-negativity invariant under
	// concurrent mutation.
	ErrWouldGoNegative = errors.New("stock would go negative")
)

// InsufficientStockError names the first product whose live stock cannot
// cover the requested quantity.
type InsufficientStockError struct {
	Product string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q", e.Product)
}
