package store

import "github.com/pkg/errors"

var (
	// ErrProductNotFound is returned when a caller references a product
	// that is not in the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrProductMissing means a stored line item points at a product that
	// has since left the catalog. It is an integrity failure, not bad input.
	ErrProductMissing   = errors.New("cart references a missing product")
	ErrLineItemNotFound = errors.New("line item not found")
	ErrInvalidQuantity  = errors.New("quantity must be >= 1")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered")
	ErrOrderNotFound    = errors.New("order not found")
)
