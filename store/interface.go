package store

import (
	"context"
	"time"

	"storefront/model"
)

// ProductFilter narrows ListProducts. Empty fields match everything.
type ProductFilter struct {
	Category string
	Brand    string
}

// Catalog is the read-only product reference data the cart joins against.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) ([]model.Product, error)
}

// CartStore owns line items. Every read is scoped by session id.
type CartStore interface {
	ListItems(ctx context.Context, sessionID string) ([]model.CartLine, error)
	FindBySessionAndProduct(ctx context.Context, sessionID string, productID int64) (model.LineItem, bool, error)
	GetItem(ctx context.Context, id int64) (model.LineItem, bool, error)
	AddItem(ctx context.Context, sessionID string, productID int64, qty int) (model.LineItem, error)
	// SetQuantity deletes the row when qty <= 0 and returns its last state
	// with removed set.
	SetQuantity(ctx context.Context, id int64, qty int) (item model.LineItem, removed bool, err error)
	RemoveItem(ctx context.Context, id int64) (bool, error)
	ClearSession(ctx context.Context, sessionID string) error
	// SweepIdle drops the rows of every session whose last cart mutation is
	// older than before and returns how many non-empty carts were evicted.
	SweepIdle(ctx context.Context, before time.Time) (int, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u model.User) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	GetUserByID(ctx context.Context, id int64) (model.User, error)
	UpdateUser(ctx context.Context, u model.User) error
}

// OrderBuilder turns the session's cart lines into an order. An error
// aborts the checkout with nothing written and is returned unchanged.
type OrderBuilder func(lines []model.CartLine) (model.Order, error)

type OrderStore interface {
	// Checkout reads the session's cart, stores the order built from it and
	// removes the ordered lines as one atomic step. Lines added to the
	// session concurrently are either ordered or left in the cart.
	Checkout(ctx context.Context, sessionID string, build OrderBuilder) (model.Order, error)
	GetOrder(ctx context.Context, id int64) (model.Order, error)
}

// Store is everything the services need from a backend.
type Store interface {
	Catalog
	CartStore
	UserStore
	OrderStore

	Close() error
}
