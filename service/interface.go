package service

import (
	"context"

	"storefront/store"
)

type CartServiceInterface interface {
	GetCart(ctx context.Context, sessionID string) (CartDTO, error)
	AddItem(ctx context.Context, sessionID string, productID int64, qty int) (CartDTO, error)
	UpdateQuantity(ctx context.Context, sessionID string, lineItemID int64, qty int) (CartDTO, error)
	RemoveItem(ctx context.Context, sessionID string, lineItemID int64) (CartDTO, error)
	ClearCart(ctx context.Context, sessionID string) (CartDTO, error)
}

type CatalogServiceInterface interface {
	ListProducts(ctx context.Context, f store.ProductFilter) ([]ProductDTO, error)
	GetProduct(ctx context.Context, id int64) (ProductDTO, error)
}

type CheckoutServiceInterface interface {
	Checkout(ctx context.Context, req CheckoutRequest) (OrderDTO, error)
	GetOrder(ctx context.Context, sessionID string, userID *int64, id int64) (OrderDTO, error)
}

type AccountServiceInterface interface {
	Register(ctx context.Context, email, password, name string) (UserDTO, error)
	Authenticate(ctx context.Context, email, password string) (UserDTO, error)
	GetUser(ctx context.Context, id int64) (UserDTO, error)
	UpdateProfile(ctx context.Context, id int64, name string) (UserDTO, error)
	ChangePassword(ctx context.Context, id int64, current, next string) error
}
