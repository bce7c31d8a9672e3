package service

import (
	"context"
	"time"

	"storefront/model"
	"storefront/store"
)

// ---- fakeCarts implementing store.CartStore for tests ----
type fakeCarts struct {
	ListItemsFn    func(sessionID string) ([]model.CartLine, error)
	GetItemFn      func(id int64) (model.LineItem, bool, error)
	AddItemFn      func(sessionID string, productID int64, qty int) (model.LineItem, error)
	SetQuantityFn  func(id int64, qty int) (model.LineItem, bool, error)
	RemoveItemFn   func(id int64) (bool, error)
	ClearSessionFn func(sessionID string) error
	SweepIdleFn    func(before time.Time) (int, error)
}

func (f *fakeCarts) ListItems(_ context.Context, sessionID string) ([]model.CartLine, error) {
	if f.ListItemsFn == nil {
		return []model.CartLine{}, nil
	}
	return f.ListItemsFn(sessionID)
}
func (f *fakeCarts) FindBySessionAndProduct(context.Context, string, int64) (model.LineItem, bool, error) {
	return model.LineItem{}, false, nil
}
func (f *fakeCarts) GetItem(_ context.Context, id int64) (model.LineItem, bool, error) {
	return f.GetItemFn(id)
}
func (f *fakeCarts) AddItem(_ context.Context, sessionID string, productID int64, qty int) (model.LineItem, error) {
	return f.AddItemFn(sessionID, productID, qty)
}
func (f *fakeCarts) SetQuantity(_ context.Context, id int64, qty int) (model.LineItem, bool, error) {
	return f.SetQuantityFn(id, qty)
}
func (f *fakeCarts) RemoveItem(_ context.Context, id int64) (bool, error) { return f.RemoveItemFn(id) }
func (f *fakeCarts) ClearSession(_ context.Context, sessionID string) error {
	return f.ClearSessionFn(sessionID)
}
func (f *fakeCarts) SweepIdle(_ context.Context, before time.Time) (int, error) {
	return f.SweepIdleFn(before)
}

// ---- fakeOrders implementing store.OrderStore ----
type fakeOrders struct {
	CheckoutFn func(sessionID string, build store.OrderBuilder) (model.Order, error)
	GetOrderFn func(id int64) (model.Order, error)
}

func (f *fakeOrders) Checkout(_ context.Context, sessionID string, build store.OrderBuilder) (model.Order, error) {
	return f.CheckoutFn(sessionID, build)
}
func (f *fakeOrders) GetOrder(_ context.Context, id int64) (model.Order, error) {
	return f.GetOrderFn(id)
}
