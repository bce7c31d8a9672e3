package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"storefront/store"
)

// CartService owns every cart mutation and derives the priced view after
// each one. Totals are never cached.
type CartService struct {
	carts store.CartStore
	log   *zap.Logger
}

var _ CartServiceInterface = (*CartService)(nil)

func NewCartService(carts store.CartStore, log *zap.Logger) *CartService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartService{carts: carts, log: log}
}

func (s *CartService) GetCart(ctx context.Context, sessionID string) (CartDTO, error) {
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, productID int64, qty int) (CartDTO, error) {
	if productID < 1 {
		return CartDTO{}, invalidInput("productId", "productId must be a positive integer")
	}
	if qty < 1 {
		return CartDTO{}, invalidInput("quantity", "quantity must be at least 1")
	}
	it, err := s.carts.AddItem(ctx, sessionID, productID, qty)
	switch {
	case errors.Is(err, store.ErrProductNotFound):
		return CartDTO{}, notFound("product %d not found", productID)
	case errors.Is(err, store.ErrInvalidQuantity):
		return CartDTO{}, invalidInput("quantity", "quantity must be at least 1")
	case err != nil:
		return CartDTO{}, err
	}
	s.log.Debug("cart item added",
		zap.String("session_id", sessionID),
		zap.Int64("line_item_id", it.ID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", it.Quantity))
	return s.snapshot(ctx, sessionID)
}

// UpdateQuantity sets an absolute quantity. A quantity of zero or less
// removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sessionID string, lineItemID int64, qty int) (CartDTO, error) {
	if err := s.owned(ctx, sessionID, lineItemID); err != nil {
		return CartDTO{}, err
	}
	it, removed, err := s.carts.SetQuantity(ctx, lineItemID, qty)
	if errors.Is(err, store.ErrLineItemNotFound) {
		return CartDTO{}, notFound("line item %d not found", lineItemID)
	}
	if err != nil {
		return CartDTO{}, err
	}
	s.log.Debug("cart item updated",
		zap.String("session_id", sessionID),
		zap.Int64("line_item_id", it.ID),
		zap.Int("quantity", qty),
		zap.Bool("removed", removed))
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID string, lineItemID int64) (CartDTO, error) {
	if err := s.owned(ctx, sessionID, lineItemID); err != nil {
		return CartDTO{}, err
	}
	ok, err := s.carts.RemoveItem(ctx, lineItemID)
	if err != nil {
		return CartDTO{}, err
	}
	if !ok {
		return CartDTO{}, notFound("line item %d not found", lineItemID)
	}
	s.log.Debug("cart item removed",
		zap.String("session_id", sessionID),
		zap.Int64("line_item_id", lineItemID))
	return s.snapshot(ctx, sessionID)
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) (CartDTO, error) {
	if err := s.carts.ClearSession(ctx, sessionID); err != nil {
		return CartDTO{}, err
	}
	s.log.Debug("cart cleared", zap.String("session_id", sessionID))
	return s.snapshot(ctx, sessionID)
}

// owned reports not-found for unknown ids and for lines of other sessions,
// so one session cannot discover another's line items.
func (s *CartService) owned(ctx context.Context, sessionID string, lineItemID int64) error {
	if lineItemID < 1 {
		return notFound("line item %d not found", lineItemID)
	}
	it, found, err := s.carts.GetItem(ctx, lineItemID)
	if err != nil {
		return err
	}
	if !found || it.SessionID != sessionID {
		return notFound("line item %d not found", lineItemID)
	}
	return nil
}

func (s *CartService) snapshot(ctx context.Context, sessionID string) (CartDTO, error) {
	lines, err := s.carts.ListItems(ctx, sessionID)
	if err != nil {
		return CartDTO{}, s.integrity(sessionID, err)
	}
	return toCartDTO(sessionID, lines), nil
}

// integrity classifies a dangling product reference. Other errors pass
// through unclassified.
func (s *CartService) integrity(sessionID string, err error) error {
	if !errors.Is(err, store.ErrProductMissing) {
		return err
	}
	s.log.Error("cart references a missing product",
		zap.String("session_id", sessionID),
		zap.Error(err))
	return &Error{Kind: KindIntegrity, Message: "cart references a missing product", Err: err}
}
