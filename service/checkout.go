package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"storefront/model"
	"storefront/pricing"
	"storefront/store"
)

// CheckoutRequest carries the buyer details for turning a cart into an
// order. UserID is set when the caller is logged in.
type CheckoutRequest struct {
	SessionID       string
	UserID          *int64
	Email           string
	ShippingAddress string
}

// CheckoutService snapshots a priced cart into an order and empties it.
// The store runs read, insert and clear as one atomic step.
type CheckoutService struct {
	orders store.OrderStore
	log    *zap.Logger
}

var _ CheckoutServiceInterface = (*CheckoutService)(nil)

func NewCheckoutService(orders store.OrderStore, log *zap.Logger) *CheckoutService {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutService{orders: orders, log: log}
}

func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (OrderDTO, error) {
	email := strings.TrimSpace(req.Email)
	if !validEmail(email) {
		return OrderDTO{}, invalidInput("email", "a valid email is required")
	}
	address := strings.TrimSpace(req.ShippingAddress)
	if address == "" {
		return OrderDTO{}, invalidInput("shippingAddress", "shippingAddress is required")
	}

	created, err := s.orders.Checkout(ctx, req.SessionID, func(lines []model.CartLine) (model.Order, error) {
		if len(lines) == 0 {
			return model.Order{}, invalidInput("cart", "cart is empty")
		}
		return buildOrder(req.UserID, email, address, lines), nil
	})
	if errors.Is(err, store.ErrProductMissing) {
		s.log.Error("checkout blocked by missing product",
			zap.String("session_id", req.SessionID), zap.Error(err))
		return OrderDTO{}, &Error{Kind: KindIntegrity, Message: "cart references a missing product", Err: err}
	}
	if err != nil {
		return OrderDTO{}, err
	}
	s.log.Info("order placed",
		zap.Int64("order_id", created.ID),
		zap.String("session_id", req.SessionID),
		zap.String("total", created.Total.StringFixed(2)))
	return toOrderDTO(created), nil
}

func buildOrder(userID *int64, email, address string, lines []model.CartLine) model.Order {
	totals := pricing.Compute(lines).Rounded()
	order := model.Order{
		UserID:          userID,
		Email:           email,
		ShippingAddress: address,
		Items:           make([]model.OrderItem, 0, len(lines)),
		Subtotal:        totals.Subtotal,
		Discount:        totals.Discount,
		Total:           totals.Total,
	}
	for _, l := range lines {
		order.Items = append(order.Items, model.OrderItem{
			ProductID: l.ProductID,
			Name:      l.Product.Name,
			UnitPrice: l.Product.Price,
			Discount:  l.Product.DiscountPercent(),
			Quantity:  l.Quantity,
			LineTotal: pricing.Round(pricing.LineTotal(l)),
		})
	}
	return order
}

// GetOrder returns an order visible to the caller: placed from the same
// session or by the same logged-in user.
func (s *CheckoutService) GetOrder(ctx context.Context, sessionID string, userID *int64, id int64) (OrderDTO, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if errors.Is(err, store.ErrOrderNotFound) {
		return OrderDTO{}, notFound("order %d not found", id)
	}
	if err != nil {
		return OrderDTO{}, err
	}
	sameUser := userID != nil && o.UserID != nil && *userID == *o.UserID
	if o.SessionID != sessionID && !sameUser {
		return OrderDTO{}, notFound("order %d not found", id)
	}
	return toOrderDTO(o), nil
}
