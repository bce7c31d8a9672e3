package service

import (
	"time"

	"storefront/model"
	"storefront/pricing"
)

type ProductDTO struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Category    string        `json:"category,omitempty"`
	Brand       string        `json:"brand,omitempty"`
	Price       pricing.Money `json:"price"`
	Discount    *float64      `json:"discount,omitempty"`
	Stock       int           `json:"stock"`
	ImageURL    string        `json:"imageUrl,omitempty"`
}

func toProductDTO(p model.Product) ProductDTO {
	out := ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Brand:       p.Brand,
		Price:       pricing.NewMoney(p.Price),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
	}
	if p.Discount != nil {
		f := p.Discount.InexactFloat64()
		out.Discount = &f
	}
	return out
}

// CartItemDTO is a line item joined with its product.
type CartItemDTO struct {
	ID        int64         `json:"id"`
	SessionID string        `json:"sessionId"`
	ProductID int64         `json:"productId"`
	Quantity  int           `json:"quantity"`
	Product   ProductDTO    `json:"product"`
	LineTotal pricing.Money `json:"lineTotal"`
}

// CartDTO is the computed view returned by every cart operation.
type CartDTO struct {
	SessionID string        `json:"sessionId"`
	Items     []CartItemDTO `json:"items"`
	Subtotal  pricing.Money `json:"subtotal"`
	Discount  pricing.Money `json:"discount"`
	Total     pricing.Money `json:"total"`
	ItemCount int           `json:"itemCount"`
}

func toCartDTO(sessionID string, lines []model.CartLine) CartDTO {
	totals := pricing.Compute(lines)
	items := make([]CartItemDTO, 0, len(lines))
	for _, l := range lines {
		items = append(items, CartItemDTO{
			ID:        l.ID,
			SessionID: l.SessionID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Product:   toProductDTO(l.Product),
			LineTotal: pricing.NewMoney(pricing.LineTotal(l)),
		})
	}
	return CartDTO{
		SessionID: sessionID,
		Items:     items,
		Subtotal:  pricing.NewMoney(totals.Subtotal),
		Discount:  pricing.NewMoney(totals.Discount),
		Total:     pricing.NewMoney(totals.Total),
		ItemCount: totals.ItemCount,
	}
}

type OrderItemDTO struct {
	ProductID int64         `json:"productId"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Discount  float64       `json:"discount"`
	Quantity  int           `json:"quantity"`
	LineTotal pricing.Money `json:"lineTotal"`
}

type OrderDTO struct {
	ID              int64          `json:"id"`
	UserID          *int64         `json:"userId,omitempty"`
	Email           string         `json:"email"`
	ShippingAddress string         `json:"shippingAddress"`
	Items           []OrderItemDTO `json:"items"`
	Subtotal        pricing.Money  `json:"subtotal"`
	Discount        pricing.Money  `json:"discount"`
	Total           pricing.Money  `json:"total"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func toOrderDTO(o model.Order) OrderDTO {
	items := make([]OrderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemDTO{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: pricing.NewMoney(it.UnitPrice),
			Discount:  it.Discount.InexactFloat64(),
			Quantity:  it.Quantity,
			LineTotal: pricing.NewMoney(it.LineTotal),
		})
	}
	return OrderDTO{
		ID:              o.ID,
		UserID:          o.UserID,
		Email:           o.Email,
		ShippingAddress: o.ShippingAddress,
		Items:           items,
		Subtotal:        pricing.NewMoney(o.Subtotal),
		Discount:        pricing.NewMoney(o.Discount),
		Total:           pricing.NewMoney(o.Total),
		CreatedAt:       o.CreatedAt,
	}
}

type UserDTO struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserDTO(u model.User) UserDTO {
	return UserDTO{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}
