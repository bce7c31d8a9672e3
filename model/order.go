package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the snapshot of a priced cart at checkout time.
type Order struct {
	ID              int64           `json:"id"`
	SessionID       string          `json:"-"`
	UserID          *int64          `json:"userId,omitempty"`
	Email           string          `json:"email"`
	ShippingAddress string          `json:"shippingAddress"`
	Items           []OrderItem     `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type OrderItem struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Discount  decimal.Decimal `json:"discount"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}
