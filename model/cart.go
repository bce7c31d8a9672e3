package model

import "time"

// LineItem is one cart row: a session, a product and a quantity >= 1.
type LineItem struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"sessionId"`
	ProductID int64     `json:"productId"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"-"`
}

// CartLine is a line item joined with the live product it references.
type CartLine struct {
	LineItem
	Product Product `json:"product"`
}
