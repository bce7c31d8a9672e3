package model

import "github.com/shopspring/decimal"

// Product is a catalog record. The cart only ever reads it.
type Product struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Brand       string           `json:"brand,omitempty"`
	Price       decimal.Decimal  `json:"price"`
	Discount    *decimal.Decimal `json:"discount,omitempty"` // percentage 0-100
	Stock       int              `json:"stock"`
	ImageURL    string           `json:"imageUrl,omitempty"`
}

// DiscountPercent returns the discount percentage, zero when absent.
func (p Product) DiscountPercent() decimal.Decimal {
	if p.Discount == nil {
		return decimal.Zero
	}
	return *p.Discount
}
