// Package pricing derives cart totals from line items joined with their
// live products. Everything is computed in full decimal precision; values
// are rounded to cents only when they are presented.
package pricing

import (
	"github.com/shopspring/decimal"

	"storefront/model"
)

var hundred = decimal.NewFromInt(100)

// Totals is the priced summary of a set of cart lines.
type Totals struct {
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	ItemCount int
}

// Compute prices lines using the product values they carry. It has no side
// effects and never rounds intermediate values.
func Compute(lines []model.CartLine) Totals {
	subtotal := decimal.Zero
	discount := decimal.Zero
	count := 0
	for _, l := range lines {
		gross := LineSubtotal(l)
		subtotal = subtotal.Add(gross)
		discount = discount.Add(lineDiscount(l.Product, gross))
		count += l.Quantity
	}
	return Totals{
		Subtotal:  subtotal,
		Discount:  discount,
		Total:     subtotal.Sub(discount),
		ItemCount: count,
	}
}

// LineSubtotal is price × quantity for one line.
func LineSubtotal(l model.CartLine) decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// LineTotal is the line subtotal minus its discount, unrounded.
func LineTotal(l model.CartLine) decimal.Decimal {
	gross := LineSubtotal(l)
	return gross.Sub(lineDiscount(l.Product, gross))
}

func lineDiscount(p model.Product, gross decimal.Decimal) decimal.Decimal {
	pct := p.DiscountPercent()
	if !pct.IsPositive() {
		return decimal.Zero
	}
	return gross.Mul(pct).Div(hundred)
}

// Rounded returns a copy with every monetary value rounded to cents.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:  Round(t.Subtotal),
		Discount:  Round(t.Discount),
		Total:     Round(t.Total),
		ItemCount: t.ItemCount,
	}
}

// Round applies the presentation rounding (half away from zero, 2 places).
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
