package pricing

import "github.com/shopspring/decimal"

// Money is a presentation value: it serializes as a JSON number with
// exactly two decimals, e.g. 999.00.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: Round(d)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.StringFixed(2)), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	return m.Decimal.UnmarshalJSON(b)
}
