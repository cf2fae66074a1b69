package models

import (
	"github.com/shopspring/decimal"
)

// Money is a currency amount with two fractional digits.
// It is stored as decimal(10,2) and serialized as a JSON string ("1350.00").
type Money struct {
	decimal.Decimal
}

// NewMoney rounds d to cents
func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d.Round(2)}
}

// ParseMoney parses a decimal string such as "1350.00"
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, err
	}
	return NewMoney(d), nil
}

// MustMoney is ParseMoney for literals; it panics on malformed input.
func MustMoney(s string) Money {
	return NewMoney(decimal.RequireFromString(s))
}

// MoneyPtr returns a pointer to MustMoney(s)
func MoneyPtr(s string) *Money {
	m := MustMoney(s)
	return &m
}

// MarshalJSON always writes two fractional digits
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.StringFixed(2) + `"`), nil
}

// UnmarshalJSON accepts both "12.50" and 12.50
func (m *Money) UnmarshalJSON(data []byte) error {
	if err := m.Decimal.UnmarshalJSON(data); err != nil {
		return err
	}
	m.Decimal = m.Decimal.Round(2)
	return nil
}

// GormDataType keeps the column type identical on Postgres and SQLite
func (Money) GormDataType() string {
	return "decimal(10,2)"
}
