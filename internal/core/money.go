// Package core provides the finanzas domain model.
//
// This file contains the fixed-point money type used for every amount in
// the system. Amounts carry two decimal places; direction (income vs
// expense) is carried by the transaction type, never by the sign.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point monetary amount with two decimal places.
// The zero value is 0.00.
type Money struct {
	Amount decimal.Decimal
}

// ParseMoney parses a decimal string into Money, rounding half-up on the
// third decimal place. It accepts both dot (12.34) and comma (12,34)
// separators. Negative amounts are accepted; Validate rejects them where
// a strictly positive amount is required.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{Amount: d.Round(2)}, nil
}

// MustMoney is ParseMoney for trusted literals; it panics on bad input.
// Intended for tests and seed data only.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic("core: bad money literal " + s + ": " + err.Error())
	}
	return m
}

// MoneyFromFloat converts a float to Money with half-up rounding on the
// third decimal place. Use ParseMoney on user input to avoid float noise.
func MoneyFromFloat(f float64) Money {
	return Money{Amount: decimal.NewFromFloat(f).Round(2)}
}

// MoneyZero returns 0.00.
func MoneyZero() Money {
	return Money{Amount: decimal.Zero}
}

func (m Money) Add(o Money) Money {
	return Money{Amount: m.Amount.Add(o.Amount)}
}

func (m Money) Sub(o Money) Money {
	return Money{Amount: m.Amount.Sub(o.Amount)}
}

func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg()}
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) IsNegative() bool {
	return m.Amount.IsNegative()
}

func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// Cmp returns -1, 0 or 1 comparing m to o.
func (m Money) Cmp(o Money) int {
	return m.Amount.Cmp(o.Amount)
}

func (m Money) Equal(o Money) bool {
	return m.Amount.Equal(o.Amount)
}

func (m Money) LessThan(o Money) bool {
	return m.Amount.LessThan(o.Amount)
}

// Float64 returns the amount as a float for display purposes.
// Use the decimal operations for calculations.
func (m Money) Float64() float64 {
	f, _ := m.Amount.Float64()
	return f
}

// String renders the amount with exactly two decimal places.
func (m Money) String() string {
	return m.Amount.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = MoneyZero()
		return nil
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Validate rejects amounts that are not strictly positive. Transaction
// amounts must always pass this; balances may legitimately be negative.
func (m Money) Validate() error {
	if !m.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
