// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals with two fractional digits. They are stored as
// integer cents and computed on as shopspring decimals, never as floats.
package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact amount quantized to cents.
type Money struct {
	value decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney quantizes d to two decimal places (half away from zero).
func NewMoney(d decimal.Decimal) Money {
	return Money{value: d.Round(2)}
}

// MoneyFromCents builds an amount from integer cents.
func MoneyFromCents(cents int64) Money {
	return Money{value: decimal.New(cents, -2)}
}

// ParseAmount parses a user supplied amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to cents. Sign and magnitude are not checked here; see Validate.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return NewMoney(d), nil
}

// Cents returns the amount in integer cents.
func (m Money) Cents() int64 {
	return m.value.Shift(2).Round(0).IntPart()
}

// Decimal exposes the underlying decimal value.
func (m Money) Decimal() decimal.Decimal {
	return m.value
}

func (m Money) Add(o Money) Money {
	return Money{value: m.value.Add(o.value)}
}

func (m Money) Sub(o Money) Money {
	return Money{value: m.value.Sub(o.value)}
}

func (m Money) IsZero() bool {
	return m.value.IsZero()
}

func (m Money) Equal(o Money) bool {
	return m.value.Equal(o.value)
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.value.StringFixed(2)
}

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a string such as "12,50".
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		*m = Zero
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// maxAmount bounds the magnitude of a stored amount: ten digits, two of them
// fractional.
var maxAmount = decimal.New(1, 8)

// Validate accepts zero and either sign; only the magnitude is bounded.
func (m Money) Validate() error {
	if m.value.Abs().GreaterThanOrEqual(maxAmount) {
		return fmt.Errorf("%w: magnitude of %s must be below %s", ErrInvalidAmount, m, maxAmount)
	}
	return nil
}
