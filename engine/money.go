/*
Package engine provides the core types for the earnings and carryover engine.

PURPOSE:
  This package contains the value types and record definitions shared by the
  rate, timesheet, and minijob packages: monetary amounts, calendar dates,
  clock times, and the persistence interfaces the services depend on.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: A monetary amount in the system currency

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Immutability: Money values are never mutated, only derived
  3. One currency: The engine tracks amounts, not currencies

SEE ALSO:
  - types.go: Domain records (rates, entries, settings, carryovers)
  - time.go: Date and ClockTime value types
  - store.go: Persistence interfaces
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Monetary amount in the system currency
// =============================================================================

type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func NewMoneyFromInt(value int) Money {
	return Money{Value: decimal.NewFromInt(int64(value))}
}

func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Value: d}
}

// MustParseMoney parses a decimal string, returning zero on malformed input.
// Intended for trusted sources (storage, constants), not user input.
func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func ZeroMoney() Money { return Money{Value: decimal.Zero} }

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) IsPositive() bool               { return m.Value.IsPositive() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }

func (m Money) String() string { return m.Value.StringFixed(2) }
