// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Quantity represents a stock quantity with full precision.
// Uses decimal.Decimal to avoid floating-point errors; maps to
// PostgreSQL NUMERIC(18,4).
type Quantity = decimal.Decimal

// Money represents a monetary value with full precision.
type Money = decimal.Decimal

// NewQuantityFromString creates a Quantity from a string.
// This is the preferred constructor for values crossing API boundaries.
func NewQuantityFromString(s string) (Quantity, error) {
	return decimal.NewFromString(s)
}

// NewQuantityFromInt creates a Quantity from an integer.
func NewQuantityFromInt(n int64) Quantity {
	return decimal.NewFromInt(n)
}

// MustQuantity creates a Quantity from a string, panics on error.
// Use only for constants and tests.
func MustQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns the zero decimal value.
func Zero() decimal.Decimal {
	return decimal.Zero
}
