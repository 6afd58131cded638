// Package core holds the invoice domain model, the typed filter criteria used
// to query it and the shapes returned by the analytics operations.
//
// This file contains the exact-decimal Money type used for every amount.
package core

import (
	"bytes"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Money is an exact decimal amount. It encodes to JSON as a bare number.
type Money struct {
	decimal.Decimal
}

var Zero = Money{decimal.Zero}

// ParseMoney parses a decimal string. Both "12.34" and "12,34" are accepted.
func ParseMoney(s string) (Money, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d}, nil
}

// MustMoney is ParseMoney for literals known to be valid.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

func NewMoneyFromInt(v int64) Money {
	return Money{decimal.NewFromInt(v)}
}

func (m Money) Add(o Money) Money {
	return Money{m.Decimal.Add(o.Decimal)}
}

func (m Money) Cmp(o Money) int {
	return m.Decimal.Cmp(o.Decimal)
}

func (m Money) Equal(o Money) bool {
	return m.Decimal.Equal(o.Decimal)
}

// Mean divides m by n, rounding half away from zero to two places. n <= 0 yields Zero.
func (m Money) Mean(n int) Money {
	if n <= 0 {
		return Zero
	}
	return Money{m.Decimal.DivRound(decimal.NewFromInt(int64(n)), 2)}
}

// Sum adds every amount; an empty input sums to Zero.
func Sum(amounts ...Money) Money {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*m = Zero
		return nil
	}
	return m.Decimal.UnmarshalJSON(data)
}
