// Package money defines the monetary value objects shared by every
// financial aggregate. Amounts are exact decimals; arithmetic between
// mismatched currencies is rejected, never coerced.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrNegativeAmount   = errors.New("negative_amount")
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	ErrNegativeFactor   = errors.New("negative_factor")
)

// Money is a non-negative amount tagged with an ISO-4217 currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New validates and builds a Money value.
func New(amount decimal.Decimal, currency string) (Money, error) {
	code, err := normalizeCurrency(currency)
	if err != nil {
		return Money{}, err
	}
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: amount, Currency: code}, nil
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) (Money, error) {
	return New(decimal.Zero, currency)
}

// MustNew builds a Money value and panics on invalid input. Reserved for
// constants and tests where failure is a programming error.
func MustNew(amount string, currency string) Money {
	m, err := New(decimal.RequireFromString(amount), currency)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) IsZero() bool { return m.Amount.IsZero() }

// Add returns m + other, requiring equal currencies.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Sub returns m - other, requiring equal currencies and a non-negative result.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, ErrCurrencyMismatch
	}
	result := m.Amount.Sub(other.Amount)
	if result.IsNegative() {
		return Money{}, ErrNegativeAmount
	}
	return Money{Amount: result, Currency: m.Currency}, nil
}

// Cmp compares amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, ErrCurrencyMismatch
	}
	return m.Amount.Cmp(other.Amount), nil
}

// MulFactor scales the amount by a non-negative factor.
func (m Money) MulFactor(factor decimal.Decimal) (Money, error) {
	if factor.IsNegative() {
		return Money{}, ErrNegativeFactor
	}
	return Money{Amount: m.Amount.Mul(factor), Currency: m.Currency}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.String(), m.Currency)
}

func normalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if len(code) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", ErrInvalidCurrency
		}
	}
	return code, nil
}
