package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrPercentageOutOfRange = errors.New("percentage_out_of_range")

var hundred = decimal.NewFromInt(100)

// Percentage is a share bounded to [0, 100].
type Percentage struct {
	Value decimal.Decimal
}

// NewPercentage validates and builds a Percentage.
func NewPercentage(value decimal.Decimal) (Percentage, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percentage{}, ErrPercentageOutOfRange
	}
	return Percentage{Value: value}, nil
}

// MustPercentage builds a Percentage from a decimal literal and panics on
// invalid input.
func MustPercentage(value string) Percentage {
	p, err := NewPercentage(decimal.RequireFromString(value))
	if err != nil {
		panic(err)
	}
	return p
}

// Of calculates the share this percentage represents of the given total.
func (p Percentage) Of(total Money) (Money, error) {
	return total.MulFactor(p.Value.Div(hundred))
}

// AddUnbounded sums two percentages without the 100 cap. Used when testing a
// running total against the limit: the caller decides whether the sum is legal.
func (p Percentage) AddUnbounded(other Percentage) decimal.Decimal {
	return p.Value.Add(other.Value)
}
