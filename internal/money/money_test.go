package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewNormalizesCurrency(t *testing.T) {
	m, err := New(decimal.NewFromInt(10), " brl ")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if m.Currency != "BRL" {
		t.Fatalf("expected BRL, got %s", m.Currency)
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(decimal.NewFromInt(1), "reais"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, err := New(decimal.NewFromInt(1), "R$1"); !errors.Is(err, ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
	if _, err := New(decimal.NewFromInt(-1), "BRL"); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestAddAndSub(t *testing.T) {
	a := MustNew("10.50", "BRL")
	b := MustNew("4.25", "BRL")

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if sum.Amount.String() != "14.75" {
		t.Fatalf("expected 14.75, got %s", sum.Amount)
	}

	diff, err := a.Sub(b)
	if err != nil {
		t.Fatalf("Sub returned error: %v", err)
	}
	if diff.Amount.String() != "6.25" {
		t.Fatalf("expected 6.25, got %s", diff.Amount)
	}
}

func TestSubRejectsNegativeResult(t *testing.T) {
	a := MustNew("1", "BRL")
	b := MustNew("2", "BRL")
	if _, err := a.Sub(b); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestCurrencyMismatch(t *testing.T) {
	brl := MustNew("1", "BRL")
	usd := MustNew("1", "USD")

	if _, err := brl.Add(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Add: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := brl.Sub(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Sub: expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := brl.Cmp(usd); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("Cmp: expected ErrCurrencyMismatch, got %v", err)
	}
}

func TestCmp(t *testing.T) {
	a := MustNew("2", "BRL")
	b := MustNew("3", "BRL")

	got, err := a.Cmp(b)
	if err != nil {
		t.Fatalf("Cmp returned error: %v", err)
	}
	if got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

func TestPercentageBounds(t *testing.T) {
	if _, err := NewPercentage(decimal.NewFromInt(-1)); !errors.Is(err, ErrPercentageOutOfRange) {
		t.Fatalf("expected ErrPercentageOutOfRange, got %v", err)
	}
	if _, err := NewPercentage(decimal.NewFromFloat(100.01)); !errors.Is(err, ErrPercentageOutOfRange) {
		t.Fatalf("expected ErrPercentageOutOfRange, got %v", err)
	}
	if _, err := NewPercentage(decimal.NewFromInt(100)); err != nil {
		t.Fatalf("100 should be valid, got %v", err)
	}
	if _, err := NewPercentage(decimal.Zero); err != nil {
		t.Fatalf("0 should be valid, got %v", err)
	}
}

func TestPercentageOf(t *testing.T) {
	total := MustNew("1000", "BRL")
	share, err := MustPercentage("60").Of(total)
	if err != nil {
		t.Fatalf("Of returned error: %v", err)
	}
	if !share.Amount.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected 600, got %s", share.Amount)
	}
}

func TestPercentageAddUnbounded(t *testing.T) {
	sum := MustPercentage("60").AddUnbounded(MustPercentage("40.5"))
	if sum.String() != "100.5" {
		t.Fatalf("expected 100.5, got %s", sum)
	}
}
