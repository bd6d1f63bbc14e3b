package rules

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/clock"
	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	"github.com/caiohomem/assistente-sub001/internal/money"
)

var (
	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	testDue = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

func draftAgreement(t *testing.T, total string) *agreementdomain.CommissionAgreement {
	t.Helper()
	agreement, err := agreementdomain.NewAgreement(1, 100, "Venda", "", money.MustNew(total, "BRL"), "", clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("new agreement: %v", err)
	}
	return agreement
}

func TestStrictActivationRequiresExactSplit(t *testing.T) {
	agreement := draftAgreement(t, "1000")
	clk := clock.Fixed(testNow)

	if _, err := agreement.AddParty(2, nil, nil, "A", "a@example.com", money.MustPercentage("60"), agreementdomain.PartyRoleBroker, clk); err != nil {
		t.Fatalf("add party: %v", err)
	}
	if _, err := agreement.AddParty(3, nil, nil, "B", "b@example.com", money.MustPercentage("30"), agreementdomain.PartyRoleSeller, clk); err != nil {
		t.Fatalf("add party: %v", err)
	}
	if _, err := agreement.AddMilestone(4, "entrega", money.MustNew("1000", "BRL"), testDue, clk); err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	if err := EnsureCanActivateStrict(agreement); !errors.Is(err, ErrSplitMustEqualHundred) {
		t.Fatalf("expected ErrSplitMustEqualHundred, got %v", err)
	}
}

func TestStrictActivationRequiresMilestonesCoverTotal(t *testing.T) {
	agreement := draftAgreement(t, "1000")
	clk := clock.Fixed(testNow)

	if _, err := agreement.AddParty(2, nil, nil, "A", "a@example.com", money.MustPercentage("100"), agreementdomain.PartyRoleBroker, clk); err != nil {
		t.Fatalf("add party: %v", err)
	}
	if _, err := agreement.AddMilestone(3, "entrega", money.MustNew("900", "BRL"), testDue, clk); err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	if err := EnsureCanActivateStrict(agreement); !errors.Is(err, ErrMilestonesMustEqualTotal) {
		t.Fatalf("expected ErrMilestonesMustEqualTotal, got %v", err)
	}

	if _, err := agreement.AddMilestone(4, "final", money.MustNew("100", "BRL"), testDue, clk); err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	if err := EnsureCanActivateStrict(agreement); err != nil {
		t.Fatalf("strict activation should pass, got %v", err)
	}
}

func TestDetermineApprovalPolicyThresholds(t *testing.T) {
	agreement := draftAgreement(t, "1000")

	cases := []struct {
		amount string
		want   escrowdomain.ApprovalType
	}{
		{"100", escrowdomain.ApprovalTypeAutomatic},
		{"100.01", escrowdomain.ApprovalTypeRequired},
		{"499.99", escrowdomain.ApprovalTypeRequired},
		{"500", escrowdomain.ApprovalTypeDisputed},
		{"900", escrowdomain.ApprovalTypeDisputed},
	}
	for _, tc := range cases {
		got, err := DetermineApprovalPolicy(agreement, money.MustNew(tc.amount, "BRL"))
		if err != nil {
			t.Fatalf("policy for %s: %v", tc.amount, err)
		}
		if got != tc.want {
			t.Fatalf("policy for %s: expected %s, got %s", tc.amount, tc.want, got)
		}
	}
}

func TestMilestoneEligibleForPayout(t *testing.T) {
	agreement := draftAgreement(t, "1000")
	clk := clock.Fixed(testNow)

	milestone, err := agreement.AddMilestone(2, "entrega", money.MustNew("600", "BRL"), testDue, clk)
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	if err := EnsureMilestoneEligibleForPayout(agreement, milestone, money.MustNew("600", "BRL")); !errors.Is(err, agreementdomain.ErrMilestoneNotCompleted) {
		t.Fatalf("expected ErrMilestoneNotCompleted, got %v", err)
	}

	if err := agreement.CompleteMilestone(milestone.ID, "", nil, clk); err != nil {
		t.Fatalf("complete milestone: %v", err)
	}
	if err := EnsureMilestoneEligibleForPayout(agreement, milestone, money.MustNew("600.01", "BRL")); !errors.Is(err, agreementdomain.ErrPayoutExceedsMilestone) {
		t.Fatalf("expected ErrPayoutExceedsMilestone, got %v", err)
	}
	if err := EnsureMilestoneEligibleForPayout(agreement, milestone, money.MustNew("600", "USD")); !errors.Is(err, agreementdomain.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if err := EnsureMilestoneEligibleForPayout(agreement, milestone, money.MustNew("600", "BRL")); err != nil {
		t.Fatalf("eligible payout rejected: %v", err)
	}

	other := &agreementdomain.Milestone{ID: 99, AgreementID: 777, Status: agreementdomain.MilestoneStatusCompleted, Currency: "BRL", Value: decimal.NewFromInt(10)}
	if err := EnsureMilestoneEligibleForPayout(agreement, other, money.MustNew("10", "BRL")); !errors.Is(err, agreementdomain.ErrMilestoneNotOfAgreement) {
		t.Fatalf("expected ErrMilestoneNotOfAgreement, got %v", err)
	}
}

func TestEnsureEscrowCoverage(t *testing.T) {
	account, err := escrowdomain.NewAccount(1, 10, 100, "BRL", clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("new account: %v", err)
	}
	if _, err := account.RegisterDeposit(2, money.MustNew("100", "BRL"), "", escrowdomain.TransactionStatusCompleted, "", "dep-1", clock.Fixed(testNow)); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if err := EnsureEscrowCoverage(account, money.MustNew("100.01", "BRL")); !errors.Is(err, escrowdomain.ErrInsufficientEscrowBalance) {
		t.Fatalf("expected ErrInsufficientEscrowBalance, got %v", err)
	}
	if err := EnsureEscrowCoverage(account, money.MustNew("100", "USD")); !errors.Is(err, escrowdomain.ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if err := EnsureEscrowCoverage(account, money.MustNew("100", "BRL")); err != nil {
		t.Fatalf("coverage should pass, got %v", err)
	}
}

func TestOutstandingValue(t *testing.T) {
	agreement := draftAgreement(t, "1000")
	clk := clock.Fixed(testNow)

	m1, err := agreement.AddMilestone(2, "parte 1", money.MustNew("600", "BRL"), testDue, clk)
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	if _, err := agreement.AddMilestone(3, "parte 2", money.MustNew("400", "BRL"), testDue, clk); err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	if err := agreement.CompleteMilestone(m1.ID, "", nil, clk); err != nil {
		t.Fatalf("complete milestone: %v", err)
	}

	if got := OutstandingValue(agreement); !got.Amount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("expected 400 outstanding, got %s", got.Amount)
	}
}

func TestOverdueMilestones(t *testing.T) {
	agreement := draftAgreement(t, "1000")
	clk := clock.Fixed(testNow)

	if _, err := agreement.AddMilestone(2, "atrasada", money.MustNew("500", "BRL"), testNow.Add(-24*time.Hour), clk); err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	if _, err := agreement.AddMilestone(3, "futura", money.MustNew("500", "BRL"), testNow.Add(24*time.Hour), clk); err != nil {
		t.Fatalf("add milestone: %v", err)
	}

	overdue := OverdueMilestones(agreement, clk)
	if len(overdue) != 1 {
		t.Fatalf("expected 1 overdue milestone, got %d", len(overdue))
	}
	if overdue[0].Description != "atrasada" {
		t.Fatalf("wrong milestone flagged: %s", overdue[0].Description)
	}
}
