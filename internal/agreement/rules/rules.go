// Package rules gathers the checks that cross the agreement, milestone and
// escrow aggregates when releasing payouts. The application layer runs these
// before issuing commands so invariants hold across unit-of-work boundaries.
package rules

import (
	"errors"

	"github.com/shopspring/decimal"

	agreementdomain "github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/clock"
	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	"github.com/caiohomem/assistente-sub001/internal/money"
)

var (
	ErrSplitMustEqualHundred    = errors.New("split_must_equal_hundred")
	ErrMilestonesMustEqualTotal = errors.New("milestones_must_equal_total")
)

var (
	hundred       = decimal.NewFromInt(100)
	autoThreshold = decimal.RequireFromString("0.1")
	disputedFloor = decimal.RequireFromString("0.5")
)

// EnsureMilestoneEligibleForPayout verifies the milestone belongs to the
// agreement, is completed, and that the requested amount fits its value.
func EnsureMilestoneEligibleForPayout(agreement *agreementdomain.CommissionAgreement, milestone *agreementdomain.Milestone, requested money.Money) error {
	if milestone.AgreementID != agreement.ID {
		return agreementdomain.ErrMilestoneNotOfAgreement
	}
	if milestone.Status != agreementdomain.MilestoneStatusCompleted {
		return agreementdomain.ErrMilestoneNotCompleted
	}
	if requested.Currency != milestone.Currency {
		return agreementdomain.ErrCurrencyMismatch
	}
	if requested.Amount.GreaterThan(milestone.Value) {
		return agreementdomain.ErrPayoutExceedsMilestone
	}
	return nil
}

// EnsureEscrowCoverage verifies the escrow pool can fund the requested amount.
func EnsureEscrowCoverage(account *escrowdomain.EscrowAccount, requested money.Money) error {
	if account.Currency != requested.Currency {
		return escrowdomain.ErrCurrencyMismatch
	}
	if account.Balance().Amount.LessThan(requested.Amount) {
		return escrowdomain.ErrInsufficientEscrowBalance
	}
	return nil
}

// DetermineApprovalPolicy picks the payout approval path from the requested
// share of the agreement total: small releases flow automatically, large ones
// are flagged, the middle band needs a human approval.
func DetermineApprovalPolicy(agreement *agreementdomain.CommissionAgreement, requested money.Money) (escrowdomain.ApprovalType, error) {
	if !agreement.TotalValue.IsPositive() {
		return "", agreementdomain.ErrInvalidTotalValue
	}
	ratio := requested.Amount.Div(agreement.TotalValue)
	switch {
	case ratio.LessThanOrEqual(autoThreshold):
		return escrowdomain.ApprovalTypeAutomatic, nil
	case ratio.GreaterThanOrEqual(disputedFloor):
		return escrowdomain.ApprovalTypeDisputed, nil
	default:
		return escrowdomain.ApprovalTypeRequired, nil
	}
}

// EnsureCanActivateStrict applies the stronger activation policy used before
// funds move: splits must close exactly at 100 and milestones must cover the
// total value. The aggregate itself only enforces the upper bounds.
func EnsureCanActivateStrict(agreement *agreementdomain.CommissionAgreement) error {
	if agreement.Status != agreementdomain.AgreementStatusDraft {
		return agreementdomain.ErrNotDraft
	}
	if len(agreement.Parties) == 0 {
		return agreementdomain.ErrNoParties
	}
	if len(agreement.Milestones) == 0 {
		return agreementdomain.ErrNoMilestones
	}

	splitTotal := decimal.Zero
	for i := range agreement.Parties {
		splitTotal = splitTotal.Add(agreement.Parties[i].SplitPercentage)
	}
	if !splitTotal.Equal(hundred) {
		return ErrSplitMustEqualHundred
	}

	milestoneTotal := decimal.Zero
	for i := range agreement.Milestones {
		milestoneTotal = milestoneTotal.Add(agreement.Milestones[i].Value)
	}
	if !milestoneTotal.Equal(agreement.TotalValue) {
		return ErrMilestonesMustEqualTotal
	}
	return nil
}

// OutstandingValue is the part of the total not yet released through
// completed milestones, floored at zero.
func OutstandingValue(agreement *agreementdomain.CommissionAgreement) money.Money {
	released := decimal.Zero
	for i := range agreement.Milestones {
		if agreement.Milestones[i].Status == agreementdomain.MilestoneStatusCompleted {
			released = released.Add(agreement.Milestones[i].Value)
		}
	}
	remaining := agreement.TotalValue.Sub(released)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return money.Money{Amount: remaining, Currency: agreement.Currency}
}

// OverdueMilestones returns the pending milestones whose due date has passed.
func OverdueMilestones(agreement *agreementdomain.CommissionAgreement, clk clock.Clock) []agreementdomain.Milestone {
	now := clk.Now()
	var overdue []agreementdomain.Milestone
	for i := range agreement.Milestones {
		m := agreement.Milestones[i]
		if m.Status == agreementdomain.MilestoneStatusPending && m.DueDate.Before(now) {
			overdue = append(overdue, m)
		}
	}
	return overdue
}
