package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
	"github.com/caiohomem/assistente-sub001/internal/money"
)

var hundred = decimal.NewFromInt(100)

// NewAgreement builds a draft agreement.
func NewAgreement(id, ownerID snowflake.ID, title, description string, totalValue money.Money, terms string, clk clock.Clock) (*CommissionAgreement, error) {
	if id == 0 || ownerID == 0 {
		return nil, ErrInvalidAgreement
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrMissingTitle
	}
	if !totalValue.Amount.IsPositive() {
		return nil, ErrInvalidTotalValue
	}

	now := clk.Now()
	agreement := &CommissionAgreement{
		ID:          id,
		OwnerID:     ownerID,
		Title:       title,
		Description: optional(description),
		Terms:       optional(terms),
		TotalValue:  totalValue.Amount,
		Currency:    totalValue.Currency,
		Status:      AgreementStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	agreement.Record(events.EventAgreementCreated, now, map[string]any{
		"agreement_id": id.String(),
		"owner_id":     ownerID.String(),
		"title":        title,
		"total_value":  totalValue.Amount.String(),
		"currency":     totalValue.Currency,
	})
	return agreement, nil
}

// AddParty registers a participant while the agreement is still a draft.
// The running split sum must stay within 100 percent.
func (a *CommissionAgreement) AddParty(partyID snowflake.ID, contactID, companyID *snowflake.ID, name, email string, split money.Percentage, role PartyRole, clk clock.Clock) (*AgreementParty, error) {
	if a.Status != AgreementStatusDraft {
		return nil, ErrNotDraft
	}
	if partyID == 0 {
		return nil, ErrPartyNotFound
	}
	for i := range a.Parties {
		if a.Parties[i].ID == partyID {
			return nil, ErrPartyAlreadyExists
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingPartyName
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrMissingPartyEmail
	}
	if a.splitTotal().Add(split.Value).GreaterThan(hundred) {
		return nil, ErrSplitExceedsLimit
	}

	now := clk.Now()
	party := AgreementParty{
		ID:              partyID,
		AgreementID:     a.ID,
		ContactID:       contactID,
		CompanyID:       companyID,
		Name:            name,
		Email:           email,
		SplitPercentage: split.Value,
		Role:            role,
		CreatedAt:       now,
	}
	a.Parties = append(a.Parties, party)
	a.UpdatedAt = now

	a.Record(events.EventPartyAdded, now, map[string]any{
		"agreement_id": a.ID.String(),
		"party_id":     partyID.String(),
		"name":         name,
		"split":        split.Value.String(),
		"role":         string(role),
	})
	return &a.Parties[len(a.Parties)-1], nil
}

// AcceptAgreement records a party's consent. Accepting twice is a no-op.
func (a *CommissionAgreement) AcceptAgreement(partyID snowflake.ID, clk clock.Clock) error {
	party, err := a.party(partyID)
	if err != nil {
		return err
	}
	if party.HasAccepted {
		return nil
	}
	now := clk.Now()
	party.HasAccepted = true
	party.AcceptedAt = &now
	a.UpdatedAt = now

	a.Record(events.EventPartyAccepted, now, map[string]any{
		"agreement_id": a.ID.String(),
		"party_id":     partyID.String(),
	})
	return nil
}

// AddMilestone registers a payable checkpoint while the agreement is still a
// draft. The running milestone sum must stay within the total value.
func (a *CommissionAgreement) AddMilestone(milestoneID snowflake.ID, description string, value money.Money, dueDate time.Time, clk clock.Clock) (*Milestone, error) {
	if a.Status != AgreementStatusDraft {
		return nil, ErrNotDraft
	}
	if milestoneID == 0 {
		return nil, ErrMilestoneNotFound
	}
	for i := range a.Milestones {
		if a.Milestones[i].ID == milestoneID {
			return nil, ErrMilestoneAlreadyExists
		}
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrMissingMilestoneDescription
	}
	if value.Currency != a.Currency {
		return nil, ErrCurrencyMismatch
	}
	if !value.Amount.IsPositive() {
		return nil, ErrInvalidMilestoneValue
	}
	if dueDate.IsZero() {
		return nil, ErrMissingDueDate
	}
	if a.milestoneTotal().Add(value.Amount).GreaterThan(a.TotalValue) {
		return nil, ErrMilestoneSumExceedsTotal
	}

	now := clk.Now()
	milestone := Milestone{
		ID:          milestoneID,
		AgreementID: a.ID,
		Description: description,
		Value:       value.Amount,
		Currency:    a.Currency,
		DueDate:     dueDate.UTC(),
		Status:      MilestoneStatusPending,
		CreatedAt:   now,
	}
	a.Milestones = append(a.Milestones, milestone)
	a.UpdatedAt = now

	a.Record(events.EventMilestoneCreated, now, map[string]any{
		"agreement_id": a.ID.String(),
		"milestone_id": milestoneID.String(),
		"description":  description,
		"value":        value.Amount.String(),
		"currency":     a.Currency,
		"due_date":     milestone.DueDate.Format(time.RFC3339),
	})
	return &a.Milestones[len(a.Milestones)-1], nil
}

// CompleteMilestone marks a milestone done and, when escrow released funds
// for it, links the payout transaction. Completing twice is a no-op.
func (a *CommissionAgreement) CompleteMilestone(milestoneID snowflake.ID, notes string, releasedTxID *snowflake.ID, clk clock.Clock) error {
	milestone, err := a.milestone(milestoneID)
	if err != nil {
		return err
	}
	if milestone.Status == MilestoneStatusCompleted {
		return nil
	}
	now := clk.Now()
	milestone.Status = MilestoneStatusCompleted
	milestone.CompletedAt = &now
	milestone.CompletionNotes = optional(notes)
	milestone.ReleasedPayoutTransactionID = releasedTxID
	a.UpdatedAt = now

	a.Record(events.EventMilestoneCompleted, now, map[string]any{
		"agreement_id": a.ID.String(),
		"milestone_id": milestoneID.String(),
	})
	return nil
}

// MarkMilestoneOverdue flags a milestone past its due date. Completed
// milestones are left alone.
func (a *CommissionAgreement) MarkMilestoneOverdue(milestoneID snowflake.ID, clk clock.Clock) error {
	milestone, err := a.milestone(milestoneID)
	if err != nil {
		return err
	}
	if milestone.Status == MilestoneStatusCompleted {
		return nil
	}
	now := clk.Now()
	milestone.Status = MilestoneStatusOverdue
	a.UpdatedAt = now

	a.Record(events.EventMilestoneOverdue, now, map[string]any{
		"agreement_id": a.ID.String(),
		"milestone_id": milestoneID.String(),
		"due_date":     milestone.DueDate.Format(time.RFC3339),
	})
	return nil
}

// Activate moves a fully consented draft into force.
func (a *CommissionAgreement) Activate(clk clock.Clock) error {
	if a.Status != AgreementStatusDraft {
		return ErrNotDraft
	}
	if len(a.Parties) == 0 {
		return ErrNoParties
	}
	if len(a.Milestones) == 0 {
		return ErrNoMilestones
	}
	for i := range a.Parties {
		if !a.Parties[i].HasAccepted {
			return ErrPartiesNotAllAccepted
		}
	}
	now := clk.Now()
	a.Status = AgreementStatusActive
	a.ActivatedAt = &now
	a.UpdatedAt = now

	a.Record(events.EventAgreementActivated, now, events.IDPayload("agreement_id", a.ID))
	return nil
}

// Complete closes an active agreement once every milestone is done.
func (a *CommissionAgreement) Complete(clk clock.Clock) error {
	if a.Status != AgreementStatusActive {
		return ErrNotActive
	}
	for i := range a.Milestones {
		if a.Milestones[i].Status != MilestoneStatusCompleted {
			return ErrMilestonesNotAllCompleted
		}
	}
	now := clk.Now()
	a.Status = AgreementStatusCompleted
	a.CompletedAt = &now
	a.UpdatedAt = now

	a.Record(events.EventAgreementCompleted, now, events.IDPayload("agreement_id", a.ID))
	return nil
}

// Dispute is a permissive escape hatch available from any non-canceled state.
// There is no modeled path back out except Cancel; resolution happens outside
// the system.
func (a *CommissionAgreement) Dispute(reason string, clk clock.Clock) error {
	if a.Status == AgreementStatusCanceled {
		return ErrAlreadyCanceled
	}
	now := clk.Now()
	a.Status = AgreementStatusDisputed
	a.UpdatedAt = now

	a.Record(events.EventAgreementDisputed, now, map[string]any{
		"agreement_id": a.ID.String(),
		"reason":       strings.TrimSpace(reason),
	})
	return nil
}

// Cancel is allowed from any non-completed state.
func (a *CommissionAgreement) Cancel(reason string, clk clock.Clock) error {
	if a.Status == AgreementStatusCompleted {
		return ErrAlreadyCompleted
	}
	now := clk.Now()
	a.Status = AgreementStatusCanceled
	a.CanceledAt = &now
	a.UpdatedAt = now

	a.Record(events.EventAgreementCanceled, now, map[string]any{
		"agreement_id": a.ID.String(),
		"reason":       strings.TrimSpace(reason),
	})
	return nil
}

// AttachEscrowAccount links the escrow pool funding this agreement.
func (a *CommissionAgreement) AttachEscrowAccount(escrowAccountID snowflake.ID, clk clock.Clock) error {
	if escrowAccountID == 0 {
		return ErrInvalidEscrowAccount
	}
	now := clk.Now()
	a.EscrowAccountID = &escrowAccountID
	a.UpdatedAt = now

	a.Record(events.EventEscrowAccountAttached, now, map[string]any{
		"agreement_id":      a.ID.String(),
		"escrow_account_id": escrowAccountID.String(),
	})
	return nil
}

// UpdateDetails edits the descriptive fields. Empty title keeps the current
// one; descriptions and terms may be cleared by passing whitespace.
func (a *CommissionAgreement) UpdateDetails(title, description, terms *string, clk clock.Clock) {
	if title != nil && strings.TrimSpace(*title) != "" {
		a.Title = strings.TrimSpace(*title)
	}
	if description != nil {
		a.Description = optional(*description)
	}
	if terms != nil {
		a.Terms = optional(*terms)
	}
	a.UpdatedAt = clk.Now()
}

// UpdatePartySplit changes a party's share while the agreement is still a
// draft. The new split sum must stay within 100 percent.
func (a *CommissionAgreement) UpdatePartySplit(partyID snowflake.ID, split money.Percentage, clk clock.Clock) error {
	if a.Status != AgreementStatusDraft {
		return ErrNotDraft
	}
	party, err := a.party(partyID)
	if err != nil {
		return err
	}
	if a.splitTotal().Sub(party.SplitPercentage).Add(split.Value).GreaterThan(hundred) {
		return ErrSplitExceedsLimit
	}
	now := clk.Now()
	party.SplitPercentage = split.Value
	a.UpdatedAt = now

	a.Record(events.EventPartySplitUpdated, now, map[string]any{
		"agreement_id": a.ID.String(),
		"party_id":     partyID.String(),
		"split":        split.Value.String(),
	})
	return nil
}

// ConnectPartyAccount links a party's payout account. A blank account ID
// disconnects the party instead.
func (a *CommissionAgreement) ConnectPartyAccount(partyID snowflake.ID, connectedAccountID string, clk clock.Clock) error {
	party, err := a.party(partyID)
	if err != nil {
		return err
	}
	now := clk.Now()
	connectedAccountID = strings.TrimSpace(connectedAccountID)
	if connectedAccountID == "" {
		party.ConnectedAccountID = nil
		party.ConnectedAt = nil
	} else {
		party.ConnectedAccountID = &connectedAccountID
		party.ConnectedAt = &now
	}
	a.UpdatedAt = now

	a.Record(events.EventPartyAccountConnected, now, map[string]any{
		"agreement_id": a.ID.String(),
		"party_id":     partyID.String(),
		"connected":    connectedAccountID != "",
	})
	return nil
}

// RecordMilestonePayout links the escrow transaction that released funds for
// a completed milestone. Each milestone releases at most once.
func (a *CommissionAgreement) RecordMilestonePayout(milestoneID, transactionID snowflake.ID, clk clock.Clock) error {
	if transactionID == 0 {
		return ErrInvalidPayoutTransaction
	}
	milestone, err := a.milestone(milestoneID)
	if err != nil {
		return err
	}
	if milestone.Status != MilestoneStatusCompleted {
		return ErrMilestoneNotCompleted
	}
	if milestone.ReleasedPayoutTransactionID != nil {
		return ErrMilestonePayoutReleased
	}
	now := clk.Now()
	milestone.ReleasedPayoutTransactionID = &transactionID
	a.UpdatedAt = now

	a.Record(events.EventMilestonePayoutLinked, now, map[string]any{
		"agreement_id":   a.ID.String(),
		"milestone_id":   milestoneID.String(),
		"transaction_id": transactionID.String(),
	})
	return nil
}

// ResetMilestone returns a milestone to pending, clearing its completion
// record. Milestones that already released a payout cannot be reset.
func (a *CommissionAgreement) ResetMilestone(milestoneID snowflake.ID, clk clock.Clock) error {
	milestone, err := a.milestone(milestoneID)
	if err != nil {
		return err
	}
	if milestone.ReleasedPayoutTransactionID != nil {
		return ErrMilestonePayoutReleased
	}
	if milestone.Status == MilestoneStatusPending {
		return nil
	}
	now := clk.Now()
	milestone.Status = MilestoneStatusPending
	milestone.CompletedAt = nil
	milestone.CompletionNotes = nil
	a.UpdatedAt = now

	a.Record(events.EventMilestoneReset, now, map[string]any{
		"agreement_id": a.ID.String(),
		"milestone_id": milestoneID.String(),
	})
	return nil
}

func (a *CommissionAgreement) party(partyID snowflake.ID) (*AgreementParty, error) {
	for i := range a.Parties {
		if a.Parties[i].ID == partyID {
			return &a.Parties[i], nil
		}
	}
	return nil, ErrPartyNotFound
}

func (a *CommissionAgreement) milestone(milestoneID snowflake.ID) (*Milestone, error) {
	for i := range a.Milestones {
		if a.Milestones[i].ID == milestoneID {
			return &a.Milestones[i], nil
		}
	}
	return nil, ErrMilestoneNotFound
}

func (a *CommissionAgreement) splitTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Parties {
		total = total.Add(a.Parties[i].SplitPercentage)
	}
	return total
}

func (a *CommissionAgreement) milestoneTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range a.Milestones {
		total = total.Add(a.Milestones[i].Value)
	}
	return total
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
