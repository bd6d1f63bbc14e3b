package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Service is the application surface over the commission agreement aggregate.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CommissionAgreement, error)
	GetByID(ctx context.Context, id string) (*CommissionAgreement, error)
	AddParty(ctx context.Context, req AddPartyRequest) (*AgreementParty, error)
	AcceptAgreement(ctx context.Context, agreementID, partyID string) error
	AddMilestone(ctx context.Context, req AddMilestoneRequest) (*Milestone, error)
	CompleteMilestone(ctx context.Context, req CompleteMilestoneRequest) error
	MarkMilestoneOverdue(ctx context.Context, agreementID, milestoneID string) error
	ReleaseMilestonePayout(ctx context.Context, req ReleaseMilestonePayoutRequest) (*MilestonePayoutResult, error)
	Summary(ctx context.Context, agreementID string) (*AgreementSummary, error)
	Activate(ctx context.Context, agreementID string, strict bool) error
	Complete(ctx context.Context, agreementID string) error
	Dispute(ctx context.Context, agreementID, reason string) error
	Cancel(ctx context.Context, agreementID, reason string) error
	AttachEscrowAccount(ctx context.Context, agreementID, escrowAccountID string) error
	UpdateDetails(ctx context.Context, req UpdateDetailsRequest) error
	UpdatePartySplit(ctx context.Context, agreementID, partyID string, split decimal.Decimal) error
	ConnectPartyAccount(ctx context.Context, agreementID, partyID, connectedAccountID string) error
	ResetMilestone(ctx context.Context, agreementID, milestoneID string) error
}

type CreateRequest struct {
	OwnerID     string          `json:"owner_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TotalValue  decimal.Decimal `json:"total_value"`
	Currency    string          `json:"currency"`
	Terms       string          `json:"terms"`
}

type AddPartyRequest struct {
	AgreementID     string          `json:"agreement_id"`
	ContactID       string          `json:"contact_id"`
	CompanyID       string          `json:"company_id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	SplitPercentage decimal.Decimal `json:"split_percentage"`
	Role            string          `json:"role"`
}

type AddMilestoneRequest struct {
	AgreementID string          `json:"agreement_id"`
	Description string          `json:"description"`
	Value       decimal.Decimal `json:"value"`
	Currency    string          `json:"currency"`
	DueDate     time.Time       `json:"due_date"`
}

type CompleteMilestoneRequest struct {
	AgreementID           string `json:"agreement_id"`
	MilestoneID           string `json:"milestone_id"`
	Notes                 string `json:"notes"`
	ReleasedTransactionID string `json:"released_transaction_id"`
}

type ReleaseMilestonePayoutRequest struct {
	AgreementID    string          `json:"agreement_id"`
	MilestoneID    string          `json:"milestone_id"`
	PartyID        string          `json:"party_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	IdempotencyKey string          `json:"idempotency_key"`
}

// MilestonePayoutResult reports the escrow transaction created for a
// milestone release and which approval path it took.
type MilestonePayoutResult struct {
	TransactionID string `json:"transaction_id"`
	ApprovalType  string `json:"approval_type"`
}

// AgreementSummary is the read-side rollup of an agreement's progress.
type AgreementSummary struct {
	AgreementID       string          `json:"agreement_id"`
	Status            AgreementStatus `json:"status"`
	TotalValue        decimal.Decimal `json:"total_value"`
	OutstandingValue  decimal.Decimal `json:"outstanding_value"`
	Currency          string          `json:"currency"`
	OverdueMilestones []Milestone     `json:"overdue_milestones"`
}

type UpdateDetailsRequest struct {
	AgreementID string  `json:"agreement_id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Terms       *string `json:"terms"`
}

var (
	ErrInvalidAgreement            = errors.New("invalid_agreement")
	ErrAgreementNotFound           = errors.New("agreement_not_found")
	ErrMissingTitle                = errors.New("missing_title")
	ErrInvalidTotalValue           = errors.New("invalid_total_value")
	ErrNotDraft                    = errors.New("agreement_not_draft")
	ErrNotActive                   = errors.New("agreement_not_active")
	ErrAlreadyCanceled             = errors.New("agreement_canceled")
	ErrAlreadyCompleted            = errors.New("agreement_completed")
	ErrNoParties                   = errors.New("no_parties")
	ErrNoMilestones                = errors.New("no_milestones")
	ErrPartiesNotAllAccepted       = errors.New("parties_not_all_accepted")
	ErrMilestonesNotAllCompleted   = errors.New("milestones_not_all_completed")
	ErrSplitExceedsLimit           = errors.New("split_exceeds_limit")
	ErrMilestoneSumExceedsTotal    = errors.New("milestone_sum_exceeds_total")
	ErrCurrencyMismatch            = errors.New("currency_mismatch")
	ErrPartyNotFound               = errors.New("party_not_found")
	ErrPartyAlreadyExists          = errors.New("party_already_exists")
	ErrMissingPartyName            = errors.New("missing_party_name")
	ErrMissingPartyEmail           = errors.New("missing_party_email")
	ErrInvalidSplit                = errors.New("invalid_split")
	ErrInvalidRole                 = errors.New("invalid_role")
	ErrMilestoneNotFound           = errors.New("milestone_not_found")
	ErrMilestoneAlreadyExists      = errors.New("milestone_already_exists")
	ErrMissingMilestoneDescription = errors.New("missing_milestone_description")
	ErrInvalidMilestoneValue       = errors.New("invalid_milestone_value")
	ErrMissingDueDate              = errors.New("missing_due_date")
	ErrInvalidEscrowAccount        = errors.New("invalid_escrow_account")
	ErrMilestoneNotCompleted       = errors.New("milestone_not_completed")
	ErrPayoutExceedsMilestone      = errors.New("payout_exceeds_milestone")
	ErrMilestoneNotOfAgreement     = errors.New("milestone_not_of_agreement")
	ErrMilestonePayoutReleased     = errors.New("milestone_payout_released")
	ErrEscrowNotAttached           = errors.New("escrow_not_attached")
	ErrInvalidPayoutTransaction    = errors.New("invalid_payout_transaction")
)
