// Package domain holds the per-agreement escrow account aggregate. Balances
// are derived folds over the transaction list; only transaction status ever
// changes, amounts never do.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/events"
)

// AccountStatus is the escrow account lifecycle state.
type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusSuspended AccountStatus = "suspended"
	AccountStatusClosed    AccountStatus = "closed"
)

// TransactionType classifies an escrow movement.
type TransactionType string

const (
	TransactionTypeDeposit TransactionType = "deposit"
	TransactionTypePayout  TransactionType = "payout"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypeFee     TransactionType = "fee"
)

// TransactionStatus is the per-transaction approval state.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusDisputed  TransactionStatus = "disputed"
)

// ApprovalType records which policy governs a payout request.
type ApprovalType string

const (
	ApprovalTypeAutomatic ApprovalType = "automatic"
	ApprovalTypeRequired  ApprovalType = "approval_required"
	ApprovalTypeDisputed  ApprovalType = "disputed"
)

// EscrowTransaction is one movement through the escrow pool. The amount is
// immutable; only the status and its bookkeeping columns transition.
type EscrowTransaction struct {
	ID              snowflake.ID      `gorm:"primaryKey"`
	AccountID       snowflake.ID      `gorm:"not null;index"`
	PartyID         *snowflake.ID     `gorm:"index"`
	Type            TransactionType   `gorm:"type:text;not null"`
	Amount          decimal.Decimal   `gorm:"type:numeric(18,6);not null"`
	Currency        string            `gorm:"type:text;not null"`
	Description     *string           `gorm:"type:text"`
	Status          TransactionStatus `gorm:"type:text;not null"`
	ApprovalType    *ApprovalType     `gorm:"type:text"`
	ApprovedBy      *snowflake.ID
	ApprovedAt      *time.Time
	RejectedBy      *snowflake.ID
	RejectionReason *string `gorm:"type:text"`
	DisputeReason   *string `gorm:"type:text"`
	PaymentRef      *string `gorm:"type:text"`
	TransferRef     *string `gorm:"type:text"`
	IdempotencyKey  *string `gorm:"type:text;index"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (EscrowTransaction) TableName() string { return "escrow_transactions" }

// EscrowAccount pools funds for one agreement. Deletion is never physical;
// the account closes instead.
type EscrowAccount struct {
	ID                 snowflake.ID  `gorm:"primaryKey"`
	AgreementID        snowflake.ID  `gorm:"not null;uniqueIndex"`
	OwnerID            snowflake.ID  `gorm:"not null;index"`
	Currency           string        `gorm:"type:text;not null"`
	Status             AccountStatus `gorm:"type:text;not null"`
	ConnectedAccountID *string       `gorm:"type:text"`
	Version            int64         `gorm:"not null;default:0"`
	CreatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Transactions []EscrowTransaction `gorm:"-"`

	events.Recorder `gorm:"-"`
}

// TableName sets the database table name.
func (EscrowAccount) TableName() string { return "escrow_accounts" }
