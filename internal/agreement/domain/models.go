// Package domain holds the commission agreement aggregate: the agreement
// root plus its parties and milestones. Split percentages never exceed 100
// and milestone values never exceed the agreement total.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/events"
)

// AgreementStatus is the agreement lifecycle state.
type AgreementStatus string

const (
	AgreementStatusDraft     AgreementStatus = "draft"
	AgreementStatusActive    AgreementStatus = "active"
	AgreementStatusCompleted AgreementStatus = "completed"
	AgreementStatusDisputed  AgreementStatus = "disputed"
	AgreementStatusCanceled  AgreementStatus = "canceled"
)

// PartyRole describes a party's function within the agreement.
type PartyRole string

const (
	PartyRoleBroker       PartyRole = "broker"
	PartyRoleSeller       PartyRole = "seller"
	PartyRoleBuyer        PartyRole = "buyer"
	PartyRoleIntermediary PartyRole = "intermediary"
)

// MilestoneStatus is the payable-checkpoint state.
type MilestoneStatus string

const (
	MilestoneStatusPending   MilestoneStatus = "pending"
	MilestoneStatusCompleted MilestoneStatus = "completed"
	MilestoneStatusOverdue   MilestoneStatus = "overdue"
)

// AgreementParty is one participant with a share of the total value.
type AgreementParty struct {
	ID                 snowflake.ID    `gorm:"primaryKey"`
	AgreementID        snowflake.ID    `gorm:"not null;index"`
	ContactID          *snowflake.ID   `gorm:"index"`
	CompanyID          *snowflake.ID   `gorm:"index"`
	Name               string          `gorm:"type:text;not null"`
	Email              string          `gorm:"type:text;not null"`
	SplitPercentage    decimal.Decimal `gorm:"type:numeric(5,2);not null"`
	Role               PartyRole       `gorm:"type:text;not null"`
	ConnectedAccountID *string         `gorm:"type:text"`
	ConnectedAt        *time.Time
	HasAccepted        bool       `gorm:"not null;default:false"`
	AcceptedAt         *time.Time
	CreatedAt          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AgreementParty) TableName() string { return "agreement_parties" }

// Milestone is a payable checkpoint bounded by the agreement total.
type Milestone struct {
	ID                          snowflake.ID    `gorm:"primaryKey"`
	AgreementID                 snowflake.ID    `gorm:"not null;index"`
	Description                 string          `gorm:"type:text;not null"`
	Value                       decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	Currency                    string          `gorm:"type:text;not null"`
	DueDate                     time.Time       `gorm:"not null"`
	Status                      MilestoneStatus `gorm:"type:text;not null"`
	CompletedAt                 *time.Time
	CompletionNotes             *string       `gorm:"type:text"`
	ReleasedPayoutTransactionID *snowflake.ID
	CreatedAt                   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Milestone) TableName() string { return "agreement_milestones" }

// CommissionAgreement is the aggregate root gating escrow activity.
type CommissionAgreement struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	OwnerID         snowflake.ID    `gorm:"not null;index"`
	Title           string          `gorm:"type:text;not null"`
	Description     *string         `gorm:"type:text"`
	Terms           *string         `gorm:"type:text"`
	TotalValue      decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	Currency        string          `gorm:"type:text;not null"`
	Status          AgreementStatus `gorm:"type:text;not null"`
	EscrowAccountID *snowflake.ID
	Version         int64      `gorm:"not null;default:0"`
	ActivatedAt     *time.Time
	CompletedAt     *time.Time
	CanceledAt      *time.Time
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Parties    []AgreementParty `gorm:"-"`
	Milestones []Milestone      `gorm:"-"`

	events.Recorder `gorm:"-"`
}

// TableName sets the database table name.
func (CommissionAgreement) TableName() string { return "commission_agreements" }
