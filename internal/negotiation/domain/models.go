// Package domain holds the negotiation session aggregate: the pre-agreement
// protocol in which parties and the AI assistant exchange proposals under
// rate limits until one is accepted.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/caiohomem/assistente-sub001/internal/events"
)

// SessionStatus is the negotiation lifecycle state.
type SessionStatus string

const (
	SessionStatusOpen               SessionStatus = "open"
	SessionStatusResolved           SessionStatus = "resolved"
	SessionStatusClosed             SessionStatus = "closed"
	SessionStatusAgreementGenerated SessionStatus = "agreement_generated"
)

// ProposalSource identifies who authored a proposal.
type ProposalSource string

const (
	ProposalSourceParty ProposalSource = "party"
	ProposalSourceAI    ProposalSource = "ai"
)

// ProposalStatus is the per-proposal state.
type ProposalStatus string

const (
	ProposalStatusPending    ProposalStatus = "pending"
	ProposalStatusAccepted   ProposalStatus = "accepted"
	ProposalStatusRejected   ProposalStatus = "rejected"
	ProposalStatusSuperseded ProposalStatus = "superseded"
)

// NegotiationProposal is one offer within a session.
type NegotiationProposal struct {
	ID              snowflake.ID   `gorm:"primaryKey"`
	SessionID       snowflake.ID   `gorm:"not null;index"`
	PartyID         *snowflake.ID  `gorm:"index"`
	Source          ProposalSource `gorm:"type:text;not null"`
	Content         string         `gorm:"type:text;not null"`
	Status          ProposalStatus `gorm:"type:text;not null"`
	RejectionReason *string        `gorm:"type:text"`
	RespondedAt     *time.Time
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (NegotiationProposal) TableName() string { return "negotiation_proposals" }

// NegotiationSession is the aggregate root. The session is the negotiation
// record, not the agreement it may eventually generate.
type NegotiationSession struct {
	ID                          snowflake.ID  `gorm:"primaryKey"`
	OwnerID                     snowflake.ID  `gorm:"not null;index"`
	Title                       string        `gorm:"type:text;not null"`
	Context                     *string       `gorm:"type:text"`
	Status                      SessionStatus `gorm:"type:text;not null"`
	GeneratedAgreementID        *snowflake.ID
	LastAiSuggestionRequestedAt *time.Time
	Version                     int64     `gorm:"not null;default:0"`
	CreatedAt                   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt                   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Proposals []NegotiationProposal `gorm:"-"`

	events.Recorder `gorm:"-"`
}

// TableName sets the database table name.
func (NegotiationSession) TableName() string { return "negotiation_sessions" }
