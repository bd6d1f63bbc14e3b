package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidSession             = errors.New("invalid_session")
	ErrSessionNotFound            = errors.New("session_not_found")
	ErrSessionNotOpen             = errors.New("session_not_open")
	ErrTitleRequired              = errors.New("title_required")
	ErrContentRequired            = errors.New("proposal_content_required")
	ErrInvalidSource              = errors.New("invalid_proposal_source")
	ErrProposalNotFound           = errors.New("proposal_not_found")
	ErrProposalLimitExceeded      = errors.New("pending_proposal_limit_exceeded")
	ErrPartyProposalLimitExceeded = errors.New("party_pending_proposal_limit_exceeded")
	ErrMissingContextForAI        = errors.New("session_context_required_for_ai")
	ErrAiSuggestionLimitExceeded  = errors.New("ai_suggestion_limit_exceeded")
	ErrAiCooldownActive           = errors.New("ai_suggestion_cooldown_active")
	ErrInvalidGeneratedAgreement  = errors.New("invalid_generated_agreement")
)

// OpenRequest starts a new session for an owner. Context feeds AI suggestions
// and may be omitted when the assistant will not be used.
type OpenRequest struct {
	OwnerID string
	Title   string
	Context *string
}

// SubmitProposalRequest appends an offer. PartyID is empty for AI proposals.
type SubmitProposalRequest struct {
	SessionID string
	PartyID   string
	Source    string
	Content   string
}

// RespondRequest accepts or rejects an existing proposal.
type RespondRequest struct {
	SessionID  string
	ProposalID string
	PartyID    string
	Reason     string
}

// AiSuggestionRequest asks the assistant for a counter-proposal.
type AiSuggestionRequest struct {
	SessionID    string
	Instructions string
}

// Service exposes the negotiation operations.
type Service interface {
	Open(ctx context.Context, req OpenRequest) (*NegotiationSession, error)
	GetByID(ctx context.Context, sessionID string) (*NegotiationSession, error)
	SubmitProposal(ctx context.Context, req SubmitProposalRequest) (*NegotiationProposal, error)
	AcceptProposal(ctx context.Context, req RespondRequest) error
	RejectProposal(ctx context.Context, req RespondRequest) error
	RequestAiSuggestion(ctx context.Context, req AiSuggestionRequest) error
	CloseWithoutAgreement(ctx context.Context, sessionID string) error
	GenerateAgreement(ctx context.Context, sessionID, agreementID string) error
}
