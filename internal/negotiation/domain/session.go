package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
)

// Proposal flow limits. The cooldown applies both to AI proposal arrival and
// to suggestion requests, whichever happened last.
const (
	maxPendingPerParty   = 5
	maxPendingOverall    = 25
	maxAiSuggestions     = 15
	aiSuggestionCooldown = 5 * time.Minute
)

// NewSession opens a negotiation.
func NewSession(id, ownerID snowflake.ID, title string, context *string, clk clock.Clock) (*NegotiationSession, error) {
	if id == 0 || ownerID == 0 {
		return nil, ErrInvalidSession
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	now := clk.Now()
	session := &NegotiationSession{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Context:   trimOptional(context),
		Status:    SessionStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.Record(events.EventNegotiationCreated, now, map[string]any{
		"session_id": id.String(),
		"owner_id":   ownerID.String(),
		"title":      title,
	})
	return session, nil
}

// SubmitProposal appends a pending proposal. Party proposals count against the
// per-party pending limit, AI proposals against the AI suggestion rules.
func (s *NegotiationSession) SubmitProposal(proposalID snowflake.ID, partyID *snowflake.ID, source ProposalSource, content string, clk clock.Clock) (*NegotiationProposal, error) {
	if s.Status != SessionStatusOpen {
		return nil, ErrSessionNotOpen
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrContentRequired
	}
	if err := s.ensurePendingLimits(partyID); err != nil {
		return nil, err
	}
	if source == ProposalSourceAI {
		if err := s.ensureAiRules(clk, false); err != nil {
			return nil, err
		}
	}

	now := clk.Now()
	proposal := NegotiationProposal{
		ID:        proposalID,
		SessionID: s.ID,
		PartyID:   partyID,
		Source:    source,
		Content:   content,
		Status:    ProposalStatusPending,
		CreatedAt: now,
	}
	s.Proposals = append(s.Proposals, proposal)
	s.UpdatedAt = now
	if source == ProposalSourceAI {
		s.LastAiSuggestionRequestedAt = &now
	}

	payload := map[string]any{
		"session_id":  s.ID.String(),
		"proposal_id": proposalID.String(),
		"source":      string(source),
	}
	if partyID != nil {
		payload["party_id"] = partyID.String()
	}
	s.Record(events.EventProposalSubmitted, now, payload)
	return &s.Proposals[len(s.Proposals)-1], nil
}

// AcceptProposal marks one proposal accepted, supersedes every other pending
// proposal and resolves the session. Accepting an already accepted proposal
// is a no-op on that proposal.
func (s *NegotiationSession) AcceptProposal(proposalID snowflake.ID, partyID *snowflake.ID, clk clock.Clock) error {
	proposal := s.proposal(proposalID)
	if proposal == nil {
		return ErrProposalNotFound
	}
	now := clk.Now()
	proposal.accept(now)
	for i := range s.Proposals {
		other := &s.Proposals[i]
		if other.ID != proposalID && other.Status == ProposalStatusPending {
			other.supersede(now)
		}
	}
	s.Status = SessionStatusResolved
	s.UpdatedAt = now

	payload := map[string]any{
		"session_id":  s.ID.String(),
		"proposal_id": proposalID.String(),
	}
	if partyID != nil {
		payload["party_id"] = partyID.String()
	}
	s.Record(events.EventProposalAccepted, now, payload)
	return nil
}

// RejectProposal records a rejection with its reason. The session stays open.
func (s *NegotiationSession) RejectProposal(proposalID snowflake.ID, partyID *snowflake.ID, reason string, clk clock.Clock) error {
	proposal := s.proposal(proposalID)
	if proposal == nil {
		return ErrProposalNotFound
	}
	now := clk.Now()
	proposal.reject(reason, now)
	s.UpdatedAt = now

	payload := map[string]any{
		"session_id":  s.ID.String(),
		"proposal_id": proposalID.String(),
		"reason":      strings.TrimSpace(reason),
	}
	if partyID != nil {
		payload["party_id"] = partyID.String()
	}
	s.Record(events.EventProposalRejected, now, payload)
	return nil
}

// RequestAiSuggestion registers the intent to ask the assistant for a
// counter-proposal. The suggestion itself arrives later as an AI proposal.
func (s *NegotiationSession) RequestAiSuggestion(instructions string, clk clock.Clock) error {
	if s.Status != SessionStatusOpen {
		return ErrSessionNotOpen
	}
	if err := s.ensurePendingLimits(nil); err != nil {
		return err
	}
	if err := s.ensureAiRules(clk, true); err != nil {
		return err
	}

	now := clk.Now()
	s.LastAiSuggestionRequestedAt = &now
	s.UpdatedAt = now
	s.Record(events.EventAiSuggestionRequested, now, map[string]any{
		"session_id":   s.ID.String(),
		"owner_id":     s.OwnerID.String(),
		"instructions": strings.TrimSpace(instructions),
	})
	return nil
}

// CloseWithoutAgreement ends the session without producing an agreement.
func (s *NegotiationSession) CloseWithoutAgreement(clk clock.Clock) {
	now := clk.Now()
	s.Status = SessionStatusClosed
	s.UpdatedAt = now
	s.Record(events.EventNegotiationClosed, now, events.IDPayload("session_id", s.ID))
}

// GenerateAgreement links the commission agreement created from this
// negotiation and moves the session to its terminal generated state.
func (s *NegotiationSession) GenerateAgreement(agreementID snowflake.ID, clk clock.Clock) error {
	if agreementID == 0 {
		return ErrInvalidGeneratedAgreement
	}
	now := clk.Now()
	s.GeneratedAgreementID = &agreementID
	s.Status = SessionStatusAgreementGenerated
	s.UpdatedAt = now
	s.Record(events.EventAgreementGenerated, now, map[string]any{
		"session_id":   s.ID.String(),
		"agreement_id": agreementID.String(),
	})
	return nil
}

func (s *NegotiationSession) ensurePendingLimits(partyID *snowflake.ID) error {
	pending := 0
	partyPending := 0
	for i := range s.Proposals {
		p := &s.Proposals[i]
		if p.Status != ProposalStatusPending {
			continue
		}
		pending++
		if partyID != nil && p.PartyID != nil && *p.PartyID == *partyID {
			partyPending++
		}
	}
	if pending >= maxPendingOverall {
		return ErrProposalLimitExceeded
	}
	if partyID != nil && partyPending >= maxPendingPerParty {
		return ErrPartyProposalLimitExceeded
	}
	return nil
}

func (s *NegotiationSession) ensureAiRules(clk clock.Clock, enforceRequestCooldown bool) error {
	if s.Context == nil || strings.TrimSpace(*s.Context) == "" {
		return ErrMissingContextForAI
	}

	aiCount := 0
	var lastAiProposalAt *time.Time
	for i := range s.Proposals {
		p := &s.Proposals[i]
		if p.Source != ProposalSourceAI {
			continue
		}
		aiCount++
		if lastAiProposalAt == nil || p.CreatedAt.After(*lastAiProposalAt) {
			at := p.CreatedAt
			lastAiProposalAt = &at
		}
	}
	if aiCount >= maxAiSuggestions {
		return ErrAiSuggestionLimitExceeded
	}

	now := clk.Now()
	if lastAiProposalAt != nil && now.Sub(*lastAiProposalAt) < aiSuggestionCooldown {
		return ErrAiCooldownActive
	}
	if enforceRequestCooldown && s.LastAiSuggestionRequestedAt != nil &&
		now.Sub(*s.LastAiSuggestionRequestedAt) < aiSuggestionCooldown {
		return ErrAiCooldownActive
	}
	return nil
}

func (s *NegotiationSession) proposal(id snowflake.ID) *NegotiationProposal {
	for i := range s.Proposals {
		if s.Proposals[i].ID == id {
			return &s.Proposals[i]
		}
	}
	return nil
}

func (p *NegotiationProposal) accept(at time.Time) {
	if p.Status == ProposalStatusAccepted {
		return
	}
	p.Status = ProposalStatusAccepted
	p.RejectionReason = nil
	p.RespondedAt = &at
}

func (p *NegotiationProposal) reject(reason string, at time.Time) {
	if p.Status == ProposalStatusRejected {
		return
	}
	p.Status = ProposalStatusRejected
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no reason given"
	}
	p.RejectionReason = &reason
	p.RespondedAt = &at
}

func (p *NegotiationProposal) supersede(at time.Time) {
	p.Status = ProposalStatusSuperseded
	p.RespondedAt = &at
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return trimOptionalString(*s)
}

func trimOptionalString(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
