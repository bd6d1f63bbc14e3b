package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/caiohomem/assistente-sub001/internal/clock"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newOpenSession(t *testing.T, context string) *NegotiationSession {
	t.Helper()
	var ctx *string
	if context != "" {
		ctx = &context
	}
	session, err := NewSession(1, 100, "Comissao Imovel Centro", ctx, clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func partyRef(id int64) *snowflake.ID {
	sid := snowflake.ID(id)
	return &sid
}

func TestNewSessionValidation(t *testing.T) {
	clk := clock.Fixed(testNow)
	if _, err := NewSession(0, 100, "t", nil, clk); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := NewSession(1, 100, "   ", nil, clk); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestSubmitProposalRequiresOpenSessionAndContent(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	if _, err := session.SubmitProposal(2, partyRef(50), ProposalSourceParty, "   ", clk); !errors.Is(err, ErrContentRequired) {
		t.Fatalf("expected ErrContentRequired, got %v", err)
	}

	session.CloseWithoutAgreement(clk)
	if _, err := session.SubmitProposal(2, partyRef(50), ProposalSourceParty, "10% de comissao", clk); !errors.Is(err, ErrSessionNotOpen) {
		t.Fatalf("expected ErrSessionNotOpen, got %v", err)
	}
}

func TestPerPartyPendingLimit(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	for i := 0; i < 5; i++ {
		if _, err := session.SubmitProposal(snowflake.ID(10+i), partyRef(50), ProposalSourceParty, fmt.Sprintf("proposta %d", i), clk); err != nil {
			t.Fatalf("proposal %d: %v", i, err)
		}
	}
	if _, err := session.SubmitProposal(20, partyRef(50), ProposalSourceParty, "uma a mais", clk); !errors.Is(err, ErrPartyProposalLimitExceeded) {
		t.Fatalf("expected ErrPartyProposalLimitExceeded, got %v", err)
	}
	// A different party still has room.
	if _, err := session.SubmitProposal(21, partyRef(51), ProposalSourceParty, "contra-proposta", clk); err != nil {
		t.Fatalf("other party blocked: %v", err)
	}
}

func TestOverallPendingLimit(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	for i := 0; i < 25; i++ {
		// Spread across parties so the per-party cap never triggers first.
		if _, err := session.SubmitProposal(snowflake.ID(100+i), partyRef(int64(50+i/5)), ProposalSourceParty, fmt.Sprintf("proposta %d", i), clk); err != nil {
			t.Fatalf("proposal %d: %v", i, err)
		}
	}
	if _, err := session.SubmitProposal(200, partyRef(99), ProposalSourceParty, "estourou", clk); !errors.Is(err, ErrProposalLimitExceeded) {
		t.Fatalf("expected ErrProposalLimitExceeded, got %v", err)
	}
}

func TestAcceptSupersedesOtherPending(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	first, err := session.SubmitProposal(2, partyRef(50), ProposalSourceParty, "8%", clk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	second, err := session.SubmitProposal(3, partyRef(51), ProposalSourceParty, "9%", clk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rejected, err := session.SubmitProposal(4, partyRef(51), ProposalSourceParty, "12%", clk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := session.RejectProposal(rejected.ID, partyRef(50), "alto demais", clk); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if err := session.AcceptProposal(second.ID, partyRef(50), clk); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if second.Status != ProposalStatusAccepted {
		t.Fatalf("expected accepted, got %s", second.Status)
	}
	if first.Status != ProposalStatusSuperseded {
		t.Fatalf("expected superseded, got %s", first.Status)
	}
	// Already-rejected proposals are left alone.
	if rejected.Status != ProposalStatusRejected {
		t.Fatalf("expected rejected untouched, got %s", rejected.Status)
	}
	if session.Status != SessionStatusResolved {
		t.Fatalf("expected resolved session, got %s", session.Status)
	}
}

func TestAcceptIsIdempotentOnProposal(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	proposal, err := session.SubmitProposal(2, partyRef(50), ProposalSourceParty, "8%", clk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := session.AcceptProposal(proposal.ID, partyRef(50), clk); err != nil {
		t.Fatalf("accept: %v", err)
	}
	firstRespondedAt := *proposal.RespondedAt
	if err := session.AcceptProposal(proposal.ID, partyRef(50), clk); err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if !proposal.RespondedAt.Equal(firstRespondedAt) {
		t.Fatalf("second accept changed RespondedAt")
	}
}

func TestRejectKeepsSessionOpen(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	proposal, err := session.SubmitProposal(2, partyRef(50), ProposalSourceParty, "8%", clk)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := session.RejectProposal(proposal.ID, partyRef(51), "", clk); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if proposal.RejectionReason == nil || *proposal.RejectionReason != "no reason given" {
		t.Fatalf("blank reason should default, got %v", proposal.RejectionReason)
	}
	if session.Status != SessionStatusOpen {
		t.Fatalf("rejection must keep the session open, got %s", session.Status)
	}
}

func TestAiRequiresContext(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	if err := session.RequestAiSuggestion("sugira um meio-termo", clk); !errors.Is(err, ErrMissingContextForAI) {
		t.Fatalf("expected ErrMissingContextForAI, got %v", err)
	}
	if _, err := session.SubmitProposal(2, nil, ProposalSourceAI, "proposta da IA", clk); !errors.Is(err, ErrMissingContextForAI) {
		t.Fatalf("expected ErrMissingContextForAI, got %v", err)
	}
}

func TestAiCooldownBetweenRequests(t *testing.T) {
	session := newOpenSession(t, "venda de imovel, comissao em debate")

	if err := session.RequestAiSuggestion("primeira", clock.Fixed(testNow)); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if err := session.RequestAiSuggestion("segunda", clock.Fixed(testNow.Add(4*time.Minute))); !errors.Is(err, ErrAiCooldownActive) {
		t.Fatalf("expected ErrAiCooldownActive, got %v", err)
	}
	if err := session.RequestAiSuggestion("segunda", clock.Fixed(testNow.Add(5*time.Minute))); err != nil {
		t.Fatalf("request after cooldown: %v", err)
	}
}

func TestAiProposalCooldownIgnoresRequestTimestamp(t *testing.T) {
	session := newOpenSession(t, "venda de imovel, comissao em debate")

	if err := session.RequestAiSuggestion("primeira", clock.Fixed(testNow)); err != nil {
		t.Fatalf("request: %v", err)
	}
	// The AI answer may arrive inside the request cooldown window.
	if _, err := session.SubmitProposal(2, nil, ProposalSourceAI, "sugestao da IA", clock.Fixed(testNow.Add(time.Minute))); err != nil {
		t.Fatalf("ai proposal blocked by request cooldown: %v", err)
	}
	// A second AI proposal right after the first one is throttled.
	if _, err := session.SubmitProposal(3, nil, ProposalSourceAI, "outra sugestao", clock.Fixed(testNow.Add(2*time.Minute))); !errors.Is(err, ErrAiCooldownActive) {
		t.Fatalf("expected ErrAiCooldownActive, got %v", err)
	}
}

func TestAiSuggestionTotalLimit(t *testing.T) {
	session := newOpenSession(t, "contexto detalhado")
	at := testNow

	for i := 0; i < 15; i++ {
		proposal, err := session.SubmitProposal(snowflake.ID(10+i), nil, ProposalSourceAI, fmt.Sprintf("sugestao %d", i), clock.Fixed(at))
		if err != nil {
			t.Fatalf("ai proposal %d: %v", i, err)
		}
		// Settle immediately so the pending cap never interferes.
		if err := session.RejectProposal(proposal.ID, nil, "nao serve", clock.Fixed(at)); err != nil {
			t.Fatalf("reject %d: %v", i, err)
		}
		at = at.Add(6 * time.Minute)
	}

	if _, err := session.SubmitProposal(99, nil, ProposalSourceAI, "a 16a", clock.Fixed(at)); !errors.Is(err, ErrAiSuggestionLimitExceeded) {
		t.Fatalf("expected ErrAiSuggestionLimitExceeded, got %v", err)
	}
	if err := session.RequestAiSuggestion("mais uma", clock.Fixed(at)); !errors.Is(err, ErrAiSuggestionLimitExceeded) {
		t.Fatalf("expected ErrAiSuggestionLimitExceeded, got %v", err)
	}
}

func TestGenerateAgreement(t *testing.T) {
	session := newOpenSession(t, "")
	clk := clock.Fixed(testNow)

	if err := session.GenerateAgreement(0, clk); !errors.Is(err, ErrInvalidGeneratedAgreement) {
		t.Fatalf("expected ErrInvalidGeneratedAgreement, got %v", err)
	}
	if err := session.GenerateAgreement(777, clk); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if session.Status != SessionStatusAgreementGenerated {
		t.Fatalf("expected agreement_generated, got %s", session.Status)
	}
	if session.GeneratedAgreementID == nil || *session.GeneratedAgreementID != 777 {
		t.Fatalf("agreement link missing: %v", session.GeneratedAgreementID)
	}
}
