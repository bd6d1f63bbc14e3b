package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/money"
)

var (
	testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	testDue = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
)

func newDraft(t *testing.T, total string) *CommissionAgreement {
	t.Helper()
	agreement, err := NewAgreement(1, 100, "Venda Imovel Centro", "", money.MustNew(total, "BRL"), "", clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("new agreement: %v", err)
	}
	return agreement
}

func addParty(t *testing.T, a *CommissionAgreement, id int64, split string) *AgreementParty {
	t.Helper()
	party, err := a.AddParty(snowflake.ID(id), nil, nil, "Fulano", "fulano@example.com", money.MustPercentage(split), PartyRoleBroker, clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("add party: %v", err)
	}
	return party
}

func addMilestone(t *testing.T, a *CommissionAgreement, id int64, value string) *Milestone {
	t.Helper()
	milestone, err := a.AddMilestone(snowflake.ID(id), "entrega", money.MustNew(value, "BRL"), testDue, clock.Fixed(testNow))
	if err != nil {
		t.Fatalf("add milestone: %v", err)
	}
	return milestone
}

func TestNewAgreementValidation(t *testing.T) {
	clk := clock.Fixed(testNow)
	total := money.MustNew("1000", "BRL")

	if _, err := NewAgreement(0, 100, "t", "", total, "", clk); !errors.Is(err, ErrInvalidAgreement) {
		t.Fatalf("expected ErrInvalidAgreement, got %v", err)
	}
	if _, err := NewAgreement(1, 100, "   ", "", total, "", clk); !errors.Is(err, ErrMissingTitle) {
		t.Fatalf("expected ErrMissingTitle, got %v", err)
	}
	if _, err := NewAgreement(1, 100, "t", "", money.Money{Amount: decimal.Zero, Currency: "BRL"}, "", clk); !errors.Is(err, ErrInvalidTotalValue) {
		t.Fatalf("expected ErrInvalidTotalValue, got %v", err)
	}
}

func TestSplitBoundedByHundred(t *testing.T) {
	agreement := newDraft(t, "1000")
	addParty(t, agreement, 2, "60")
	addParty(t, agreement, 3, "40")

	_, err := agreement.AddParty(4, nil, nil, "Extra", "extra@example.com", money.MustPercentage("0.01"), PartyRoleSeller, clock.Fixed(testNow))
	if !errors.Is(err, ErrSplitExceedsLimit) {
		t.Fatalf("expected ErrSplitExceedsLimit, got %v", err)
	}
}

func TestMilestoneSumBoundedByTotal(t *testing.T) {
	agreement := newDraft(t, "1000")
	addMilestone(t, agreement, 2, "600")
	addMilestone(t, agreement, 3, "400")

	_, err := agreement.AddMilestone(4, "extra", money.MustNew("1", "BRL"), testDue, clock.Fixed(testNow))
	if !errors.Is(err, ErrMilestoneSumExceedsTotal) {
		t.Fatalf("expected ErrMilestoneSumExceedsTotal, got %v", err)
	}
}

func TestMilestoneValidation(t *testing.T) {
	agreement := newDraft(t, "1000")
	clk := clock.Fixed(testNow)

	if _, err := agreement.AddMilestone(2, "  ", money.MustNew("100", "BRL"), testDue, clk); !errors.Is(err, ErrMissingMilestoneDescription) {
		t.Fatalf("expected ErrMissingMilestoneDescription, got %v", err)
	}
	if _, err := agreement.AddMilestone(2, "entrega", money.MustNew("100", "USD"), testDue, clk); !errors.Is(err, ErrCurrencyMismatch) {
		t.Fatalf("expected ErrCurrencyMismatch, got %v", err)
	}
	if _, err := agreement.AddMilestone(2, "entrega", money.MustNew("100", "BRL"), time.Time{}, clk); !errors.Is(err, ErrMissingDueDate) {
		t.Fatalf("expected ErrMissingDueDate, got %v", err)
	}
}

func TestActivateRequiresPartiesMilestonesAndConsent(t *testing.T) {
	clk := clock.Fixed(testNow)

	agreement := newDraft(t, "1000")
	if err := agreement.Activate(clk); !errors.Is(err, ErrNoParties) {
		t.Fatalf("expected ErrNoParties, got %v", err)
	}

	party := addParty(t, agreement, 2, "100")
	if err := agreement.Activate(clk); !errors.Is(err, ErrNoMilestones) {
		t.Fatalf("expected ErrNoMilestones, got %v", err)
	}

	addMilestone(t, agreement, 3, "1000")
	if err := agreement.Activate(clk); !errors.Is(err, ErrPartiesNotAllAccepted) {
		t.Fatalf("expected ErrPartiesNotAllAccepted, got %v", err)
	}

	if err := agreement.AcceptAgreement(party.ID, clk); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := agreement.Activate(clk); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if agreement.Status != AgreementStatusActive {
		t.Fatalf("expected active, got %s", agreement.Status)
	}

	// Activation is draft-only.
	if err := agreement.Activate(clk); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
}

func TestActivatePreconditionMatrix(t *testing.T) {
	clk := clock.Fixed(testNow)

	expected := func(draft, hasParties, hasMilestones, allAccepted bool) error {
		switch {
		case !draft:
			return ErrNotDraft
		case !hasParties:
			return ErrNoParties
		case !hasMilestones:
			return ErrNoMilestones
		case !allAccepted:
			return ErrPartiesNotAllAccepted
		default:
			return nil
		}
	}

	for i := 0; i < 16; i++ {
		draft := i&1 != 0
		hasParties := i&2 != 0
		hasMilestones := i&4 != 0
		allAccepted := i&8 != 0

		name := fmt.Sprintf("draft=%t/parties=%t/milestones=%t/accepted=%t",
			draft, hasParties, hasMilestones, allAccepted)
		t.Run(name, func(t *testing.T) {
			agreement := newDraft(t, "1000")
			if hasParties {
				party := addParty(t, agreement, 2, "100")
				if allAccepted {
					if err := agreement.AcceptAgreement(party.ID, clk); err != nil {
						t.Fatalf("accept: %v", err)
					}
				}
			}
			if hasMilestones {
				addMilestone(t, agreement, 3, "1000")
			}
			if !draft {
				if err := agreement.Cancel("desistiu", clk); err != nil {
					t.Fatalf("cancel: %v", err)
				}
			}

			err := agreement.Activate(clk)
			want := expected(draft, hasParties, hasMilestones, allAccepted)
			if want == nil {
				if err != nil {
					t.Fatalf("expected activation to succeed, got %v", err)
				}
				if agreement.Status != AgreementStatusActive {
					t.Fatalf("expected active, got %s", agreement.Status)
				}
				return
			}
			if !errors.Is(err, want) {
				t.Fatalf("expected %v, got %v", want, err)
			}
		})
	}
}

func TestAcceptIsIdempotent(t *testing.T) {
	agreement := newDraft(t, "1000")
	clk := clock.Fixed(testNow)
	party := addParty(t, agreement, 2, "100")

	if err := agreement.AcceptAgreement(party.ID, clk); err != nil {
		t.Fatalf("accept: %v", err)
	}
	firstAcceptedAt := *party.AcceptedAt
	if err := agreement.AcceptAgreement(party.ID, clk); err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if !party.AcceptedAt.Equal(firstAcceptedAt) {
		t.Fatalf("second accept changed AcceptedAt")
	}
}

func TestDraftOnlyMutations(t *testing.T) {
	agreement := activatedAgreement(t)
	clk := clock.Fixed(testNow)

	if _, err := agreement.AddParty(9, nil, nil, "Novo", "novo@example.com", money.MustPercentage("1"), PartyRoleBuyer, clk); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
	if _, err := agreement.AddMilestone(9, "extra", money.MustNew("1", "BRL"), testDue, clk); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
}

func TestCompleteRequiresAllMilestonesDone(t *testing.T) {
	agreement := activatedAgreement(t)
	clk := clock.Fixed(testNow)

	if err := agreement.Complete(clk); !errors.Is(err, ErrMilestonesNotAllCompleted) {
		t.Fatalf("expected ErrMilestonesNotAllCompleted, got %v", err)
	}

	for i := range agreement.Milestones {
		if err := agreement.CompleteMilestone(agreement.Milestones[i].ID, "", nil, clk); err != nil {
			t.Fatalf("complete milestone: %v", err)
		}
	}
	if err := agreement.Complete(clk); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if agreement.Status != AgreementStatusCompleted {
		t.Fatalf("expected completed, got %s", agreement.Status)
	}

	// Completed agreements cannot be canceled.
	if err := agreement.Cancel("mudou de ideia", clk); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("expected ErrAlreadyCompleted, got %v", err)
	}
}

func TestCompleteMilestoneIsIdempotent(t *testing.T) {
	agreement := activatedAgreement(t)
	clk := clock.Fixed(testNow)
	id := agreement.Milestones[0].ID

	if err := agreement.CompleteMilestone(id, "done", nil, clk); err != nil {
		t.Fatalf("complete milestone: %v", err)
	}
	before := len(agreement.Events())
	if err := agreement.CompleteMilestone(id, "done again", nil, clk); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if len(agreement.Events()) != before {
		t.Fatalf("idempotent completion recorded a new event")
	}
}

func TestMarkMilestoneOverdueSkipsCompleted(t *testing.T) {
	agreement := activatedAgreement(t)
	clk := clock.Fixed(testNow)
	id := agreement.Milestones[0].ID

	if err := agreement.CompleteMilestone(id, "", nil, clk); err != nil {
		t.Fatalf("complete milestone: %v", err)
	}
	if err := agreement.MarkMilestoneOverdue(id, clk); err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if agreement.Milestones[0].Status != MilestoneStatusCompleted {
		t.Fatalf("overdue overwrote a completed milestone")
	}
}

func TestDisputeAndCancel(t *testing.T) {
	agreement := activatedAgreement(t)
	clk := clock.Fixed(testNow)

	if err := agreement.Dispute("valores divergentes", clk); err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if agreement.Status != AgreementStatusDisputed {
		t.Fatalf("expected disputed, got %s", agreement.Status)
	}

	if err := agreement.Cancel("acordo desfeito", clk); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if agreement.Status != AgreementStatusCanceled {
		t.Fatalf("expected canceled, got %s", agreement.Status)
	}
	// Canceled agreements cannot be disputed.
	if err := agreement.Dispute("tarde demais", clk); !errors.Is(err, ErrAlreadyCanceled) {
		t.Fatalf("expected ErrAlreadyCanceled, got %v", err)
	}
}

func TestUpdateDetails(t *testing.T) {
	agreement := newDraft(t, "1000")
	clk := clock.Fixed(testNow)

	empty := "   "
	newTitle := "Titulo Atualizado"
	desc := "nova descricao"
	agreement.UpdateDetails(&newTitle, &desc, nil, clk)
	if agreement.Title != newTitle {
		t.Fatalf("title not updated: %s", agreement.Title)
	}
	if agreement.Description == nil || *agreement.Description != desc {
		t.Fatalf("description not updated: %v", agreement.Description)
	}

	// Whitespace title keeps the old one; whitespace description clears it.
	agreement.UpdateDetails(&empty, &empty, nil, clk)
	if agreement.Title != newTitle {
		t.Fatalf("blank title overwrote the current one")
	}
	if agreement.Description != nil {
		t.Fatalf("blank description should clear the field")
	}
}

func TestAttachEscrowAccount(t *testing.T) {
	agreement := newDraft(t, "1000")
	clk := clock.Fixed(testNow)

	if err := agreement.AttachEscrowAccount(0, clk); !errors.Is(err, ErrInvalidEscrowAccount) {
		t.Fatalf("expected ErrInvalidEscrowAccount, got %v", err)
	}
	if err := agreement.AttachEscrowAccount(55, clk); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if agreement.EscrowAccountID == nil || *agreement.EscrowAccountID != 55 {
		t.Fatalf("escrow account not linked: %v", agreement.EscrowAccountID)
	}
}

func TestUpdatePartySplit(t *testing.T) {
	agreement := newDraft(t, "1000")
	clk := clock.Fixed(testNow)
	party := addParty(t, agreement, 2, "60")
	addParty(t, agreement, 3, "40")

	// Raising past the remaining headroom is refused.
	if err := agreement.UpdatePartySplit(party.ID, money.MustPercentage("60.01"), clk); !errors.Is(err, ErrSplitExceedsLimit) {
		t.Fatalf("expected ErrSplitExceedsLimit, got %v", err)
	}
	if err := agreement.UpdatePartySplit(party.ID, money.MustPercentage("50"), clk); err != nil {
		t.Fatalf("update split: %v", err)
	}
	if !party.SplitPercentage.Equal(decimal.RequireFromString("50")) {
		t.Fatalf("split not updated: %s", party.SplitPercentage)
	}
	if err := agreement.UpdatePartySplit(99, money.MustPercentage("10"), clk); !errors.Is(err, ErrPartyNotFound) {
		t.Fatalf("expected ErrPartyNotFound, got %v", err)
	}

	activated := activatedAgreement(t)
	if err := activated.UpdatePartySplit(2, money.MustPercentage("50"), clk); !errors.Is(err, ErrNotDraft) {
		t.Fatalf("expected ErrNotDraft, got %v", err)
	}
}

func TestConnectPartyAccount(t *testing.T) {
	agreement := newDraft(t, "1000")
	clk := clock.Fixed(testNow)
	party := addParty(t, agreement, 2, "60")

	if err := agreement.ConnectPartyAccount(party.ID, "acct_123", clk); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if party.ConnectedAccountID == nil || *party.ConnectedAccountID != "acct_123" {
		t.Fatalf("account not connected: %v", party.ConnectedAccountID)
	}
	if party.ConnectedAt == nil {
		t.Fatalf("connected timestamp not set")
	}

	// Blank account disconnects.
	if err := agreement.ConnectPartyAccount(party.ID, "  ", clk); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if party.ConnectedAccountID != nil || party.ConnectedAt != nil {
		t.Fatalf("party still connected: %v", party.ConnectedAccountID)
	}
}

func TestResetMilestone(t *testing.T) {
	agreement := activatedAgreement(t)
	clk := clock.Fixed(testNow)

	if err := agreement.CompleteMilestone(4, "feito", nil, clk); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := agreement.ResetMilestone(4, clk); err != nil {
		t.Fatalf("reset: %v", err)
	}
	milestone, err := agreement.milestone(4)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if milestone.Status != MilestoneStatusPending || milestone.CompletedAt != nil || milestone.CompletionNotes != nil {
		t.Fatalf("milestone not reset: %+v", milestone)
	}

	// Resetting a pending milestone is a no-op.
	before := len(agreement.Events())
	if err := agreement.ResetMilestone(4, clk); err != nil {
		t.Fatalf("reset pending: %v", err)
	}
	if len(agreement.Events()) != before {
		t.Fatalf("no-op reset recorded an event")
	}

	// A milestone with a released payout stays completed.
	released := snowflake.ID(900)
	if err := agreement.CompleteMilestone(5, "", &released, clk); err != nil {
		t.Fatalf("complete with payout: %v", err)
	}
	if err := agreement.ResetMilestone(5, clk); !errors.Is(err, ErrMilestonePayoutReleased) {
		t.Fatalf("expected ErrMilestonePayoutReleased, got %v", err)
	}
}

// activatedAgreement builds an active 60/40 agreement with 600+400 milestones.
func activatedAgreement(t *testing.T) *CommissionAgreement {
	t.Helper()
	clk := clock.Fixed(testNow)
	agreement := newDraft(t, "1000")
	p1 := addParty(t, agreement, 2, "60")
	p2 := addParty(t, agreement, 3, "40")
	addMilestone(t, agreement, 4, "600")
	addMilestone(t, agreement, 5, "400")
	if err := agreement.AcceptAgreement(p1.ID, clk); err != nil {
		t.Fatalf("accept p1: %v", err)
	}
	if err := agreement.AcceptAgreement(p2.ID, clk); err != nil {
		t.Fatalf("accept p2: %v", err)
	}
	if err := agreement.Activate(clk); err != nil {
		t.Fatalf("activate: %v", err)
	}
	return agreement
}
