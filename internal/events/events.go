// Package events defines the domain events buffered by aggregates and the
// outbox they are published through after a successful save.
package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Event types emitted by the financial aggregates.
const (
	EventCreditsGranted  = "credits.granted"
	EventCreditsReserved = "credits.reserved"
	EventCreditsConsumed = "credits.consumed"
	EventCreditsRefunded = "credits.refunded"

	EventEscrowAccountCreated  = "escrow.account_created"
	EventEscrowDepositReceived = "escrow.deposit_received"
	EventPayoutRequested       = "escrow.payout_requested"
	EventPayoutApproved        = "escrow.payout_approved"
	EventPayoutRejected        = "escrow.payout_rejected"
	EventPayoutExecuted        = "escrow.payout_executed"

	EventAgreementCreated      = "agreement.created"
	EventPartyAdded            = "agreement.party_added"
	EventPartyAccepted         = "agreement.party_accepted"
	EventMilestoneCreated      = "agreement.milestone_created"
	EventMilestoneCompleted    = "agreement.milestone_completed"
	EventMilestoneOverdue      = "agreement.milestone_overdue"
	EventAgreementActivated    = "agreement.activated"
	EventAgreementCompleted    = "agreement.completed"
	EventAgreementDisputed     = "agreement.disputed"
	EventAgreementCanceled     = "agreement.canceled"
	EventEscrowAccountAttached = "agreement.escrow_attached"
	EventPartySplitUpdated     = "agreement.party_split_updated"
	EventPartyAccountConnected = "agreement.party_account_connected"
	EventMilestoneReset        = "agreement.milestone_reset"
	EventMilestonePayoutLinked = "agreement.milestone_payout_linked"

	EventNegotiationCreated    = "negotiation.session_created"
	EventProposalSubmitted     = "negotiation.proposal_submitted"
	EventProposalAccepted      = "negotiation.proposal_accepted"
	EventProposalRejected      = "negotiation.proposal_rejected"
	EventAiSuggestionRequested = "negotiation.ai_suggestion_requested"
	EventAgreementGenerated    = "negotiation.agreement_generated"
	EventNegotiationClosed     = "negotiation.closed"
)

// Event is a single domain occurrence buffered by an aggregate.
type Event struct {
	Type       string
	OccurredAt time.Time
	Payload    map[string]any
}

// Recorder buffers events inside an aggregate until the application layer
// drains them after a successful save.
type Recorder struct {
	events []Event
}

// Record appends an event to the buffer.
func (r *Recorder) Record(eventType string, occurredAt time.Time, payload map[string]any) {
	r.events = append(r.events, Event{Type: eventType, OccurredAt: occurredAt, Payload: payload})
}

// Events returns the buffered events in submission order.
func (r *Recorder) Events() []Event {
	return r.events
}

// Clear empties the buffer. Called after the events have been published.
func (r *Recorder) Clear() {
	r.events = nil
}

// IDPayload is the minimal payload carrying only the subject identifier.
func IDPayload(key string, id snowflake.ID) map[string]any {
	return map[string]any{key: id.String()}
}
