package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
	"github.com/caiohomem/assistente-sub001/internal/money"
)

// NewAccount opens an active escrow account for an agreement.
func NewAccount(id, agreementID, ownerID snowflake.ID, currency string, clk clock.Clock) (*EscrowAccount, error) {
	if id == 0 || agreementID == 0 || ownerID == 0 {
		return nil, ErrInvalidAccount
	}
	zero, err := money.Zero(currency)
	if err != nil {
		return nil, ErrInvalidCurrency
	}
	now := clk.Now()
	account := &EscrowAccount{
		ID:          id,
		AgreementID: agreementID,
		OwnerID:     ownerID,
		Currency:    zero.Currency,
		Status:      AccountStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	account.Record(events.EventEscrowAccountCreated, now, map[string]any{
		"account_id":   id.String(),
		"agreement_id": agreementID.String(),
		"owner_id":     ownerID.String(),
	})
	return account, nil
}

// Balance folds completed and approved movements: deposits and refunds add,
// payouts and fees subtract, floored at zero. Never cached.
func (a *EscrowAccount) Balance() money.Money {
	balance := decimal.Zero
	for _, tx := range a.Transactions {
		if tx.Status != TransactionStatusCompleted && tx.Status != TransactionStatusApproved {
			continue
		}
		switch tx.Type {
		case TransactionTypeDeposit, TransactionTypeRefund:
			balance = balance.Add(tx.Amount)
		case TransactionTypePayout, TransactionTypeFee:
			balance = balance.Sub(tx.Amount)
		}
	}
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return money.Money{Amount: balance, Currency: a.Currency}
}

// AvailableBalance subtracts payouts still pending from the balance, so a new
// payout request cannot promise funds an earlier request may claim.
func (a *EscrowAccount) AvailableBalance() money.Money {
	pending := decimal.Zero
	for _, tx := range a.Transactions {
		if tx.Type == TransactionTypePayout && tx.Status == TransactionStatusPending {
			pending = pending.Add(tx.Amount)
		}
	}
	available := a.Balance().Amount.Sub(pending)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return money.Money{Amount: available, Currency: a.Currency}
}

// RegisterDeposit records incoming funds. A replayed idempotency key returns
// the original transaction unchanged.
func (a *EscrowAccount) RegisterDeposit(txID snowflake.ID, amount money.Money, description string, status TransactionStatus, paymentRef, idempotencyKey string, clk clock.Clock) (*EscrowTransaction, error) {
	if err := a.ensureSameCurrency(amount); err != nil {
		return nil, err
	}
	if !amount.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if existing := a.findByKey(idempotencyKey); existing != nil {
		return existing, nil
	}
	now := clk.Now()
	tx := EscrowTransaction{
		ID:             txID,
		AccountID:      a.ID,
		Type:           TransactionTypeDeposit,
		Amount:         amount.Amount,
		Currency:       a.Currency,
		Description:    optional(description),
		Status:         status,
		PaymentRef:     optional(paymentRef),
		IdempotencyKey: optional(idempotencyKey),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	a.Transactions = append(a.Transactions, tx)
	a.UpdatedAt = now

	if status == TransactionStatusCompleted {
		a.Record(events.EventEscrowDepositReceived, now, map[string]any{
			"account_id":     a.ID.String(),
			"transaction_id": txID.String(),
			"amount":         amount.Amount.String(),
			"currency":       a.Currency,
		})
	}
	return &a.Transactions[len(a.Transactions)-1], nil
}

// RequestPayout opens a pending payout bounded by the available balance.
func (a *EscrowAccount) RequestPayout(txID snowflake.ID, partyID *snowflake.ID, amount money.Money, description string, approvalType ApprovalType, idempotencyKey string, clk clock.Clock) (*EscrowTransaction, error) {
	if err := a.ensureSameCurrency(amount); err != nil {
		return nil, err
	}
	if !amount.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if a.Status != AccountStatusActive {
		return nil, ErrAccountNotActive
	}
	if existing := a.findByKey(idempotencyKey); existing != nil {
		return existing, nil
	}
	if a.AvailableBalance().Amount.LessThan(amount.Amount) {
		return nil, ErrInsufficientEscrowBalance
	}

	now := clk.Now()
	approval := approvalType
	tx := EscrowTransaction{
		ID:             txID,
		AccountID:      a.ID,
		PartyID:        partyID,
		Type:           TransactionTypePayout,
		Amount:         amount.Amount,
		Currency:       a.Currency,
		Description:    optional(description),
		Status:         TransactionStatusPending,
		ApprovalType:   &approval,
		IdempotencyKey: optional(idempotencyKey),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	a.Transactions = append(a.Transactions, tx)
	a.UpdatedAt = now

	payload := map[string]any{
		"account_id":     a.ID.String(),
		"transaction_id": txID.String(),
		"amount":         amount.Amount.String(),
		"currency":       a.Currency,
		"approval_type":  string(approvalType),
	}
	if partyID != nil {
		payload["party_id"] = partyID.String()
	}
	a.Record(events.EventPayoutRequested, now, payload)
	return &a.Transactions[len(a.Transactions)-1], nil
}

// ApprovePayout moves a pending payout to approved.
func (a *EscrowAccount) ApprovePayout(txID, approvedBy snowflake.ID, clk clock.Clock) error {
	tx, err := a.transaction(txID)
	if err != nil {
		return err
	}
	if tx.Status != TransactionStatusPending {
		return ErrInvalidTransactionState
	}
	now := clk.Now()
	tx.Status = TransactionStatusApproved
	tx.ApprovedBy = &approvedBy
	tx.ApprovedAt = &now
	tx.UpdatedAt = now
	a.UpdatedAt = now

	a.Record(events.EventPayoutApproved, now, map[string]any{
		"account_id":     a.ID.String(),
		"transaction_id": txID.String(),
		"approved_by":    approvedBy.String(),
	})
	return nil
}

// RejectPayout closes a pending or approved payout without executing it.
func (a *EscrowAccount) RejectPayout(txID, rejectedBy snowflake.ID, reason string, clk clock.Clock) error {
	tx, err := a.transaction(txID)
	if err != nil {
		return err
	}
	if tx.Status != TransactionStatusPending && tx.Status != TransactionStatusApproved {
		return ErrInvalidTransactionState
	}
	now := clk.Now()
	tx.Status = TransactionStatusRejected
	tx.RejectedBy = &rejectedBy
	tx.RejectionReason = optionalWithDefault(reason, "no reason given")
	tx.UpdatedAt = now
	a.UpdatedAt = now

	a.Record(events.EventPayoutRejected, now, map[string]any{
		"account_id":     a.ID.String(),
		"transaction_id": txID.String(),
		"rejected_by":    rejectedBy.String(),
		"reason":         strings.TrimSpace(reason),
	})
	return nil
}

// MarkPayoutExecuted records the external transfer reference once the payment
// collaborator has moved the funds.
func (a *EscrowAccount) MarkPayoutExecuted(txID snowflake.ID, transferRef string, clk clock.Clock) error {
	tx, err := a.transaction(txID)
	if err != nil {
		return err
	}
	if tx.Status != TransactionStatusPending && tx.Status != TransactionStatusApproved {
		return ErrInvalidTransactionState
	}
	now := clk.Now()
	tx.Status = TransactionStatusCompleted
	tx.TransferRef = optional(transferRef)
	tx.UpdatedAt = now
	a.UpdatedAt = now

	a.Record(events.EventPayoutExecuted, now, map[string]any{
		"account_id":     a.ID.String(),
		"transaction_id": txID.String(),
		"amount":         tx.Amount.String(),
		"currency":       tx.Currency,
		"transfer_ref":   strings.TrimSpace(transferRef),
	})
	return nil
}

// MarkTransactionDisputed flags any transaction regardless of its state.
func (a *EscrowAccount) MarkTransactionDisputed(txID snowflake.ID, reason string, clk clock.Clock) error {
	tx, err := a.transaction(txID)
	if err != nil {
		return err
	}
	now := clk.Now()
	tx.Status = TransactionStatusDisputed
	tx.DisputeReason = optionalWithDefault(reason, "no reason given")
	tx.UpdatedAt = now
	a.UpdatedAt = now
	return nil
}

// ConnectAccount stores the external connected-account reference payouts are
// sent to.
func (a *EscrowAccount) ConnectAccount(connectedAccountID string, clk clock.Clock) error {
	trimmed := strings.TrimSpace(connectedAccountID)
	if trimmed == "" {
		return ErrInvalidConnectedAccount
	}
	a.ConnectedAccountID = &trimmed
	a.UpdatedAt = clk.Now()
	return nil
}

// Suspend freezes new payout requests.
func (a *EscrowAccount) Suspend(clk clock.Clock) {
	a.Status = AccountStatusSuspended
	a.UpdatedAt = clk.Now()
}

// Close terminates the account. Terminal; the history stays queryable.
func (a *EscrowAccount) Close(clk clock.Clock) {
	a.Status = AccountStatusClosed
	a.UpdatedAt = clk.Now()
}

func (a *EscrowAccount) transaction(txID snowflake.ID) (*EscrowTransaction, error) {
	for i := range a.Transactions {
		if a.Transactions[i].ID == txID {
			return &a.Transactions[i], nil
		}
	}
	return nil, ErrTransactionNotFound
}

func (a *EscrowAccount) findByKey(idempotencyKey string) *EscrowTransaction {
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return nil
	}
	for i := range a.Transactions {
		tx := &a.Transactions[i]
		if tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
			return tx
		}
	}
	return nil
}

func (a *EscrowAccount) ensureSameCurrency(amount money.Money) error {
	if amount.Currency != a.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func optionalWithDefault(s, fallback string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		trimmed = fallback
	}
	return &trimmed
}
