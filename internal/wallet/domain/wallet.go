package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
)

// NewWallet builds an empty wallet for an owner.
func NewWallet(id, ownerID snowflake.ID, clk clock.Clock) (*CreditWallet, error) {
	if id == 0 || ownerID == 0 {
		return nil, ErrInvalidOwner
	}
	now := clk.Now()
	return &CreditWallet{
		ID:        id,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Balance folds the transaction list: grants, purchases and refunds add,
// reserves, consumptions and expirations subtract, floored at zero.
func (w *CreditWallet) Balance() decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range w.Transactions {
		switch tx.Type {
		case TransactionTypeGrant, TransactionTypePurchase, TransactionTypeRefund:
			balance = balance.Add(tx.Amount)
		case TransactionTypeReserve, TransactionTypeConsume, TransactionTypeExpire:
			balance = balance.Sub(tx.Amount)
		}
	}
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// Grant credits the wallet unconditionally (promotions, admin adjustments).
func (w *CreditWallet) Grant(txID snowflake.ID, amount decimal.Decimal, reason string, clk clock.Clock) (*CreditTransaction, error) {
	return w.credit(txID, TransactionTypeGrant, amount, reason, clk, events.EventCreditsGranted)
}

// Purchase credits the wallet after a paid top-up.
func (w *CreditWallet) Purchase(txID snowflake.ID, amount decimal.Decimal, reason string, clk clock.Clock) (*CreditTransaction, error) {
	return w.credit(txID, TransactionTypePurchase, amount, reason, clk, events.EventCreditsGranted)
}

func (w *CreditWallet) credit(txID snowflake.ID, txType CreditTransactionType, amount decimal.Decimal, reason string, clk clock.Clock, eventType string) (*CreditTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	now := clk.Now()
	tx := CreditTransaction{
		ID:         txID,
		WalletID:   w.ID,
		OwnerID:    w.OwnerID,
		Type:       txType,
		Amount:     amount,
		Reason:     optional(reason),
		OccurredAt: now,
		CreatedAt:  now,
	}
	w.Transactions = append(w.Transactions, tx)
	w.UpdatedAt = now
	w.Record(eventType, now, map[string]any{
		"owner_id": w.OwnerID.String(),
		"amount":   amount.String(),
		"reason":   strings.TrimSpace(reason),
	})
	return &w.Transactions[len(w.Transactions)-1], nil
}

// Reserve holds credits for a pending operation. Replays with the same
// idempotency key return the original transaction without a second effect.
func (w *CreditWallet) Reserve(txID snowflake.ID, amount decimal.Decimal, idempotencyKey, purpose string, clk clock.Clock) (*CreditTransaction, error) {
	return w.debit(txID, TransactionTypeReserve, amount, idempotencyKey, purpose, clk, events.EventCreditsReserved)
}

// Consume spends credits. Idempotent on (key, type) like Reserve.
func (w *CreditWallet) Consume(txID snowflake.ID, amount decimal.Decimal, idempotencyKey, purpose string, clk clock.Clock) (*CreditTransaction, error) {
	return w.debit(txID, TransactionTypeConsume, amount, idempotencyKey, purpose, clk, events.EventCreditsConsumed)
}

func (w *CreditWallet) debit(txID snowflake.ID, txType CreditTransactionType, amount decimal.Decimal, idempotencyKey, purpose string, clk clock.Clock, eventType string) (*CreditTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return nil, ErrMissingIdempotencyKey
	}
	if existing := w.findByKey(key, txType); existing != nil {
		return existing, nil
	}
	if w.Balance().LessThan(amount) {
		return nil, ErrInsufficientBalance
	}
	now := clk.Now()
	tx := CreditTransaction{
		ID:             txID,
		WalletID:       w.ID,
		OwnerID:        w.OwnerID,
		Type:           txType,
		Amount:         amount,
		Reason:         optional(purpose),
		IdempotencyKey: &key,
		OccurredAt:     now,
		CreatedAt:      now,
	}
	w.Transactions = append(w.Transactions, tx)
	w.UpdatedAt = now
	w.Record(eventType, now, map[string]any{
		"owner_id": w.OwnerID.String(),
		"amount":   amount.String(),
		"purpose":  strings.TrimSpace(purpose),
	})
	return &w.Transactions[len(w.Transactions)-1], nil
}

// Refund returns previously spent credits. Idempotent on (key, refund); no
// balance check since refunds only add.
func (w *CreditWallet) Refund(txID snowflake.ID, amount decimal.Decimal, idempotencyKey, purpose string, clk clock.Clock) (*CreditTransaction, error) {
	if err := validateAmount(amount); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		return nil, ErrMissingIdempotencyKey
	}
	if existing := w.findByKey(key, TransactionTypeRefund); existing != nil {
		return existing, nil
	}
	now := clk.Now()
	tx := CreditTransaction{
		ID:             txID,
		WalletID:       w.ID,
		OwnerID:        w.OwnerID,
		Type:           TransactionTypeRefund,
		Amount:         amount,
		Reason:         optional(purpose),
		IdempotencyKey: &key,
		OccurredAt:     now,
		CreatedAt:      now,
	}
	w.Transactions = append(w.Transactions, tx)
	w.UpdatedAt = now
	w.Record(events.EventCreditsRefunded, now, map[string]any{
		"owner_id": w.OwnerID.String(),
		"amount":   amount.String(),
		"purpose":  strings.TrimSpace(purpose),
	})
	return &w.Transactions[len(w.Transactions)-1], nil
}

func (w *CreditWallet) findByKey(key string, txType CreditTransactionType) *CreditTransaction {
	for i := range w.Transactions {
		tx := &w.Transactions[i]
		if tx.Type == txType && tx.IdempotencyKey != nil && *tx.IdempotencyKey == key {
			return tx
		}
	}
	return nil
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
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
