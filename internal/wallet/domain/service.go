package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Service is the application surface over the credit wallet aggregate.
// Every call is one load-mutate-save unit of work; the owner's wallet is
// created lazily on the first operation.
type Service interface {
	Grant(ctx context.Context, req MovementRequest) (*CreditTransaction, error)
	Purchase(ctx context.Context, req MovementRequest) (*CreditTransaction, error)
	Reserve(ctx context.Context, req KeyedMovementRequest) (*CreditTransaction, error)
	Consume(ctx context.Context, req KeyedMovementRequest) (*CreditTransaction, error)
	Refund(ctx context.Context, req KeyedMovementRequest) (*CreditTransaction, error)
	Balance(ctx context.Context, ownerID string) (decimal.Decimal, error)
}

// MovementRequest credits a wallet without idempotency tracking.
type MovementRequest struct {
	OwnerID string          `json:"owner_id"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
}

// KeyedMovementRequest carries the idempotency key mandatory for financial
// effects that at-least-once callers may retry.
type KeyedMovementRequest struct {
	OwnerID        string          `json:"owner_id"`
	Amount         decimal.Decimal `json:"amount"`
	IdempotencyKey string          `json:"idempotency_key"`
	Purpose        string          `json:"purpose"`
}

var (
	ErrInvalidOwner          = errors.New("invalid_owner")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrInsufficientBalance   = errors.New("insufficient_balance")
	ErrMissingIdempotencyKey = errors.New("missing_idempotency_key")
)
