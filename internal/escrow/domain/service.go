package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Service is the application surface over the escrow account aggregate.
type Service interface {
	Open(ctx context.Context, req OpenRequest) (*EscrowAccount, error)
	GetByAgreement(ctx context.Context, agreementID string) (*EscrowAccount, error)
	RegisterDeposit(ctx context.Context, req DepositRequest) (*EscrowTransaction, error)
	RequestPayout(ctx context.Context, req PayoutRequest) (*EscrowTransaction, error)
	ApprovePayout(ctx context.Context, req ApprovalRequest) error
	RejectPayout(ctx context.Context, req RejectionRequest) error
	MarkPayoutExecuted(ctx context.Context, req ExecutionRequest) error
	MarkTransactionDisputed(ctx context.Context, req DisputeRequest) error
	ConnectAccount(ctx context.Context, accountID, connectedAccountID string) error
	Suspend(ctx context.Context, accountID string) error
	Close(ctx context.Context, accountID string) error
}

type OpenRequest struct {
	AgreementID string `json:"agreement_id"`
	OwnerID     string `json:"owner_id"`
	Currency    string `json:"currency"`
}

type DepositRequest struct {
	AccountID      string          `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	Completed      bool            `json:"completed"`
	PaymentRef     string          `json:"payment_ref"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type PayoutRequest struct {
	AccountID      string          `json:"account_id"`
	PartyID        string          `json:"party_id"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Description    string          `json:"description"`
	ApprovalType   string          `json:"approval_type"`
	IdempotencyKey string          `json:"idempotency_key"`
}

type ApprovalRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	ApprovedBy    string `json:"approved_by"`
}

type RejectionRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	RejectedBy    string `json:"rejected_by"`
	Reason        string `json:"reason"`
}

type ExecutionRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	TransferRef   string `json:"transfer_ref"`
}

type DisputeRequest struct {
	AccountID     string `json:"account_id"`
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

var (
	ErrInvalidAccount            = errors.New("invalid_account")
	ErrInvalidCurrency           = errors.New("invalid_currency")
	ErrInvalidAmount             = errors.New("invalid_amount")
	ErrInvalidApprovalType       = errors.New("invalid_approval_type")
	ErrInvalidConnectedAccount   = errors.New("invalid_connected_account")
	ErrCurrencyMismatch          = errors.New("currency_mismatch")
	ErrAccountNotActive          = errors.New("account_not_active")
	ErrInsufficientEscrowBalance = errors.New("insufficient_escrow_balance")
	ErrInvalidTransactionState   = errors.New("invalid_transaction_state")
	ErrTransactionNotFound       = errors.New("transaction_not_found")
	ErrAccountNotFound           = errors.New("account_not_found")
)
