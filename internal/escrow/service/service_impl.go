package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	escrowdomain "github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	"github.com/caiohomem/assistente-sub001/internal/events"
	"github.com/caiohomem/assistente-sub001/internal/money"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   escrowdomain.Repository
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   escrowdomain.Repository
	outbox *events.Outbox
}

func NewService(p Params) escrowdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("escrow.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		outbox: p.Outbox,
	}
}

func (s *Service) Open(ctx context.Context, req escrowdomain.OpenRequest) (*escrowdomain.EscrowAccount, error) {
	agreementID, err := parseID(req.AgreementID, escrowdomain.ErrInvalidAccount)
	if err != nil {
		return nil, err
	}
	ownerID, err := parseID(req.OwnerID, escrowdomain.ErrInvalidAccount)
	if err != nil {
		return nil, err
	}

	account, err := escrowdomain.NewAccount(s.genID.Generate(), agreementID, ownerID, req.Currency, s.clock)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, account); err != nil {
			return err
		}
		return s.outbox.PublishAll(ctx, tx, account.OwnerID, &account.Recorder)
	})
	if err != nil {
		// A second open for the same agreement reuses the existing account.
		if errors.Is(err, persistence.ErrStaleVersion) {
			return s.repo.FindByAgreement(ctx, s.db, agreementID)
		}
		return nil, err
	}
	return account, nil
}

func (s *Service) GetByAgreement(ctx context.Context, agreementID string) (*escrowdomain.EscrowAccount, error) {
	id, err := parseID(agreementID, escrowdomain.ErrInvalidAccount)
	if err != nil {
		return nil, err
	}
	account, err := s.repo.FindByAgreement(ctx, s.db, id)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, escrowdomain.ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

func (s *Service) RegisterDeposit(ctx context.Context, req escrowdomain.DepositRequest) (*escrowdomain.EscrowTransaction, error) {
	amount, err := money.New(req.Amount, req.Currency)
	if err != nil {
		return nil, escrowdomain.ErrInvalidAmount
	}
	status := escrowdomain.TransactionStatusPending
	if req.Completed {
		status = escrowdomain.TransactionStatusCompleted
	}
	return s.mutateTx(ctx, req.AccountID, func(account *escrowdomain.EscrowAccount) (*escrowdomain.EscrowTransaction, error) {
		return account.RegisterDeposit(s.genID.Generate(), amount, req.Description, status, req.PaymentRef, req.IdempotencyKey, s.clock)
	})
}

func (s *Service) RequestPayout(ctx context.Context, req escrowdomain.PayoutRequest) (*escrowdomain.EscrowTransaction, error) {
	amount, err := money.New(req.Amount, req.Currency)
	if err != nil {
		return nil, escrowdomain.ErrInvalidAmount
	}
	approvalType, err := parseApprovalType(req.ApprovalType)
	if err != nil {
		return nil, err
	}
	var partyID *snowflake.ID
	if strings.TrimSpace(req.PartyID) != "" {
		id, err := parseID(req.PartyID, escrowdomain.ErrInvalidAccount)
		if err != nil {
			return nil, err
		}
		partyID = &id
	}
	return s.mutateTx(ctx, req.AccountID, func(account *escrowdomain.EscrowAccount) (*escrowdomain.EscrowTransaction, error) {
		return account.RequestPayout(s.genID.Generate(), partyID, amount, req.Description, approvalType, req.IdempotencyKey, s.clock)
	})
}

func (s *Service) ApprovePayout(ctx context.Context, req escrowdomain.ApprovalRequest) error {
	txID, err := parseID(req.TransactionID, escrowdomain.ErrTransactionNotFound)
	if err != nil {
		return err
	}
	approvedBy, err := parseID(req.ApprovedBy, escrowdomain.ErrInvalidAccount)
	if err != nil {
		return err
	}
	return s.mutate(ctx, req.AccountID, func(account *escrowdomain.EscrowAccount) error {
		return account.ApprovePayout(txID, approvedBy, s.clock)
	})
}

func (s *Service) RejectPayout(ctx context.Context, req escrowdomain.RejectionRequest) error {
	txID, err := parseID(req.TransactionID, escrowdomain.ErrTransactionNotFound)
	if err != nil {
		return err
	}
	rejectedBy, err := parseID(req.RejectedBy, escrowdomain.ErrInvalidAccount)
	if err != nil {
		return err
	}
	return s.mutate(ctx, req.AccountID, func(account *escrowdomain.EscrowAccount) error {
		return account.RejectPayout(txID, rejectedBy, req.Reason, s.clock)
	})
}

func (s *Service) MarkPayoutExecuted(ctx context.Context, req escrowdomain.ExecutionRequest) error {
	txID, err := parseID(req.TransactionID, escrowdomain.ErrTransactionNotFound)
	if err != nil {
		return err
	}
	return s.mutate(ctx, req.AccountID, func(account *escrowdomain.EscrowAccount) error {
		return account.MarkPayoutExecuted(txID, req.TransferRef, s.clock)
	})
}

func (s *Service) MarkTransactionDisputed(ctx context.Context, req escrowdomain.DisputeRequest) error {
	txID, err := parseID(req.TransactionID, escrowdomain.ErrTransactionNotFound)
	if err != nil {
		return err
	}
	return s.mutate(ctx, req.AccountID, func(account *escrowdomain.EscrowAccount) error {
		return account.MarkTransactionDisputed(txID, req.Reason, s.clock)
	})
}

func (s *Service) ConnectAccount(ctx context.Context, accountID, connectedAccountID string) error {
	return s.mutate(ctx, accountID, func(account *escrowdomain.EscrowAccount) error {
		return account.ConnectAccount(connectedAccountID, s.clock)
	})
}

func (s *Service) Suspend(ctx context.Context, accountID string) error {
	return s.mutate(ctx, accountID, func(account *escrowdomain.EscrowAccount) error {
		account.Suspend(s.clock)
		return nil
	})
}

func (s *Service) Close(ctx context.Context, accountID string) error {
	return s.mutate(ctx, accountID, func(account *escrowdomain.EscrowAccount) error {
		account.Close(s.clock)
		return nil
	})
}

func (s *Service) mutateTx(ctx context.Context, rawAccountID string, op func(*escrowdomain.EscrowAccount) (*escrowdomain.EscrowTransaction, error)) (*escrowdomain.EscrowTransaction, error) {
	var applied *escrowdomain.EscrowTransaction
	err := s.mutate(ctx, rawAccountID, func(account *escrowdomain.EscrowAccount) error {
		tx, err := op(account)
		if err != nil {
			return err
		}
		applied = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return applied, nil
}

// mutate runs one load-mutate-save unit of work over an escrow account,
// retrying the whole cycle on a lost version race.
func (s *Service) mutate(ctx context.Context, rawAccountID string, op func(*escrowdomain.EscrowAccount) error) error {
	accountID, err := parseID(rawAccountID, escrowdomain.ErrAccountNotFound)
	if err != nil {
		return err
	}
	return persistence.WithRetry(ctx, func(ctx context.Context) error {
		account, err := s.repo.FindByID(ctx, s.db, accountID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return escrowdomain.ErrAccountNotFound
			}
			return err
		}
		if err := op(account); err != nil {
			return err
		}
		return s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
			if err := s.repo.Save(ctx, dbtx, account); err != nil {
				return err
			}
			return s.outbox.PublishAll(ctx, dbtx, account.OwnerID, &account.Recorder)
		})
	})
}

func parseApprovalType(raw string) (escrowdomain.ApprovalType, error) {
	switch escrowdomain.ApprovalType(strings.ToLower(strings.TrimSpace(raw))) {
	case escrowdomain.ApprovalTypeAutomatic:
		return escrowdomain.ApprovalTypeAutomatic, nil
	case escrowdomain.ApprovalTypeRequired:
		return escrowdomain.ApprovalTypeRequired, nil
	case escrowdomain.ApprovalTypeDisputed:
		return escrowdomain.ApprovalTypeDisputed, nil
	default:
		return "", escrowdomain.ErrInvalidApprovalType
	}
}

func parseID(raw string, invalidErr error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, invalidErr
	}
	return id, nil
}
