package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
	walletdomain "github.com/caiohomem/assistente-sub001/internal/wallet/domain"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Clock  clock.Clock
	Repo   walletdomain.Repository
	Outbox *events.Outbox
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	repo   walletdomain.Repository
	outbox *events.Outbox
}

func NewService(p Params) walletdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("wallet.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		repo:   p.Repo,
		outbox: p.Outbox,
	}
}

func (s *Service) Grant(ctx context.Context, req walletdomain.MovementRequest) (*walletdomain.CreditTransaction, error) {
	return s.mutate(ctx, req.OwnerID, func(wallet *walletdomain.CreditWallet) (*walletdomain.CreditTransaction, error) {
		return wallet.Grant(s.genID.Generate(), req.Amount, req.Reason, s.clock)
	})
}

func (s *Service) Purchase(ctx context.Context, req walletdomain.MovementRequest) (*walletdomain.CreditTransaction, error) {
	return s.mutate(ctx, req.OwnerID, func(wallet *walletdomain.CreditWallet) (*walletdomain.CreditTransaction, error) {
		return wallet.Purchase(s.genID.Generate(), req.Amount, req.Reason, s.clock)
	})
}

func (s *Service) Reserve(ctx context.Context, req walletdomain.KeyedMovementRequest) (*walletdomain.CreditTransaction, error) {
	return s.mutate(ctx, req.OwnerID, func(wallet *walletdomain.CreditWallet) (*walletdomain.CreditTransaction, error) {
		return wallet.Reserve(s.genID.Generate(), req.Amount, req.IdempotencyKey, req.Purpose, s.clock)
	})
}

func (s *Service) Consume(ctx context.Context, req walletdomain.KeyedMovementRequest) (*walletdomain.CreditTransaction, error) {
	return s.mutate(ctx, req.OwnerID, func(wallet *walletdomain.CreditWallet) (*walletdomain.CreditTransaction, error) {
		return wallet.Consume(s.genID.Generate(), req.Amount, req.IdempotencyKey, req.Purpose, s.clock)
	})
}

func (s *Service) Refund(ctx context.Context, req walletdomain.KeyedMovementRequest) (*walletdomain.CreditTransaction, error) {
	return s.mutate(ctx, req.OwnerID, func(wallet *walletdomain.CreditWallet) (*walletdomain.CreditTransaction, error) {
		return wallet.Refund(s.genID.Generate(), req.Amount, req.IdempotencyKey, req.Purpose, s.clock)
	})
}

func (s *Service) Balance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	owner, err := parseOwnerID(ownerID)
	if err != nil {
		return decimal.Zero, err
	}
	wallet, err := s.repo.FindByOwner(ctx, s.db, owner)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return wallet.Balance(), nil
}

// mutate runs one load-mutate-save unit of work, creating the wallet lazily
// and retrying the whole cycle when the save loses the version race.
func (s *Service) mutate(ctx context.Context, rawOwnerID string, op func(*walletdomain.CreditWallet) (*walletdomain.CreditTransaction, error)) (*walletdomain.CreditTransaction, error) {
	ownerID, err := parseOwnerID(rawOwnerID)
	if err != nil {
		return nil, err
	}

	var applied *walletdomain.CreditTransaction
	err = persistence.WithRetry(ctx, func(ctx context.Context) error {
		wallet, loadErr := s.loadOrCreate(ctx, ownerID)
		if loadErr != nil {
			return loadErr
		}

		created := wallet.Version == 0 && len(wallet.Transactions) == 0

		tx, opErr := op(wallet)
		if opErr != nil {
			return opErr
		}

		saveErr := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
			if created {
				if err := s.repo.Insert(ctx, dbtx, wallet); err != nil {
					return err
				}
			} else if err := s.repo.Save(ctx, dbtx, wallet); err != nil {
				return err
			}
			return s.outbox.PublishAll(ctx, dbtx, wallet.OwnerID, &wallet.Recorder)
		})
		if saveErr != nil {
			return saveErr
		}
		applied = tx
		return nil
	})
	if err != nil {
		s.log.Debug("wallet mutation failed",
			zap.String("owner_id", ownerID.String()),
			zap.Error(err))
		return nil, err
	}
	return applied, nil
}

func (s *Service) loadOrCreate(ctx context.Context, ownerID snowflake.ID) (*walletdomain.CreditWallet, error) {
	wallet, err := s.repo.FindByOwner(ctx, s.db, ownerID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, persistence.ErrNotFound) {
		return nil, err
	}
	return walletdomain.NewWallet(s.genID.Generate(), ownerID, s.clock)
}

func parseOwnerID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, walletdomain.ErrInvalidOwner
	}
	return id, nil
}
