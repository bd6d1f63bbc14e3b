// Package repository maps the wallet aggregate onto its two tables. The
// transaction list is append-only, so saves insert with conflict-ignore and
// the wallet row carries the optimistic version token.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caiohomem/assistente-sub001/internal/persistence"
	"github.com/caiohomem/assistente-sub001/internal/wallet/domain"
)

type walletRepository struct{}

// Provide builds the gorm-backed wallet repository.
func Provide() domain.Repository {
	return &walletRepository{}
}

func (r *walletRepository) Insert(ctx context.Context, db *gorm.DB, wallet *domain.CreditWallet) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wallet).Error; err != nil {
			// A concurrent first-use already created this owner's wallet;
			// report it as a lost race so the caller reloads and reapplies.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return persistence.ErrStaleVersion
			}
			return err
		}
		return r.appendTransactions(ctx, tx, wallet)
	})
}

func (r *walletRepository) FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*domain.CreditWallet, error) {
	var wallet domain.CreditWallet
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}

	if err := db.WithContext(ctx).
		Where("wallet_id = ?", wallet.ID).
		Order("occurred_at ASC, id ASC").
		Find(&wallet.Transactions).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *walletRepository) Save(ctx context.Context, db *gorm.DB, wallet *domain.CreditWallet) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE credit_wallets
			 SET version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			wallet.UpdatedAt,
			wallet.ID,
			wallet.Version,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return persistence.ErrStaleVersion
		}
		wallet.Version++
		return r.appendTransactions(ctx, tx, wallet)
	})
}

// appendTransactions inserts every buffered transaction, ignoring rows that
// already exist. Replayed saves of the same append are therefore harmless.
func (r *walletRepository) appendTransactions(ctx context.Context, tx *gorm.DB, wallet *domain.CreditWallet) error {
	if len(wallet.Transactions) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(wallet.Transactions).Error
}
