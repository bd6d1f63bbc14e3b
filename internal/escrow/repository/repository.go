// Package repository maps the escrow aggregate onto its tables. Transaction
// rows are upserted because their status transitions in place; the account row
// carries the optimistic version token.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caiohomem/assistente-sub001/internal/escrow/domain"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type escrowRepository struct{}

// Provide builds the gorm-backed escrow repository.
func Provide() domain.Repository {
	return &escrowRepository{}
}

func (r *escrowRepository) Insert(ctx context.Context, db *gorm.DB, account *domain.EscrowAccount) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return persistence.ErrStaleVersion
			}
			return err
		}
		return r.upsertTransactions(ctx, tx, account)
	})
}

func (r *escrowRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.EscrowAccount, error) {
	return r.find(ctx, db, "id = ?", id)
}

func (r *escrowRepository) FindByAgreement(ctx context.Context, db *gorm.DB, agreementID snowflake.ID) (*domain.EscrowAccount, error) {
	return r.find(ctx, db, "agreement_id = ?", agreementID)
}

func (r *escrowRepository) find(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.EscrowAccount, error) {
	var account domain.EscrowAccount
	err := db.WithContext(ctx).Where(query, arg).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}

	if err := db.WithContext(ctx).
		Where("account_id = ?", account.ID).
		Order("created_at ASC, id ASC").
		Find(&account.Transactions).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *escrowRepository) Save(ctx context.Context, db *gorm.DB, account *domain.EscrowAccount) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE escrow_accounts
			 SET status = ?, connected_account_id = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			account.Status,
			account.ConnectedAccountID,
			account.UpdatedAt,
			account.ID,
			account.Version,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return persistence.ErrStaleVersion
		}
		account.Version++
		return r.upsertTransactions(ctx, tx, account)
	})
}

func (r *escrowRepository) upsertTransactions(ctx context.Context, tx *gorm.DB, account *domain.EscrowAccount) error {
	if len(account.Transactions) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(account.Transactions).Error
}
