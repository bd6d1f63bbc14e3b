// Package repository maps the agreement aggregate onto its three tables.
// Parties and milestones are upserted with the root under the root's
// optimistic version token.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caiohomem/assistente-sub001/internal/agreement/domain"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type agreementRepository struct{}

// Provide builds the gorm-backed agreement repository.
func Provide() domain.Repository {
	return &agreementRepository{}
}

func (r *agreementRepository) Insert(ctx context.Context, db *gorm.DB, agreement *domain.CommissionAgreement) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(agreement).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return persistence.ErrStaleVersion
			}
			return err
		}
		return r.upsertChildren(ctx, tx, agreement)
	})
}

func (r *agreementRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CommissionAgreement, error) {
	var agreement domain.CommissionAgreement
	err := db.WithContext(ctx).Where("id = ?", id).First(&agreement).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}

	if err := db.WithContext(ctx).
		Where("agreement_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&agreement.Parties).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).
		Where("agreement_id = ?", id).
		Order("due_date ASC, id ASC").
		Find(&agreement.Milestones).Error; err != nil {
		return nil, err
	}
	return &agreement, nil
}

func (r *agreementRepository) Save(ctx context.Context, db *gorm.DB, agreement *domain.CommissionAgreement) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE commission_agreements
			 SET title = ?, description = ?, terms = ?, status = ?, escrow_account_id = ?,
			     activated_at = ?, completed_at = ?, canceled_at = ?,
			     version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			agreement.Title,
			agreement.Description,
			agreement.Terms,
			agreement.Status,
			agreement.EscrowAccountID,
			agreement.ActivatedAt,
			agreement.CompletedAt,
			agreement.CanceledAt,
			agreement.UpdatedAt,
			agreement.ID,
			agreement.Version,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return persistence.ErrStaleVersion
		}
		agreement.Version++
		return r.upsertChildren(ctx, tx, agreement)
	})
}

func (r *agreementRepository) ListActiveWithPendingMilestones(ctx context.Context, db *gorm.DB, limit int) ([]snowflake.ID, error) {
	if limit <= 0 {
		limit = 100
	}
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT a.id
		 FROM commission_agreements a
		 JOIN agreement_milestones m ON m.agreement_id = a.id
		 WHERE a.status = ? AND m.status = ?
		 LIMIT ?`,
		domain.AgreementStatusActive,
		domain.MilestoneStatusPending,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *agreementRepository) upsertChildren(ctx context.Context, tx *gorm.DB, agreement *domain.CommissionAgreement) error {
	if len(agreement.Parties) > 0 {
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(agreement.Parties).Error; err != nil {
			return err
		}
	}
	if len(agreement.Milestones) > 0 {
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).
			Create(agreement.Milestones).Error; err != nil {
			return err
		}
	}
	return nil
}
