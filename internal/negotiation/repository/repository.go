// Package repository maps the negotiation session aggregate onto its two
// tables under the root's optimistic version token.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/caiohomem/assistente-sub001/internal/negotiation/domain"
	"github.com/caiohomem/assistente-sub001/internal/persistence"
)

type sessionRepository struct{}

// Provide builds the gorm-backed negotiation repository.
func Provide() domain.Repository {
	return &sessionRepository{}
}

func (r *sessionRepository) Insert(ctx context.Context, db *gorm.DB, session *domain.NegotiationSession) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(session).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return persistence.ErrStaleVersion
			}
			return err
		}
		return r.upsertProposals(ctx, tx, session)
	})
}

func (r *sessionRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.NegotiationSession, error) {
	var session domain.NegotiationSession
	err := db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, persistence.ErrNotFound
		}
		return nil, err
	}

	if err := db.WithContext(ctx).
		Where("session_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&session.Proposals).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, db *gorm.DB, session *domain.NegotiationSession) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Exec(
			`UPDATE negotiation_sessions
			 SET title = ?, context = ?, status = ?, generated_agreement_id = ?,
			     last_ai_suggestion_requested_at = ?,
			     version = version + 1, updated_at = ?
			 WHERE id = ? AND version = ?`,
			session.Title,
			session.Context,
			session.Status,
			session.GeneratedAgreementID,
			session.LastAiSuggestionRequestedAt,
			session.UpdatedAt,
			session.ID,
			session.Version,
		)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return persistence.ErrStaleVersion
		}
		session.Version++
		return r.upsertProposals(ctx, tx, session)
	})
}

func (r *sessionRepository) upsertProposals(ctx context.Context, tx *gorm.DB, session *domain.NegotiationSession) error {
	if len(session.Proposals) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(session.Proposals).Error
}
