package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists agreements under optimistic concurrency. Parties and
// milestones are saved together with the root.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, agreement *CommissionAgreement) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CommissionAgreement, error)
	Save(ctx context.Context, db *gorm.DB, agreement *CommissionAgreement) error
	ListActiveWithPendingMilestones(ctx context.Context, db *gorm.DB, limit int) ([]snowflake.ID, error)
}
