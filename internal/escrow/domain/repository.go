package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists escrow accounts under optimistic concurrency.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, account *EscrowAccount) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*EscrowAccount, error)
	FindByAgreement(ctx context.Context, db *gorm.DB, agreementID snowflake.ID) (*EscrowAccount, error)
	Save(ctx context.Context, db *gorm.DB, account *EscrowAccount) error
}
