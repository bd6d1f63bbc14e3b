package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists wallets under optimistic concurrency. Save appends any
// new transactions and bumps the version; a lost race surfaces as
// persistence.ErrStaleVersion.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, wallet *CreditWallet) error
	FindByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (*CreditWallet, error)
	Save(ctx context.Context, db *gorm.DB, wallet *CreditWallet) error
}
