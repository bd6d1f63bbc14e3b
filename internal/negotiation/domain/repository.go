package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists sessions together with their proposals.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *NegotiationSession) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*NegotiationSession, error)
	Save(ctx context.Context, db *gorm.DB, session *NegotiationSession) error
}
