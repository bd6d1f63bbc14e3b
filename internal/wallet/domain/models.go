// Package domain holds the prepaid credit wallet aggregate. The balance is
// never stored: it is a fold over the append-only transaction list.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/caiohomem/assistente-sub001/internal/events"
)

// CreditTransactionType classifies a signed wallet movement.
type CreditTransactionType string

const (
	TransactionTypeGrant    CreditTransactionType = "grant"
	TransactionTypePurchase CreditTransactionType = "purchase"
	TransactionTypeReserve  CreditTransactionType = "reserve"
	TransactionTypeConsume  CreditTransactionType = "consume"
	TransactionTypeRefund   CreditTransactionType = "refund"
	TransactionTypeExpire   CreditTransactionType = "expire"
)

// CreditTransaction is one immutable wallet movement. Rows are append-only;
// nothing ever updates or deletes them.
type CreditTransaction struct {
	ID             snowflake.ID          `gorm:"primaryKey"`
	WalletID       snowflake.ID          `gorm:"not null;index"`
	OwnerID        snowflake.ID          `gorm:"not null;index"`
	Type           CreditTransactionType `gorm:"type:text;not null"`
	Amount         decimal.Decimal       `gorm:"type:numeric(18,6);not null"`
	Reason         *string               `gorm:"type:text"`
	IdempotencyKey *string               `gorm:"type:text;index"`
	OccurredAt     time.Time             `gorm:"not null"`
	CreatedAt      time.Time             `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }

// CreditWallet is the per-owner aggregate root. One wallet per owner,
// created lazily on first use.
type CreditWallet struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OwnerID   snowflake.ID `gorm:"not null;uniqueIndex"`
	Version   int64        `gorm:"not null;default:0"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Transactions []CreditTransaction `gorm:"-"`

	events.Recorder `gorm:"-"`
}

// TableName sets the database table name.
func (CreditWallet) TableName() string { return "credit_wallets" }
