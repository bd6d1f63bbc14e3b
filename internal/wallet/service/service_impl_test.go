package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/events"
	walletdomain "github.com/caiohomem/assistente-sub001/internal/wallet/domain"
	walletrepo "github.com/caiohomem/assistente-sub001/internal/wallet/repository"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	statements := []string{
		`CREATE TABLE IF NOT EXISTS credit_wallets (
			id BIGINT PRIMARY KEY,
			owner_id BIGINT NOT NULL UNIQUE,
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credit_transactions (
			id BIGINT PRIMARY KEY,
			wallet_id BIGINT NOT NULL,
			owner_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			amount NUMERIC NOT NULL,
			reason TEXT,
			idempotency_key TEXT,
			occurred_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_credit_transactions_key
			ON credit_transactions (wallet_id, idempotency_key, type)
			WHERE idempotency_key IS NOT NULL`,
		`CREATE TABLE IF NOT EXISTS domain_events (
			id BIGINT PRIMARY KEY,
			owner_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			payload TEXT,
			dedupe_key TEXT,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_domain_events_dedupe
			ON domain_events (owner_id, dedupe_key)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func newWalletService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return &Service{
		db:     db,
		log:    zap.NewNop(),
		genID:  node,
		clock:  clock.Fixed(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)),
		repo:   walletrepo.Provide(),
		outbox: events.NewOutbox(db, node),
	}
}

func TestGrantCreatesWalletLazily(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	tx, err := svc.Grant(ctx, walletdomain.MovementRequest{
		OwnerID: "7000001",
		Amount:  decimal.NewFromInt(100),
		Reason:  "signup bonus",
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if tx.Type != walletdomain.TransactionTypeGrant {
		t.Fatalf("expected grant transaction, got %s", tx.Type)
	}

	balance, err := svc.Balance(ctx, "7000001")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected balance 100, got %s", balance)
	}
}

func TestBalanceOfUnknownOwnerIsZero(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	balance, err := svc.Balance(context.Background(), "7000002")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance)
	}
}

func TestConsumeReplayReturnsOriginalTransaction(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, walletdomain.MovementRequest{
		OwnerID: "7000003",
		Amount:  decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	req := walletdomain.KeyedMovementRequest{
		OwnerID:        "7000003",
		Amount:         decimal.NewFromInt(30),
		IdempotencyKey: "task-42",
		Purpose:        "report generation",
	}
	first, err := svc.Consume(ctx, req)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	replay, err := svc.Consume(ctx, req)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.ID != first.ID {
		t.Fatalf("replay created a new transaction: %d != %d", replay.ID, first.ID)
	}

	balance, err := svc.Balance(ctx, "7000003")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected balance 70, got %s", balance)
	}
}

func TestConsumeRejectsInsufficientBalance(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, walletdomain.MovementRequest{
		OwnerID: "7000004",
		Amount:  decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	_, err := svc.Consume(ctx, walletdomain.KeyedMovementRequest{
		OwnerID:        "7000004",
		Amount:         decimal.NewFromInt(11),
		IdempotencyKey: "task-1",
	})
	if !errors.Is(err, walletdomain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestMovementRejectsInvalidOwner(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)

	_, err := svc.Grant(context.Background(), walletdomain.MovementRequest{
		OwnerID: "not-a-snowflake",
		Amount:  decimal.NewFromInt(1),
	})
	if !errors.Is(err, walletdomain.ErrInvalidOwner) {
		t.Fatalf("expected ErrInvalidOwner, got %v", err)
	}
}

func TestMovementsPublishOutboxEvents(t *testing.T) {
	db := setupWalletTestDB(t)
	svc := newWalletService(t, db)
	ctx := context.Background()

	if _, err := svc.Grant(ctx, walletdomain.MovementRequest{
		OwnerID: "7000005",
		Amount:  decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if _, err := svc.Reserve(ctx, walletdomain.KeyedMovementRequest{
		OwnerID:        "7000005",
		Amount:         decimal.NewFromInt(20),
		IdempotencyKey: "op-9",
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var count int64
	if err := db.Table("domain_events").Where("owner_id = ?", 7000005).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 outbox events, got %d", count)
	}
}
