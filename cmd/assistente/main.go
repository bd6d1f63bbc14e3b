package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/caiohomem/assistente-sub001/internal/agreement"
	"github.com/caiohomem/assistente-sub001/internal/clock"
	"github.com/caiohomem/assistente-sub001/internal/config"
	"github.com/caiohomem/assistente-sub001/internal/escrow"
	"github.com/caiohomem/assistente-sub001/internal/events"
	"github.com/caiohomem/assistente-sub001/internal/logger"
	"github.com/caiohomem/assistente-sub001/internal/migration"
	"github.com/caiohomem/assistente-sub001/internal/negotiation"
	"github.com/caiohomem/assistente-sub001/internal/observability"
	"github.com/caiohomem/assistente-sub001/internal/scheduler"
	"github.com/caiohomem/assistente-sub001/internal/server"
	"github.com/caiohomem/assistente-sub001/internal/wallet"
	"github.com/caiohomem/assistente-sub001/pkg/db"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Invoke(func(log *zap.Logger, cfg config.Config) {
			log.Info("starting",
				zap.String("version", version),
				zap.String("environment", cfg.Environment),
			)
		}),
		observability.Module,
		clock.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		fx.Provide(events.NewOutbox),
		fx.Invoke(func(conn *gorm.DB) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB)
		}),
		wallet.Module,
		escrow.Module,
		agreement.Module,
		negotiation.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}
