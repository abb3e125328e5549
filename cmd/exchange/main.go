package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/account"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/cleanup"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/clock"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/config"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/logger"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/migration"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/observability"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/seed"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/server"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction"
	"github.com/ShaneWong116/CurrencyExchange-sub000/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		db.Module,
		clock.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			if err := migration.RunMigrations(conn); err != nil {
				return err
			}
			if cfg.IsProduction() {
				return nil
			}
			return seed.EnsureDefaultChannels(conn)
		}),

		channel.Module,
		account.Module,
		ledger.Module,
		statistics.Module,
		transaction.Module,
		settlement.Module,
		cleanup.Module,
		audit.Module,
		events.Module,

		server.Module,
	)
	app.Run()
}
