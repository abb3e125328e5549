package migration

import (
	accountdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/account/domain"
	auditdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/audit/domain"
	channeldomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/channel/domain"
	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/events"
	ledgerdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/ledger/domain"
	settlementdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/settlement/domain"
	statisticsdomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/statistics/domain"
	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	"gorm.io/gorm"
)

// RunMigrations brings the schema up to date. Ordering matters only for
// readability; sqlite foreign keys are enforced at write time, not create
// time.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&channeldomain.Channel{},
		&accountdomain.Account{},
		&ledgerdomain.ChannelBalance{},
		&transactiondomain.Transaction{},
		&transactiondomain.TransactionDraft{},
		&transactiondomain.TransactionImage{},
		&statisticsdomain.CurrentStatistic{},
		&settlementdomain.Settlement{},
		&settlementdomain.SettlementExpense{},
		&settlementdomain.CapitalAdjustment{},
		&settlementdomain.HKDBalanceAdjustment{},
		&settlementdomain.BalanceAdjustment{},
		&auditdomain.AuditLog{},
		&events.ExchangeEvent{},
	)
}
