package domain

import (
	"context"

	transactiondomain "github.com/ShaneWong116/CurrencyExchange-sub000/internal/transaction/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Service maintains the unsettled-population counters.
//
// The *Tx methods run inside the caller's transaction so counter updates
// commit or roll back together with the transaction record that caused them.
// Invariant: any scope's row equals a direct aggregation over the unsettled
// transactions in that scope.
type Service interface {
	GetOrCreateTx(ctx context.Context, tx *gorm.DB, statType StatType, referenceID snowflake.ID) (*CurrentStatistic, error)
	AddTransactionTx(ctx context.Context, tx *gorm.DB, txn *transactiondomain.Transaction) error
	RemoveTransactionTx(ctx context.Context, tx *gorm.DB, txn *transactiondomain.Transaction) error
	ClearAllTx(ctx context.Context, tx *gorm.DB) error

	DashboardSnapshot(ctx context.Context) (*CurrentStatistic, error)
	ChannelSnapshot(ctx context.Context, channelID snowflake.ID) (*CurrentStatistic, error)
}
