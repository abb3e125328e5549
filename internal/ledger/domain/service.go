package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service maintains the per-channel running balances.
//
// Apply and Revert always run inside a database transaction with the target
// row locked; the *Tx variants compose into a caller-owned transaction so a
// transaction record and its ledger effects commit atomically.
type Service interface {
	Apply(ctx context.Context, channelID snowflake.ID, currency Currency, date time.Time, flow Flow, amount decimal.Decimal) error
	ApplyTx(ctx context.Context, tx *gorm.DB, channelID snowflake.ID, currency Currency, date time.Time, flow Flow, amount decimal.Decimal) error

	Revert(ctx context.Context, channelID snowflake.ID, currency Currency, date time.Time, flow Flow, amount decimal.Decimal) error
	RevertTx(ctx context.Context, tx *gorm.DB, channelID snowflake.ID, currency Currency, date time.Time, flow Flow, amount decimal.Decimal) error

	// CurrentBalance is the eagerly maintained running total: the latest
	// row's CurrentBalance, zero when the channel has no rows yet.
	CurrentBalance(ctx context.Context, channelID snowflake.ID, currency Currency) (decimal.Decimal, error)

	// DynamicBalance recomputes the live figure from the latest row's
	// InitialAmount plus the currently unsettled transactions. The two reads
	// agree once every transaction up to today has been applied.
	DynamicBalance(ctx context.Context, channelID snowflake.ID, currency Currency) (decimal.Decimal, error)

	// TotalCurrentBalanceTx sums every channel's current balance for one
	// currency, read under the caller's transaction. Settlement uses this
	// for the closing RMB float.
	TotalCurrentBalanceTx(ctx context.Context, tx *gorm.DB, currency Currency) (decimal.Decimal, error)
}

var (
	ErrInvalidChannel  = errors.New("invalid_channel")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidFlow     = errors.New("invalid_flow")
	ErrInvalidAmount   = errors.New("invalid_amount")
	ErrInvalidDate     = errors.New("invalid_date")
	ErrRetryable       = errors.New("retryable_lock_contention")
)
